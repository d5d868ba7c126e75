package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vanderheijden86/casepick/pkg/model"
)

// AssertCaseCount fails if cs does not hold expected cases.
func AssertCaseCount(t *testing.T, cs model.CaseSet, expected int) {
	t.Helper()
	if got := cs.CaseCount(); got != expected {
		t.Errorf("expected %d cases, got %d", expected, got)
	}
}

// AssertValid fails if cs does not pass model validation.
func AssertValid(t *testing.T, cs model.CaseSet) {
	t.Helper()
	if err := cs.Validate(); err != nil {
		t.Errorf("case set %s invalid: %v", cs.ID, err)
	}
}

// Selector is anything that reports its selected case IDs in order.
type Selector interface {
	SelectedLeafIDs() []string
}

// AssertSelected fails unless s reports exactly want, in order.
func AssertSelected(t *testing.T, s Selector, want ...string) {
	t.Helper()
	got := s.SelectedLeafIDs()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("selected = %v, want %v", got, want)
	}
}

// PreselectedIDs lists the IDs of cases marked selected, in traversal order.
func PreselectedIDs(cs model.CaseSet) []string {
	var ids []string
	for _, c := range cs.Cases() {
		if c.Selected {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// WriteCaseFile writes cs as YAML into dir and returns the path.
func WriteCaseFile(t *testing.T, dir string, cs model.CaseSet) string {
	t.Helper()
	content, err := ToYAML(cs)
	if err != nil {
		t.Fatalf("marshal %s: %v", cs.ID, err)
	}
	path := filepath.Join(dir, cs.ID+".yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
