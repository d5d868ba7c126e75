package ui

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/casepick/pkg/config"
	"github.com/vanderheijden86/casepick/pkg/hooks"
	"github.com/vanderheijden86/casepick/pkg/loader"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.UI.ShowDetail = false
	cfg.Export.Dir = t.TempDir()
	m := NewModel(loader.SampleSets(), cfg).WithTheme(TestTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

// send delivers keys and runs any command the dialog emits back through
// the model, the way the bubbletea runtime would.
func send(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, cmd := m.Update(keyMsg(k))
		m = updated.(Model)
		if cmd == nil {
			continue
		}
		switch msg := cmd().(type) {
		case SelectionConfirmedMsg, SelectionCancelledMsg, ExportFinishedMsg:
			updated, cmd = m.Update(msg)
			m = updated.(Model)
			if cmd != nil {
				if hm, ok := cmd().(HooksFinishedMsg); ok {
					updated, _ = m.Update(hm)
					m = updated.(Model)
				}
			}
		}
	}
	return m
}

func TestModelListNavigation(t *testing.T) {
	m := newTestModel(t)
	if m.CurrentSet().ID != "user-management" {
		t.Fatalf("initial set = %s", m.CurrentSet().ID)
	}
	m = send(t, m, "j", "j", "j")
	if m.CurrentSet().ID != "regression-smoke" {
		t.Errorf("cursor did not clamp at the last set: %s", m.CurrentSet().ID)
	}
	m = send(t, m, "k")
	if m.CurrentSet().ID != "ai-batch-0427" {
		t.Errorf("k moved to %s", m.CurrentSet().ID)
	}

	view := m.View()
	for _, want := range []string{"casepick", "用户管理 需求评审", "Regression smoke", "6/10"} {
		if !strings.Contains(view, want) {
			t.Errorf("list view missing %q", want)
		}
	}
}

func TestModelConfirmRecordsSelection(t *testing.T) {
	var callbackIDs []string
	m := newTestModel(t).WithOnConfirm(func(_ string, ids []string) { callbackIDs = ids })

	m = send(t, m, "enter")
	if !m.DialogOpen() {
		t.Fatal("enter did not open the dialog")
	}
	m = send(t, m, "n", "j", "j", " ", "enter") // only case-1
	if m.DialogOpen() {
		t.Fatal("dialog still open after confirm")
	}

	ids, ok := m.Confirmed("user-management")
	if !ok || !reflect.DeepEqual(ids, []string{"case-1"}) {
		t.Errorf("Confirmed() = %v, %v", ids, ok)
	}
	if !reflect.DeepEqual(callbackIDs, []string{"case-1"}) {
		t.Errorf("callback got %v", callbackIDs)
	}
	cs := m.CurrentSet()
	if c := cs.FindCase("case-2"); c.Selected {
		t.Error("confirmed selection not applied to the set")
	}

	// Reopening starts from the confirmed choice
	m = send(t, m, "enter")
	if got := m.Dialog().Tree().SelectedLeafIDs(); !reflect.DeepEqual(got, []string{"case-1"}) {
		t.Errorf("reopened dialog selection = %v", got)
	}
}

func TestModelCancelLeavesSetUntouched(t *testing.T) {
	m := newTestModel(t)
	before := m.CurrentSet().Clone()

	m = send(t, m, "enter", "n", "esc")
	if m.DialogOpen() {
		t.Fatal("esc did not close the dialog")
	}
	if !reflect.DeepEqual(m.CurrentSet().Cases(), before.Cases()) {
		t.Error("cancel changed the case set")
	}
	if _, ok := m.Confirmed("user-management"); ok {
		t.Error("cancel recorded a confirmation")
	}
}

func TestModelReloadKeepsOpenDialog(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, "enter", "n")

	reloaded := loader.SampleSets()[1:]
	updated, _ := m.Update(CasesReloadedMsg{Sets: reloaded})
	m = updated.(Model)

	if !m.DialogOpen() {
		t.Fatal("reload closed the dialog")
	}
	if m.Dialog().SetID() != "user-management" {
		t.Errorf("dialog now shows %s", m.Dialog().SetID())
	}
	if n := len(m.Dialog().Tree().SelectedLeafIDs()); n != 0 {
		t.Errorf("reload changed the open tree: %d selected", n)
	}
	if len(m.Sets()) != 2 {
		t.Errorf("sets after reload = %d", len(m.Sets()))
	}
}

func TestModelReloadReportsFailures(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(CasesReloadedMsg{
		Sets:     loader.SampleSets(),
		Failures: []loader.LoadResult{{Path: "bad.yaml", Err: errors.New("boom")}},
	})
	m = updated.(Model)
	if !strings.Contains(m.StatusMessage(), "1 file(s) failed") {
		t.Errorf("status = %q", m.StatusMessage())
	}

	updated, _ = m.Update(CasesReloadedMsg{Err: errors.New("dir gone")})
	m = updated.(Model)
	if len(m.Sets()) != 3 || !strings.Contains(m.StatusMessage(), "dir gone") {
		t.Errorf("failed reload replaced sets or hid the error: %d, %q", len(m.Sets()), m.StatusMessage())
	}
}

func TestModelCopyConfirmedIDs(t *testing.T) {
	m := newTestModel(t)
	var copied string
	m.copyFn = func(s string) error {
		copied = s
		return nil
	}

	m = send(t, m, "y")
	if !strings.Contains(m.StatusMessage(), "Nothing confirmed") {
		t.Errorf("copy before confirm: %q", m.StatusMessage())
	}

	m = send(t, m, "enter", "enter", "y")
	if copied != "case-1\ncase-2\ncase-3\ncase-4\ncase-5\ncase-6" {
		t.Errorf("clipboard got %q", copied)
	}

	m.copyFn = func(string) error { return errors.New("no clipboard") }
	m = send(t, m, "y")
	if !strings.Contains(m.StatusMessage(), "Clipboard error") {
		t.Errorf("status = %q", m.StatusMessage())
	}
}

func TestModelExportWritesFile(t *testing.T) {
	m := newTestModel(t)
	m.cfg.Export.Format = "text"

	m = send(t, m, "j", "enter", "enter", "e")
	path := filepath.Join(m.cfg.Export.Dir, "ai-batch-0427-selection.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export file: %v (status %q)", err, m.StatusMessage())
	}
	if string(data) != "gen-1\ngen-2\ngen-5\n" {
		t.Errorf("export content = %q", data)
	}
}

func TestReloadCasesCmd(t *testing.T) {
	dir := t.TempDir()
	content := "id: tiny\ntitle: Tiny\ngroups:\n  - id: g\n    name: G\n    cases:\n      - id: t1\n        title: one\n"
	if err := os.WriteFile(filepath.Join(dir, "tiny.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	msg, ok := ReloadCasesCmd(dir)().(CasesReloadedMsg)
	if !ok {
		t.Fatal("ReloadCasesCmd did not produce CasesReloadedMsg")
	}
	if msg.Err != nil || len(msg.Sets) != 1 || msg.Sets[0].ID != "tiny" {
		t.Errorf("reload = %+v", msg)
	}
}

func TestModelHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m = send(t, m, "?")
	if !strings.Contains(m.View(), "Keyboard shortcuts") {
		t.Error("help overlay not shown")
	}
	m = send(t, m, "x")
	if strings.Contains(m.View(), "Keyboard shortcuts") {
		t.Error("help overlay did not close")
	}
}

func TestModelOpenSet(t *testing.T) {
	m := newTestModel(t).OpenSet("Regression-Smoke")
	if !m.DialogOpen() || m.Dialog().SetID() != "regression-smoke" {
		t.Errorf("OpenSet did not open regression-smoke: open=%v", m.DialogOpen())
	}
	if m2 := newTestModel(t).OpenSet("missing"); m2.DialogOpen() {
		t.Error("unknown set opened a dialog")
	}
}

func TestModelExportRunsHooks(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "post.txt")
	cfg := &hooks.Config{Hooks: hooks.HooksByPhase{
		PostExport: []hooks.Hook{{Name: "record", Command: "cat > " + marker, Timeout: 5 * time.Second, OnError: "continue"}},
	}}
	m := newTestModel(t).WithHooks(cfg)
	m.cfg.Export.Format = "text"

	m = send(t, m, "enter", "enter", "e")
	if !strings.Contains(m.StatusMessage(), "Exported to") || !strings.Contains(m.StatusMessage(), "1 succeeded") {
		t.Errorf("status = %q", m.StatusMessage())
	}
	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("post-export hook did not run: %v", err)
	}
	if !strings.HasPrefix(string(data), "case-1\ncase-2\n") {
		t.Errorf("hook stdin = %q", data)
	}
}

func TestModelPreExportHookCancelsExport(t *testing.T) {
	cfg := &hooks.Config{Hooks: hooks.HooksByPhase{
		PreExport: []hooks.Hook{{Name: "gate", Command: "exit 1", Timeout: 5 * time.Second, OnError: "fail"}},
	}}
	m := newTestModel(t).WithHooks(cfg)
	m.cfg.Export.Format = "text"

	m = send(t, m, "enter", "enter", "e")
	if !strings.Contains(m.StatusMessage(), "Export failed") {
		t.Errorf("status = %q", m.StatusMessage())
	}
	if _, err := os.Stat(filepath.Join(m.cfg.Export.Dir, "user-management-selection.txt")); !os.IsNotExist(err) {
		t.Errorf("export written despite failing gate: %v", err)
	}
}

func TestModelPostConfirmHookFailureKeepsConfirmation(t *testing.T) {
	cfg := &hooks.Config{Hooks: hooks.HooksByPhase{
		PostConfirm: []hooks.Hook{{Name: "notify", Command: "exit 2", Timeout: 5 * time.Second, OnError: "fail"}},
	}}
	m := newTestModel(t).WithHooks(cfg)
	m = send(t, m, "enter", "enter")
	if _, ok := m.Confirmed("user-management"); !ok {
		t.Error("hook failure dropped the confirmation")
	}
	if !strings.Contains(m.StatusMessage(), "hook failed") {
		t.Errorf("status = %q", m.StatusMessage())
	}
}

func TestModelReportsContinuedHookFailure(t *testing.T) {
	cfg := &hooks.Config{Hooks: hooks.HooksByPhase{
		PostConfirm: []hooks.Hook{{Name: "notify", Command: "exit 2", Timeout: 5 * time.Second, OnError: "continue"}},
	}}
	m := newTestModel(t).WithHooks(cfg)
	m = send(t, m, "enter", "enter")
	if _, ok := m.Confirmed("user-management"); !ok {
		t.Fatal("confirmation missing")
	}
	if got := m.StatusMessage(); !strings.Contains(got, "1 failed") {
		t.Errorf("status = %q", got)
	}
}

func TestModelForwardsFilterBlinkToDialog(t *testing.T) {
	m := send(t, newTestModel(t), "enter")
	updated, cmd := m.Update(keyMsg("/"))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("focusing the filter returned no blink command")
	}
	updated, cmd = m.Update(cmd())
	m = updated.(Model)
	if cmd == nil {
		t.Error("blink message was dropped instead of reaching the filter input")
	}
	if !m.Dialog().Filtering() {
		t.Error("dialog left filter mode")
	}
}
