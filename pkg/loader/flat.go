package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/model"
)

// DefaultMaxBufferSize is the default buffer size for the line reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// Flat-format errors.
var (
	ErrCycle          = errors.New("parent cycle")
	ErrDanglingParent = errors.New("parent not found")
	ErrNoSetRecord    = errors.New("no set record")
)

// Record kinds in the flat JSONL format.
const (
	KindSet       = "set"
	KindDimension = "dimension"
	KindPoint     = "point"
	KindGroup     = "group"
	KindCase      = "case"
)

// FlatRecord is one line of a .jsonl case file. Records reference their
// parent by ID and may appear in any order:
//
//	{"kind":"set","id":"login","title":"Login suite","layout":"dimension"}
//	{"kind":"case","id":"c1","parent":"pt-1","title":"正常注册","priority":"P0"}
//	{"kind":"point","id":"pt-1","parent":"dim-1","name":"用户注册"}
//	{"kind":"dimension","id":"dim-1","parent":"login","name":"用户管理"}
type FlatRecord struct {
	Kind        string       `json:"kind"`
	ID          string       `json:"id"`
	Parent      string       `json:"parent,omitempty"`
	Name        string       `json:"name,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Layout      model.Layout `json:"layout,omitempty"`

	Priority     model.Priority `json:"priority,omitempty"`
	Type         model.CaseType `json:"type,omitempty"`
	Status       model.Status   `json:"status,omitempty"`
	Precondition string         `json:"precondition,omitempty"`
	Steps        []string       `json:"steps,omitempty"`
	Expected     string         `json:"expected,omitempty"`
	Source       string         `json:"source,omitempty"`
	Selected     bool           `json:"selected,omitempty"`
}

func (r *FlatRecord) toCase() model.TestCase {
	title := r.Title
	if title == "" {
		title = r.Name
	}
	return model.TestCase{
		ID:           r.ID,
		Title:        title,
		Priority:     r.Priority,
		Type:         r.Type,
		Status:       r.Status,
		Precondition: r.Precondition,
		Steps:        r.Steps,
		Expected:     r.Expected,
		Source:       r.Source,
		Selected:     r.Selected,
	}
}

// ParseOptions configures ParseFlat.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings go to the debug log.
	WarningHandler func(string)

	// BufferSize sets the maximum line size (in bytes). Longer lines are
	// skipped with a warning. If 0, uses DefaultMaxBufferSize.
	BufferSize int
}

// ParseFlat reads flat JSONL records and assembles them into a case set.
// Malformed lines are skipped with a warning; structural problems
// (duplicates, dangling parents, cycles, kind mismatches) are errors.
func ParseFlat(r io.Reader, opts ParseOptions) (*model.CaseSet, error) {
	records, err := readRecords(r, opts)
	if err != nil {
		return nil, err
	}
	if err := checkTopology(records); err != nil {
		return nil, err
	}
	return assemble(records)
}

func readRecords(r io.Reader, opts ParseOptions) ([]*FlatRecord, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { debug.Log("loader: %s", msg) }
	}

	var records []*FlatRecord
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading case stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec FlatRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if rec.ID == "" {
			warn(fmt.Sprintf("skipping line %d: record has no id", lineNum))
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

// checkTopology verifies every parent exists and the parent links form a
// forest, using a directed parent → child graph.
func checkTopology(records []*FlatRecord) error {
	g := simple.NewDirectedGraph()
	nodeOf := make(map[string]graph.Node, len(records))
	idOf := make(map[int64]string, len(records))

	for _, rec := range records {
		if _, dup := nodeOf[rec.ID]; dup {
			return fmt.Errorf("duplicate record ID %q", rec.ID)
		}
		n := g.NewNode()
		g.AddNode(n)
		nodeOf[rec.ID] = n
		idOf[n.ID()] = rec.ID
	}

	for _, rec := range records {
		if rec.Parent == "" {
			continue
		}
		if rec.Parent == rec.ID {
			return fmt.Errorf("%w: %q is its own parent", ErrCycle, rec.ID)
		}
		parent, ok := nodeOf[rec.Parent]
		if !ok {
			return fmt.Errorf("%w: %q (referenced by %q)", ErrDanglingParent, rec.Parent, rec.ID)
		}
		g.SetEdge(g.NewEdge(parent, nodeOf[rec.ID]))
	}

	if _, err := topo.Sort(g); err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			var ids []string
			for _, component := range unorderable {
				for _, n := range component {
					ids = append(ids, idOf[n.ID()])
				}
			}
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(ids, ", "))
		}
		return err
	}
	return nil
}

func assemble(records []*FlatRecord) (*model.CaseSet, error) {
	var set *FlatRecord
	childrenOf := make(map[string][]*FlatRecord)
	for _, rec := range records {
		if rec.Kind == KindSet {
			if set != nil {
				return nil, fmt.Errorf("multiple set records (%q, %q)", set.ID, rec.ID)
			}
			if rec.Parent != "" {
				return nil, fmt.Errorf("set record %q cannot have a parent", rec.ID)
			}
			set = rec
			continue
		}
		if rec.Parent == "" {
			return nil, fmt.Errorf("%s record %q has no parent", rec.Kind, rec.ID)
		}
		childrenOf[rec.Parent] = append(childrenOf[rec.Parent], rec)
	}
	if set == nil {
		return nil, ErrNoSetRecord
	}

	cs := &model.CaseSet{
		ID:          set.ID,
		Title:       firstNonEmpty(set.Title, set.Name),
		Description: set.Description,
		Layout:      set.Layout,
	}

	placed := map[string]bool{set.ID: true}
	cases := func(parent *FlatRecord) ([]model.TestCase, error) {
		var out []model.TestCase
		for _, c := range childrenOf[parent.ID] {
			if c.Kind != KindCase {
				return nil, fmt.Errorf("%s %q: unexpected %s child %q", parent.Kind, parent.ID, c.Kind, c.ID)
			}
			placed[c.ID] = true
			out = append(out, c.toCase())
		}
		return out, nil
	}

	for _, top := range childrenOf[set.ID] {
		placed[top.ID] = true
		switch top.Kind {
		case KindDimension:
			dim := model.Dimension{ID: top.ID, Name: firstNonEmpty(top.Name, top.Title)}
			for _, pt := range childrenOf[top.ID] {
				if pt.Kind != KindPoint {
					return nil, fmt.Errorf("dimension %q: unexpected %s child %q", top.ID, pt.Kind, pt.ID)
				}
				placed[pt.ID] = true
				pc, err := cases(pt)
				if err != nil {
					return nil, err
				}
				dim.Points = append(dim.Points, model.TestPoint{
					ID:    pt.ID,
					Name:  firstNonEmpty(pt.Name, pt.Title),
					Cases: pc,
				})
			}
			cs.Dimensions = append(cs.Dimensions, dim)
		case KindGroup:
			gc, err := cases(top)
			if err != nil {
				return nil, err
			}
			cs.Groups = append(cs.Groups, model.CaseGroup{
				ID:    top.ID,
				Name:  firstNonEmpty(top.Name, top.Title),
				Cases: gc,
			})
		default:
			return nil, fmt.Errorf("set %q: unexpected %s child %q", set.ID, top.Kind, top.ID)
		}
	}

	for _, rec := range records {
		if !placed[rec.ID] {
			return nil, fmt.Errorf("%s record %q is not reachable from set %q", rec.Kind, rec.ID, set.ID)
		}
	}
	return cs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
