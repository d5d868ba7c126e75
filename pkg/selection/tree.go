// Package selection implements the hierarchical tri-state selection model
// behind every review and confirmation dialog.
//
// Leaves carry the only stored truth (their selected flag). Every group
// state is derived from the leaves below it:
//
//	Checked        every descendant leaf is selected
//	Unchecked      no descendant leaf is selected, or the group has none
//	Indeterminate  anything in between
//
// Construction lays the leaves out in traversal order, so each group owns a
// contiguous range of the leaf slice. Group toggles walk that range; leaf
// flips adjust the per-node selected counts of their ancestors in the same
// step, which keeps GroupState O(1) without a separately stored group flag.
//
// Unknown IDs are no-ops everywhere. A stale callback can never touch an
// unrelated node.
package selection

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/model"
)

// RootID addresses the implicit "all" node above the top-level groups.
const RootID = model.ReservedID

// Construction errors.
var (
	ErrEmptyID          = errors.New("node ID cannot be empty")
	ErrDuplicateID      = errors.New("duplicate node ID")
	ErrReservedID       = errors.New("node ID is reserved")
	ErrLeafWithChildren = errors.New("leaf node cannot have children")
)

// State is the tri-state value shown on a checkbox.
type State int

const (
	Unchecked State = iota
	Checked
	Indeterminate
)

func (s State) String() string {
	switch s {
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// Spec describes a node at construction time.
type Spec struct {
	ID       string
	Label    string
	Leaf     bool // Leaf distinguishes a case from an empty group
	Selected bool // Initial selection; leaves only
	Children []Spec
}

// Leaf is shorthand for a leaf Spec.
func Leaf(id, label string, selected bool) Spec {
	return Spec{ID: id, Label: label, Leaf: true, Selected: selected}
}

// Group is shorthand for a group Spec.
func Group(id, label string, children ...Spec) Spec {
	return Spec{ID: id, Label: label, Children: children}
}

// Node is a read-only handle on a tree node.
type Node struct {
	id       string
	label    string
	leaf     bool
	selected bool
	depth    int
	parent   *Node
	children []*Node

	// first/last delimit this node's leaves in Tree.leaves: [first, last).
	first, last int
	// nSelected counts selected leaves in [first, last). Only setLeaf writes it.
	nSelected int
}

func (n *Node) ID() string      { return n.id }
func (n *Node) Label() string   { return n.label }
func (n *Node) IsLeaf() bool    { return n.leaf }
func (n *Node) Depth() int      { return n.depth }
func (n *Node) IsRoot() bool    { return n.parent == nil }
func (n *Node) ChildCount() int { return len(n.children) }

// Parent returns the parent node, or nil for the root. Top-level groups
// return the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Tree is a selection hierarchy. It is not safe for concurrent use; every
// dialog owns its own tree.
type Tree struct {
	root    *Node
	nodes   map[string]*Node
	leaves  []*Node
	initial []bool
}

// New builds a fresh tree from specs. The specs are copied, so changes to
// the tree are never visible through the caller's data.
func New(specs ...Spec) (*Tree, error) {
	defer metrics.Timer(metrics.TreeBuild)()

	t := &Tree{
		root:  &Node{id: RootID, label: "All", depth: -1},
		nodes: make(map[string]*Node),
	}
	t.nodes[RootID] = t.root

	for _, s := range specs {
		child, err := t.build(s, t.root, 0)
		if err != nil {
			return nil, err
		}
		t.root.children = append(t.root.children, child)
	}
	t.root.last = len(t.leaves)
	for _, c := range t.root.children {
		t.root.nSelected += c.nSelected
	}
	debug.Assert(t.root.nSelected <= len(t.leaves), "selected count exceeds leaf count")

	t.initial = make([]bool, len(t.leaves))
	for i, l := range t.leaves {
		t.initial[i] = l.selected
	}
	return t, nil
}

// MustNew is New for static data; it panics on malformed specs.
func MustNew(specs ...Spec) *Tree {
	t, err := New(specs...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) build(s Spec, parent *Node, depth int) (*Node, error) {
	switch {
	case s.ID == "":
		return nil, fmt.Errorf("child of %q: %w", parent.id, ErrEmptyID)
	case s.ID == RootID:
		return nil, fmt.Errorf("%q: %w", s.ID, ErrReservedID)
	case t.nodes[s.ID] != nil:
		return nil, fmt.Errorf("%q: %w", s.ID, ErrDuplicateID)
	case s.Leaf && len(s.Children) > 0:
		return nil, fmt.Errorf("%q: %w", s.ID, ErrLeafWithChildren)
	}

	n := &Node{
		id:     s.ID,
		label:  s.Label,
		leaf:   s.Leaf,
		depth:  depth,
		parent: parent,
		first:  len(t.leaves),
	}
	t.nodes[s.ID] = n

	if s.Leaf {
		n.selected = s.Selected
		if s.Selected {
			n.nSelected = 1
		}
		t.leaves = append(t.leaves, n)
		n.last = len(t.leaves)
		return n, nil
	}

	for _, cs := range s.Children {
		child, err := t.build(cs, n, depth+1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
		n.nSelected += child.nSelected
	}
	n.last = len(t.leaves)
	return n, nil
}

// setLeaf is the only place leaf truth changes.
func (t *Tree) setLeaf(leaf *Node, v bool) {
	if leaf.selected == v {
		return
	}
	leaf.selected = v
	delta := -1
	if v {
		delta = 1
	}
	for n := leaf; n != nil; n = n.parent {
		n.nSelected += delta
	}
}

func (t *Tree) lookup(op, id string) (*Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		debug.Log("selection: %s on unknown id %q ignored", op, id)
	}
	return n, ok
}

// ToggleLeaf flips one leaf. It reports false, changing nothing, when id is
// unknown or names a group.
func (t *Tree) ToggleLeaf(id string) bool {
	n, ok := t.lookup("ToggleLeaf", id)
	if !ok {
		return false
	}
	if !n.leaf {
		debug.Log("selection: ToggleLeaf on group %q ignored", id)
		return false
	}
	t.setLeaf(n, !n.selected)
	return true
}

// SetGroupSelected sets every leaf under id to v. A leaf id sets that leaf.
// Applying it twice is the same as applying it once.
func (t *Tree) SetGroupSelected(id string, v bool) bool {
	n, ok := t.lookup("SetGroupSelected", id)
	if !ok {
		return false
	}
	for _, leaf := range t.leaves[n.first:n.last] {
		t.setLeaf(leaf, v)
	}
	if debug.Enabled() {
		debug.AssertNoError(t.Verify(), "SetGroupSelected "+id)
	}
	return true
}

// SetAllSelected sets every leaf in the tree to v.
func (t *Tree) SetAllSelected(v bool) {
	t.SetGroupSelected(RootID, v)
}

// Toggle is the checkbox click: a leaf flips, a checked group clears and
// any other group (unchecked or indeterminate) selects everything below it.
func (t *Tree) Toggle(id string) bool {
	n, ok := t.lookup("Toggle", id)
	if !ok {
		return false
	}
	if n.leaf {
		t.setLeaf(n, !n.selected)
		return true
	}
	return t.SetGroupSelected(id, stateOf(n) != Checked)
}

func stateOf(n *Node) State {
	total := n.last - n.first
	switch {
	case total == 0 || n.nSelected == 0:
		return Unchecked
	case n.nSelected == total:
		return Checked
	default:
		return Indeterminate
	}
}

// GroupState returns the derived state of id. Leaves report Checked or
// Unchecked. Unknown ids report (Unchecked, false).
func (t *Tree) GroupState(id string) (State, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Unchecked, false
	}
	return stateOf(n), true
}

// State is GroupState without the existence flag.
func (t *Tree) State(id string) State {
	s, _ := t.GroupState(id)
	return s
}

// RootState is the state of the select-all control.
func (t *Tree) RootState() State {
	return stateOf(t.root)
}

// Counts returns how many leaves under id are selected, out of how many.
func (t *Tree) Counts(id string) (selected, total int, ok bool) {
	n, ok := t.nodes[id]
	if !ok {
		return 0, 0, false
	}
	return n.nSelected, n.last - n.first, true
}

// IsSelected reports whether the leaf id is selected.
func (t *Tree) IsSelected(id string) bool {
	n, ok := t.nodes[id]
	return ok && n.leaf && n.selected
}

// SelectedLeafIDs returns selected leaves in traversal order.
func (t *Tree) SelectedLeafIDs() []string {
	out := make([]string, 0, t.root.nSelected)
	for _, l := range t.leaves {
		if l.selected {
			out = append(out, l.id)
		}
	}
	return out
}

// LeafIDs returns every leaf id in traversal order.
func (t *Tree) LeafIDs() []string {
	out := make([]string, len(t.leaves))
	for i, l := range t.leaves {
		out[i] = l.id
	}
	return out
}

// LeafIDsUnder returns the leaf ids under id in traversal order.
func (t *Tree) LeafIDsUnder(id string) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, n.last-n.first)
	for _, l := range t.leaves[n.first:n.last] {
		out = append(out, l.id)
	}
	return out
}

// Node returns the node with the given id.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Root returns the implicit select-all node.
func (t *Tree) Root() *Node { return t.root }

// Roots returns the top-level nodes.
func (t *Tree) Roots() []*Node { return t.root.Children() }

// Len returns the number of nodes, excluding the implicit root.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// Walk visits nodes depth-first in declaration order, excluding the root.
// Returning false from fn skips that node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	for _, c := range t.root.children {
		walk(c)
	}
}

// Reset restores the selection the tree was built with.
func (t *Tree) Reset() {
	for i, l := range t.leaves {
		t.setLeaf(l, t.initial[i])
	}
}

// Dirty reports whether the selection differs from the initial one.
func (t *Tree) Dirty() bool {
	for i, l := range t.leaves {
		if l.selected != t.initial[i] {
			return true
		}
	}
	return false
}

// Restore replaces the selection with ids. Group ids select their whole
// subtree; unknown ids are ignored. It returns how many ids were applied.
func (t *Tree) Restore(ids []string) int {
	t.SetAllSelected(false)
	applied := 0
	for _, id := range ids {
		if id == RootID {
			continue
		}
		if t.SetGroupSelected(id, true) {
			applied++
		}
	}
	return applied
}

// Verify recomputes every cached count from leaf truth and reports the
// first mismatch.
func (t *Tree) Verify() error {
	for id, n := range t.nodes {
		want := 0
		for _, l := range t.leaves[n.first:n.last] {
			if l.selected {
				want++
			}
		}
		if n.nSelected != want {
			return fmt.Errorf("node %q: cached count %d, leaves say %d", id, n.nSelected, want)
		}
	}
	return nil
}
