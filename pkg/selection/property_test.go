package selection

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// drawSpecs draws a random forest up to three levels deep. Groups may be
// empty; leaf selection is random.
func drawSpecs(t *rapid.T) []Spec {
	next := 0
	var draw func(depth int) Spec
	draw = func(depth int) Spec {
		next++
		id := fmt.Sprintf("n%d", next)
		if depth >= 3 || rapid.IntRange(0, 2).Draw(t, "leafRoll") == 0 {
			return Leaf(id, "leaf "+id, rapid.Bool().Draw(t, "selected"))
		}
		g := Group(id, "group "+id)
		for i, n := 0, rapid.IntRange(0, 4).Draw(t, "children"); i < n; i++ {
			g.Children = append(g.Children, draw(depth+1))
		}
		return g
	}
	var specs []Spec
	for i, n := 0, rapid.IntRange(0, 4).Draw(t, "roots"); i < n; i++ {
		specs = append(specs, draw(0))
	}
	return specs
}

// bruteState recomputes a node's state by plain recursive descent, without
// touching the cached ranges or counts.
func bruteState(n *Node) State {
	var sel, total int
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			total++
			if n.selected {
				sel++
			}
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	switch {
	case total == 0 || sel == 0:
		return Unchecked
	case sel == total:
		return Checked
	default:
		return Indeterminate
	}
}

func allIDs(tree *Tree) []string {
	ids := []string{RootID}
	tree.Walk(func(n *Node) bool {
		ids = append(ids, n.ID())
		return true
	})
	return ids
}

func leafSnapshot(tree *Tree) map[string]bool {
	out := make(map[string]bool, tree.LeafCount())
	for _, id := range tree.LeafIDs() {
		out[id] = tree.IsSelected(id)
	}
	return out
}

func TestPropertyAggregation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)

		// Choose an arbitrary subset S of leaves
		for _, id := range tree.LeafIDs() {
			tree.SetGroupSelected(id, rapid.Bool().Draw(t, "inS"))
		}

		for _, id := range allIDs(tree) {
			n, _ := tree.Node(id)
			if got, want := tree.State(id), bruteState(n); got != want {
				t.Fatalf("state(%s) = %v, brute force says %v", id, got, want)
			}
		}
		if err := tree.Verify(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestPropertyGroupSetIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)
		ids := allIDs(tree)
		id := rapid.SampledFrom(ids).Draw(t, "group")
		v := rapid.Bool().Draw(t, "value")

		tree.SetGroupSelected(id, v)
		once := tree.SelectedLeafIDs()
		tree.SetGroupSelected(id, v)
		twice := tree.SelectedLeafIDs()

		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("SetGroupSelected(%s, %v) not idempotent: %v vs %v", id, v, once, twice)
		}
		for _, leaf := range tree.LeafIDsUnder(id) {
			if tree.IsSelected(leaf) != v {
				t.Fatalf("leaf %s under %s = %v, want %v", leaf, id, !v, v)
			}
		}
	})
}

func TestPropertyToggleLeafIsolated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)
		leaves := tree.LeafIDs()
		if len(leaves) == 0 {
			t.Skip("no leaves")
		}
		x := rapid.SampledFrom(leaves).Draw(t, "leaf")

		before := leafSnapshot(tree)
		tree.ToggleLeaf(x)
		after := leafSnapshot(tree)

		for id, was := range before {
			if id == x {
				if after[id] == was {
					t.Fatalf("leaf %s did not flip", x)
				}
				continue
			}
			if after[id] != was {
				t.Fatalf("toggling %s changed %s", x, id)
			}
		}
	})
}

func TestPropertySelectAllRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)

		tree.SetAllSelected(true)
		if got := tree.SelectedLeafIDs(); !reflect.DeepEqual(got, tree.LeafIDs()) {
			t.Fatalf("select all returned %v, want %v", got, tree.LeafIDs())
		}
		tree.SetAllSelected(false)
		if got := tree.SelectedLeafIDs(); len(got) != 0 {
			t.Fatalf("clear all returned %v", got)
		}
	})
}

func TestPropertyEmptyGroupsStayUnchecked(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)
		ids := allIDs(tree)

		// Random operation sequence
		for i, n := 0, rapid.IntRange(0, 20).Draw(t, "ops"); i < n; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "target")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				tree.ToggleLeaf(id)
			case 1:
				tree.SetGroupSelected(id, rapid.Bool().Draw(t, "v"))
			case 2:
				tree.Toggle(id)
			}
		}

		for _, id := range ids {
			if _, total, _ := tree.Counts(id); total == 0 {
				if s := tree.State(id); s != Unchecked {
					t.Fatalf("empty node %s reports %v", id, s)
				}
			}
		}
		if err := tree.Verify(); err != nil {
			t.Fatal(err)
		}
	})
}

// TestPropertyFilterVisibility checks that a filter shows exactly the
// matching nodes, their ancestors and the subtrees of matching groups.
func TestPropertyFilterVisibility(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := MustNew(drawSpecs(t)...)
		query := rapid.SampledFrom([]string{"n1", "n2", "n3", "N12", "leaf", "group n", "zzz"}).Draw(t, "query")
		q := strings.ToLower(query)
		v := tree.Filter(query)

		matches := func(n *Node) bool {
			return strings.Contains(strings.ToLower(n.ID()), q) ||
				strings.Contains(strings.ToLower(n.Label()), q)
		}
		want := make(map[string]bool)
		var walk func(n *Node, underMatch bool) bool
		walk = func(n *Node, underMatch bool) bool {
			hit := matches(n)
			below := false
			for _, c := range n.Children() {
				if walk(c, underMatch || hit) {
					below = true
				}
			}
			if underMatch || hit || below {
				want[n.ID()] = true
			}
			return hit || below
		}
		count := 0
		tree.Walk(func(n *Node) bool {
			if matches(n) {
				count++
			}
			return true
		})
		for _, r := range tree.Roots() {
			walk(r, false)
		}

		tree.Walk(func(n *Node) bool {
			if got := v.Visible(n.ID()); got != want[n.ID()] {
				t.Fatalf("Visible(%s) = %v, want %v for query %q", n.ID(), got, want[n.ID()], query)
			}
			return true
		})
		if v.Matches() != count {
			t.Fatalf("Matches() = %d, want %d", v.Matches(), count)
		}
	})
}
