package selection

import "strings"

// Visibility is the result of filtering a tree. It is a view over the tree
// and never changes what is selected: a hidden leaf keeps its selection.
type Visibility struct {
	query   string
	visible map[string]bool
	matches int
}

// Filter matches query case-insensitively against node IDs and labels.
// A matching group keeps its whole subtree visible, a matching leaf keeps
// its ancestors visible. An empty query shows everything.
func (t *Tree) Filter(query string) Visibility {
	q := strings.ToLower(strings.TrimSpace(query))
	v := Visibility{query: q}
	if q == "" {
		return v
	}
	v.visible = make(map[string]bool)

	var visit func(n *Node, inherited bool) bool
	visit = func(n *Node, inherited bool) bool {
		matched := strings.Contains(strings.ToLower(n.id), q) ||
			strings.Contains(strings.ToLower(n.label), q)
		if matched {
			v.matches++
		}
		anyChild := false
		for _, c := range n.children {
			if visit(c, inherited || matched) {
				anyChild = true
			}
		}
		show := inherited || matched || anyChild
		if show {
			v.visible[n.id] = true
		}
		return show
	}
	for _, c := range t.root.children {
		visit(c, false)
	}
	return v
}

// Active reports whether a non-empty query is applied.
func (v Visibility) Active() bool { return v.query != "" }

// Query returns the normalized query.
func (v Visibility) Query() string { return v.query }

// Matches returns how many nodes matched the query directly.
func (v Visibility) Matches() int { return v.matches }

// Visible reports whether id should be rendered.
func (v Visibility) Visible(id string) bool {
	if v.query == "" {
		return true
	}
	return v.visible[id]
}
