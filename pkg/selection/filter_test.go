package selection

import (
	"reflect"
	"testing"
)

func TestFilterEmptyQueryShowsAll(t *testing.T) {
	tree := userMgmtTree(t)
	v := tree.Filter("   ")
	if v.Active() {
		t.Error("blank query should not be active")
	}
	for _, id := range allIDsT(tree) {
		if !v.Visible(id) {
			t.Errorf("%s hidden by empty filter", id)
		}
	}
}

func TestFilterLeafKeepsAncestors(t *testing.T) {
	tree := userMgmtTree(t)
	v := tree.Filter("锁定")

	if v.Matches() != 1 {
		t.Errorf("Matches() = %d, want 1", v.Matches())
	}
	for _, id := range []string{"用户管理", "用户登录", "case-5"} {
		if !v.Visible(id) {
			t.Errorf("%s should be visible", id)
		}
	}
	for _, id := range []string{"用户注册", "case-1", "case-4"} {
		if v.Visible(id) {
			t.Errorf("%s should be hidden", id)
		}
	}
}

func TestFilterGroupKeepsSubtree(t *testing.T) {
	tree := userMgmtTree(t)
	v := tree.Filter("用户注册")

	for _, id := range []string{"用户管理", "用户注册", "case-1", "case-2", "case-3"} {
		if !v.Visible(id) {
			t.Errorf("%s should be visible", id)
		}
	}
	if v.Visible("case-4") {
		t.Error("case-4 should be hidden")
	}
}

func TestFilterOnlyShowsMatchAndAncestors(t *testing.T) {
	tests := []struct {
		query   string
		visible []string
	}{
		{"case-1", []string{"用户管理", "用户注册", "case-1"}},
		{"case-2", []string{"用户管理", "用户注册", "case-2"}},
		{"case-4", []string{"用户管理", "用户登录", "case-4"}},
		{"用户登录", []string{"用户管理", "用户登录", "case-4", "case-5"}},
		{"nothing-matches", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tree := userMgmtTree(t)
			v := tree.Filter(tt.query)
			want := make(map[string]bool)
			for _, id := range tt.visible {
				want[id] = true
			}
			for _, id := range allIDsT(tree) {
				if got := v.Visible(id); got != want[id] {
					t.Errorf("Visible(%s) = %v for query %q", id, got, tt.query)
				}
			}
		})
	}
}

func TestFilterMatchesIDsCaseInsensitively(t *testing.T) {
	tree := userMgmtTree(t)
	v := tree.Filter("CASE-3")
	if !v.Visible("case-3") || v.Visible("case-2") {
		t.Error("expected only case-3 among leaves")
	}
}

func TestFilterDoesNotChangeSelection(t *testing.T) {
	tree := userMgmtTree(t)
	tree.ToggleLeaf("case-2")
	before := tree.SelectedLeafIDs()

	v := tree.Filter("登录")
	if v.Visible("case-1") {
		t.Fatal("case-1 should be hidden by the filter")
	}

	// Hidden leaves keep their selection and still count toward parents
	if !tree.IsSelected("case-1") {
		t.Error("hidden case-1 lost its selection")
	}
	assertState(t, tree, "用户注册", Indeterminate)
	if got := tree.SelectedLeafIDs(); !reflect.DeepEqual(got, before) {
		t.Errorf("filter changed selection: %v -> %v", before, got)
	}
}

func allIDsT(tree *Tree) []string {
	var ids []string
	tree.Walk(func(n *Node) bool {
		ids = append(ids, n.ID())
		return true
	})
	return ids
}
