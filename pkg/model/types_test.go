package model

import (
	"strings"
	"testing"
)

func validSet() CaseSet {
	return CaseSet{
		ID:     "login-suite",
		Title:  "Login suite",
		Layout: LayoutDimension,
		Dimensions: []Dimension{{
			ID:   "dim-user",
			Name: "用户管理",
			Points: []TestPoint{{
				ID:   "pt-login",
				Name: "用户登录",
				Cases: []TestCase{
					{ID: "c1", Title: "正确密码登录", Priority: PriorityP0, Status: StatusPending},
					{ID: "c2", Title: "错误密码锁定", Priority: PriorityP1, Steps: []string{"输入错误密码 5 次"}},
				},
			}},
		}},
	}
}

func TestCaseSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CaseSet)
		wantErr string
	}{
		{"valid", func(*CaseSet) {}, ""},
		{"empty id", func(s *CaseSet) { s.ID = "" }, "ID cannot be empty"},
		{"empty title", func(s *CaseSet) { s.Title = " " }, "title cannot be empty"},
		{"bad layout", func(s *CaseSet) { s.Layout = "matrix" }, "invalid layout"},
		{"dimension layout with groups", func(s *CaseSet) {
			s.Groups = []CaseGroup{{ID: "g", Name: "g"}}
		}, "cannot carry groups"},
		{"group layout with dimensions", func(s *CaseSet) { s.Layout = LayoutGroup }, "cannot carry dimensions"},
		{"duplicate case id", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[1].ID = "c1"
		}, `duplicate ID "c1"`},
		{"case id clashes with point", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[1].ID = "pt-login"
		}, "duplicate ID"},
		{"reserved case id", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[0].ID = ReservedID
		}, "is reserved"},
		{"reserved dimension id", func(s *CaseSet) { s.Dimensions[0].ID = ReservedID }, `dimension ID "__all__" is reserved`},
		{"empty point id", func(s *CaseSet) { s.Dimensions[0].Points[0].ID = "" }, "test point ID cannot be empty"},
		{"bad priority", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[0].Priority = "P9"
		}, "invalid priority"},
		{"bad status", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[0].Status = "done"
		}, "invalid status"},
		{"untitled case", func(s *CaseSet) {
			s.Dimensions[0].Points[0].Cases[0].Title = ""
		}, "title cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSet()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCaseSetCasesAndFind(t *testing.T) {
	s := validSet()
	if n := s.CaseCount(); n != 2 {
		t.Errorf("CaseCount() = %d, want 2", n)
	}
	cases := s.Cases()
	if len(cases) != 2 || cases[0].ID != "c1" || cases[1].ID != "c2" {
		t.Errorf("Cases() order wrong: %+v", cases)
	}
	if c := s.FindCase("c2"); c == nil || c.Title != "错误密码锁定" {
		t.Errorf("FindCase(c2) = %+v", c)
	}
	if c := s.FindCase("missing"); c != nil {
		t.Errorf("FindCase(missing) = %+v, want nil", c)
	}
}

func TestCaseSetCloneIsDeep(t *testing.T) {
	s := validSet()
	clone := s.Clone()

	clone.Dimensions[0].Points[0].Cases[0].Selected = true
	clone.Dimensions[0].Points[0].Cases[1].Steps[0] = "changed"
	clone.Dimensions[0].Name = "other"

	orig := s.Dimensions[0].Points[0]
	if orig.Cases[0].Selected {
		t.Error("Selected leaked through clone")
	}
	if orig.Cases[1].Steps[0] == "changed" {
		t.Error("Steps slice shared with clone")
	}
	if s.Dimensions[0].Name != "用户管理" {
		t.Error("dimension shared with clone")
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityP0.Rank() >= PriorityP3.Rank() {
		t.Error("P0 should rank before P3")
	}
	if Priority("").Rank() != 4 {
		t.Error("unknown priority should rank last")
	}
	if !TypeBoundary.IsKnownType() || CaseType("fuzz").IsKnownType() {
		t.Error("IsKnownType mismatch")
	}
}
