package model

import (
	"fmt"
	"strings"
)

// TestCase represents a single reviewable test case
type TestCase struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Priority     Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Type         CaseType `json:"type,omitempty" yaml:"type,omitempty"`
	Status       Status   `json:"status,omitempty" yaml:"status,omitempty"`
	Precondition string   `json:"precondition,omitempty" yaml:"precondition,omitempty"`
	Steps        []string `json:"steps,omitempty" yaml:"steps,omitempty"`
	Expected     string   `json:"expected,omitempty" yaml:"expected,omitempty"`
	Source       string   `json:"source,omitempty" yaml:"source,omitempty"` // Document the case was generated from
	Selected     bool     `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Clone creates a deep copy of the case
func (c TestCase) Clone() TestCase {
	clone := c
	if c.Steps != nil {
		clone.Steps = make([]string, len(c.Steps))
		copy(clone.Steps, c.Steps)
	}
	return clone
}

// Validate checks if the case data is logically valid
func (c *TestCase) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("case ID cannot be empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("case %s: title cannot be empty", c.ID)
	}
	if c.Priority != "" && !c.Priority.IsValid() {
		return fmt.Errorf("case %s: invalid priority: %s", c.ID, c.Priority)
	}
	if c.Status != "" && !c.Status.IsValid() {
		return fmt.Errorf("case %s: invalid status: %s", c.ID, c.Status)
	}
	return nil
}

// Priority ranks a case from P0 (blocker) to P3 (nice to have)
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// IsValid returns true if the priority is a recognized value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// Rank returns 0 for P0 through 3 for P3, and 4 for anything else.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	}
	return 4
}

// CaseType categorizes what a case exercises
type CaseType string

const (
	TypeFunctional    CaseType = "functional"
	TypeBoundary      CaseType = "boundary"
	TypeException     CaseType = "exception"
	TypePerformance   CaseType = "performance"
	TypeSecurity      CaseType = "security"
	TypeCompatibility CaseType = "compatibility"
)

// IsKnownType returns true if the type is one of the standard types.
// Unknown types are accepted and shown with a default icon.
func (t CaseType) IsKnownType() bool {
	switch t {
	case TypeFunctional, TypeBoundary, TypeException, TypePerformance, TypeSecurity, TypeCompatibility:
		return true
	}
	return false
}

// Status represents the review state of a case
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TestPoint groups the cases that cover one functional point
type TestPoint struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Cases []TestCase `json:"cases,omitempty" yaml:"cases,omitempty"`
}

// Dimension groups test points by functional area
type Dimension struct {
	ID     string      `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Points []TestPoint `json:"points,omitempty" yaml:"points,omitempty"`
}

// CaseGroup is the flat variant: a named bucket of cases
type CaseGroup struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Cases []TestCase `json:"cases,omitempty" yaml:"cases,omitempty"`
}

// Layout selects which hierarchy a case set uses
type Layout string

const (
	LayoutDimension Layout = "dimension" // Dimension -> Test Point -> Case
	LayoutGroup     Layout = "group"     // Case Group -> Case
)

// IsValid returns true if the layout is a recognized value
func (l Layout) IsValid() bool {
	return l == LayoutDimension || l == LayoutGroup
}

// ReservedID names the implicit node above every top-level group. No
// dimension, point, group or case may use it.
const ReservedID = "__all__"

// CaseSet is one reviewable suite of cases
type CaseSet struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Layout      Layout      `json:"layout" yaml:"layout"`
	Dimensions  []Dimension `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Groups      []CaseGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
	SourcePath  string      `json:"-" yaml:"-"`
}

// Validate checks structure, layout consistency and ID uniqueness.
// IDs share one namespace across dimensions, points, groups and cases.
func (s *CaseSet) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("case set ID cannot be empty")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("case set %s: title cannot be empty", s.ID)
	}
	if !s.Layout.IsValid() {
		return fmt.Errorf("case set %s: invalid layout: %q", s.ID, s.Layout)
	}
	if s.Layout == LayoutDimension && len(s.Groups) > 0 {
		return fmt.Errorf("case set %s: dimension layout cannot carry groups", s.ID)
	}
	if s.Layout == LayoutGroup && len(s.Dimensions) > 0 {
		return fmt.Errorf("case set %s: group layout cannot carry dimensions", s.ID)
	}

	seen := make(map[string]bool)
	claim := func(kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("case set %s: %s ID cannot be empty", s.ID, kind)
		}
		if id == ReservedID {
			return fmt.Errorf("case set %s: %s ID %q is reserved", s.ID, kind, id)
		}
		if seen[id] {
			return fmt.Errorf("case set %s: duplicate ID %q", s.ID, id)
		}
		seen[id] = true
		return nil
	}
	checkCases := func(cases []TestCase) error {
		for i := range cases {
			if err := cases[i].Validate(); err != nil {
				return fmt.Errorf("case set %s: %w", s.ID, err)
			}
			if err := claim("case", cases[i].ID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, d := range s.Dimensions {
		if err := claim("dimension", d.ID); err != nil {
			return err
		}
		for _, p := range d.Points {
			if err := claim("test point", p.ID); err != nil {
				return err
			}
			if err := checkCases(p.Cases); err != nil {
				return err
			}
		}
	}
	for _, g := range s.Groups {
		if err := claim("group", g.ID); err != nil {
			return err
		}
		if err := checkCases(g.Cases); err != nil {
			return err
		}
	}
	return nil
}

// Cases returns every case in traversal order.
func (s *CaseSet) Cases() []TestCase {
	var out []TestCase
	for _, d := range s.Dimensions {
		for _, p := range d.Points {
			out = append(out, p.Cases...)
		}
	}
	for _, g := range s.Groups {
		out = append(out, g.Cases...)
	}
	return out
}

// CaseCount returns the number of cases in the set.
func (s *CaseSet) CaseCount() int {
	n := 0
	for _, d := range s.Dimensions {
		for _, p := range d.Points {
			n += len(p.Cases)
		}
	}
	for _, g := range s.Groups {
		n += len(g.Cases)
	}
	return n
}

// FindCase returns the case with the given ID, or nil.
func (s *CaseSet) FindCase(id string) *TestCase {
	for di := range s.Dimensions {
		for pi := range s.Dimensions[di].Points {
			cases := s.Dimensions[di].Points[pi].Cases
			for ci := range cases {
				if cases[ci].ID == id {
					return &cases[ci]
				}
			}
		}
	}
	for gi := range s.Groups {
		cases := s.Groups[gi].Cases
		for ci := range cases {
			if cases[ci].ID == id {
				return &cases[ci]
			}
		}
	}
	return nil
}

// Clone creates a deep copy of the case set
func (s CaseSet) Clone() CaseSet {
	clone := s
	if s.Dimensions != nil {
		clone.Dimensions = make([]Dimension, len(s.Dimensions))
		for i, d := range s.Dimensions {
			nd := d
			if d.Points != nil {
				nd.Points = make([]TestPoint, len(d.Points))
				for j, p := range d.Points {
					np := p
					np.Cases = cloneCases(p.Cases)
					nd.Points[j] = np
				}
			}
			clone.Dimensions[i] = nd
		}
	}
	if s.Groups != nil {
		clone.Groups = make([]CaseGroup, len(s.Groups))
		for i, g := range s.Groups {
			ng := g
			ng.Cases = cloneCases(g.Cases)
			clone.Groups[i] = ng
		}
	}
	return clone
}

func cloneCases(cases []TestCase) []TestCase {
	if cases == nil {
		return nil
	}
	out := make([]TestCase, len(cases))
	for i, c := range cases {
		out[i] = c.Clone()
	}
	return out
}
