package selection

import "github.com/vanderheijden86/casepick/pkg/model"

// FromDimensions builds the Dimension → Test Point → Case hierarchy.
func FromDimensions(dims []model.Dimension) []Spec {
	specs := make([]Spec, 0, len(dims))
	for _, d := range dims {
		ds := Spec{ID: d.ID, Label: d.Name}
		for _, p := range d.Points {
			ds.Children = append(ds.Children, Spec{
				ID:       p.ID,
				Label:    p.Name,
				Children: caseSpecs(p.Cases),
			})
		}
		specs = append(specs, ds)
	}
	return specs
}

// FromGroups builds the flat Case Group → Case hierarchy.
func FromGroups(groups []model.CaseGroup) []Spec {
	specs := make([]Spec, 0, len(groups))
	for _, g := range groups {
		specs = append(specs, Spec{
			ID:       g.ID,
			Label:    g.Name,
			Children: caseSpecs(g.Cases),
		})
	}
	return specs
}

// FromCaseSet picks the hierarchy matching the set's layout.
func FromCaseSet(cs model.CaseSet) []Spec {
	if cs.Layout == model.LayoutGroup {
		return FromGroups(cs.Groups)
	}
	return FromDimensions(cs.Dimensions)
}

// NewFromCaseSet builds a fresh tree for one dialog session.
func NewFromCaseSet(cs model.CaseSet) (*Tree, error) {
	return New(FromCaseSet(cs)...)
}

func caseSpecs(cases []model.TestCase) []Spec {
	if len(cases) == 0 {
		return nil
	}
	out := make([]Spec, len(cases))
	for i, c := range cases {
		out[i] = Leaf(c.ID, c.Title, c.Selected)
	}
	return out
}
