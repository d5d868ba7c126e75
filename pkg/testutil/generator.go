// Package testutil provides deterministic case-set generators for tests
// and benchmarks.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/casepick/pkg/model"
)

// GeneratorConfig controls case generation.
type GeneratorConfig struct {
	Seed        int64            // Random seed for determinism (0 = use current time)
	IDPrefix    string           // Prefix for every generated ID (default: "tc")
	SelectRatio float64          // Fraction of cases preselected, 0..1
	EmptyEvery  int              // Every Nth point or group has no cases (0 = never)
	PriorityMix []model.Priority // Priority distribution (nil = all P2)
	TypeMix     []model.CaseType // Type distribution (nil = all functional)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		IDPrefix:    "tc",
		SelectRatio: 0.5,
		PriorityMix: []model.Priority{model.PriorityP0, model.PriorityP1, model.PriorityP2, model.PriorityP3},
		TypeMix:     []model.CaseType{model.TypeFunctional, model.TypeBoundary, model.TypeException},
	}
}

// Generator creates case sets of a given shape.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "tc"
	}
	if len(cfg.PriorityMix) == 0 {
		cfg.PriorityMix = []model.Priority{model.PriorityP2}
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.CaseType{model.TypeFunctional}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// DimensionSet builds a dimension layout with dims dimensions, each with
// points test points of cases cases.
func (g *Generator) DimensionSet(dims, points, cases int) model.CaseSet {
	cs := g.newSet(model.LayoutDimension)
	bucket := 0
	for d := 1; d <= dims; d++ {
		dim := model.Dimension{
			ID:   fmt.Sprintf("%s-d%d", g.cfg.IDPrefix, d),
			Name: fmt.Sprintf("Dimension %d", d),
		}
		for p := 1; p <= points; p++ {
			bucket++
			dim.Points = append(dim.Points, model.TestPoint{
				ID:    fmt.Sprintf("%s-d%d-p%d", g.cfg.IDPrefix, d, p),
				Name:  fmt.Sprintf("Point %d.%d", d, p),
				Cases: g.casesFor(bucket, cases),
			})
		}
		cs.Dimensions = append(cs.Dimensions, dim)
	}
	return cs
}

// GroupSet builds a group layout with groups groups of cases cases.
func (g *Generator) GroupSet(groups, cases int) model.CaseSet {
	cs := g.newSet(model.LayoutGroup)
	for i := 1; i <= groups; i++ {
		cs.Groups = append(cs.Groups, model.CaseGroup{
			ID:    fmt.Sprintf("%s-g%d", g.cfg.IDPrefix, i),
			Name:  fmt.Sprintf("Group %d", i),
			Cases: g.casesFor(i, cases),
		})
	}
	return cs
}

// Ragged builds a dimension layout where every dimension and point draws
// its own size, zero included.
func (g *Generator) Ragged(maxDims, maxPoints, maxCases int) model.CaseSet {
	cs := g.newSet(model.LayoutDimension)
	for d, nd := 1, g.rng.Intn(maxDims+1); d <= nd; d++ {
		dim := model.Dimension{
			ID:   fmt.Sprintf("%s-d%d", g.cfg.IDPrefix, d),
			Name: fmt.Sprintf("Dimension %d", d),
		}
		for p, np := 1, g.rng.Intn(maxPoints+1); p <= np; p++ {
			dim.Points = append(dim.Points, model.TestPoint{
				ID:    fmt.Sprintf("%s-d%d-p%d", g.cfg.IDPrefix, d, p),
				Name:  fmt.Sprintf("Point %d.%d", d, p),
				Cases: g.cases(g.rng.Intn(maxCases + 1)),
			})
		}
		cs.Dimensions = append(cs.Dimensions, dim)
	}
	return cs
}

func (g *Generator) newSet(layout model.Layout) model.CaseSet {
	return model.CaseSet{
		ID:     g.cfg.IDPrefix + "-set",
		Title:  fmt.Sprintf("Generated %s set", layout),
		Layout: layout,
	}
}

func (g *Generator) casesFor(bucket, n int) []model.TestCase {
	if g.cfg.EmptyEvery > 0 && bucket%g.cfg.EmptyEvery == 0 {
		return nil
	}
	return g.cases(n)
}

func (g *Generator) cases(n int) []model.TestCase {
	var out []model.TestCase
	for i := 0; i < n; i++ {
		g.next++
		out = append(out, model.TestCase{
			ID:       fmt.Sprintf("%s-%d", g.cfg.IDPrefix, g.next),
			Title:    fmt.Sprintf("Generated case %d", g.next),
			Priority: g.cfg.PriorityMix[g.rng.Intn(len(g.cfg.PriorityMix))],
			Type:     g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))],
			Selected: g.rng.Float64() < g.cfg.SelectRatio,
		})
	}
	return out
}

// ToYAML renders cs in the on-disk case file format.
func ToYAML(cs model.CaseSet) (string, error) {
	data, err := yaml.Marshal(cs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// QuickDimensionSet builds a fully populated dimension set with the default config.
func QuickDimensionSet(dims, points, cases int) model.CaseSet {
	return NewDefault().DimensionSet(dims, points, cases)
}

// QuickGroupSet builds a group set with the default config.
func QuickGroupSet(groups, cases int) model.CaseSet {
	return NewDefault().GroupSet(groups, cases)
}
