//go:build ignore

// generate_testdata.go writes generated case sets for benchmarking and
// manual UI testing.
// Usage: go run scripts/generate_testdata.go [outdir]
//
// Creates (default outdir testdata/benchmark):
//
//	small.yaml   (4 x 5 x 5 = 100 cases)
//	medium.yaml  (10 x 10 x 10 = 1000 cases)
//	large.yaml   (20 x 25 x 10 = 5000 cases)
//	groups.yaml  (50 groups x 20 = 1000 cases, every 7th group empty)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/casepick/pkg/model"
	"github.com/vanderheijden86/casepick/pkg/testutil"
)

type datasetSpec struct {
	name                string
	dims, points, cases int
	groups              bool
}

var datasets = []datasetSpec{
	{name: "small", dims: 4, points: 5, cases: 5},
	{name: "medium", dims: 10, points: 10, cases: 10},
	{name: "large", dims: 20, points: 25, cases: 10},
	{name: "groups", dims: 50, cases: 20, groups: true},
}

func main() {
	outputDir := "testdata/benchmark"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(i + 1)
		cfg.IDPrefix = ds.name
		if ds.groups {
			cfg.EmptyEvery = 7
		}

		gen := testutil.New(cfg)
		var cs model.CaseSet
		if ds.groups {
			cs = gen.GroupSet(ds.dims, ds.cases)
		} else {
			cs = gen.DimensionSet(ds.dims, ds.points, ds.cases)
		}
		cs.Title = fmt.Sprintf("Benchmark %s (%d cases)", ds.name, cs.CaseCount())

		out, err := testutil.ToYAML(cs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render %s: %v\n", ds.name, err)
			os.Exit(1)
		}
		path := filepath.Join(outputDir, ds.name+".yaml")
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d cases)\n", path, cs.CaseCount())
	}
}
