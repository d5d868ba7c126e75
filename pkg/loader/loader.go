package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/model"
)

// CasesDirEnvVar is the name of the environment variable for a custom case directory
const CasesDirEnvVar = "CASEPICK_DIR"

// DefaultCasesDir is used when neither the flag, the env var nor the config name one.
const DefaultCasesDir = ".casepick"

// maxParallel bounds concurrent file loads (file descriptors, memory).
const maxParallel = 16

// ErrUnknownFormat is returned for files whose extension is not a case format.
var ErrUnknownFormat = errors.New("unknown case file format")

// Format identifies how a case file is encoded.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// GetCasesDir returns the case directory, respecting CASEPICK_DIR.
// An explicit dir wins over the env var; cwd/.casepick is the fallback.
func GetCasesDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if envDir := os.Getenv(CasesDirEnvVar); envDir != "" {
		return envDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, DefaultCasesDir), nil
}

// FindCaseFiles lists loadable case files in dir, sorted by name.
// Hidden files, backups and editor swap files are skipped.
func FindCaseFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read case directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !IsCaseFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsCaseFile reports whether a base file name looks like a loadable case file.
func IsCaseFile(name string) bool {
	if strings.HasPrefix(name, ".") ||
		strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.HasSuffix(name, "~") {
		return false
	}
	_, err := DetectFormat(name)
	return err == nil
}

// LoadFile reads and validates one case set.
func LoadFile(path string) (*model.CaseSet, error) {
	defer metrics.Timer(metrics.CaseLoad)()

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var cs *model.CaseSet
	switch format {
	case FormatJSONL:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open case file: %w", err)
		}
		defer f.Close()
		cs, err = ParseFlat(f, ParseOptions{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read case file: %w", err)
		}
		data = stripBOM(data)
		cs = &model.CaseSet{}
		if format == FormatYAML {
			err = yaml.Unmarshal(data, cs)
		} else {
			err = json.Unmarshal(data, cs)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: parsing %s: %w", path, format, err)
		}
	}

	if cs.Layout == "" {
		cs.Layout = inferLayout(cs)
	}
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cs.SourcePath = path
	return cs, nil
}

func inferLayout(cs *model.CaseSet) model.Layout {
	if len(cs.Groups) > 0 && len(cs.Dimensions) == 0 {
		return model.LayoutGroup
	}
	return model.LayoutDimension
}

// LoadResult is the outcome of loading one file.
type LoadResult struct {
	Path string
	Set  *model.CaseSet
	Err  error
}

// LoadFiles loads paths concurrently. Per-file failures are reported in the
// results and never abort the others; only context cancellation does.
// Results keep the order of paths.
func LoadFiles(ctx context.Context, paths []string) ([]LoadResult, error) {
	results := make([]LoadResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Path: path, Err: ctx.Err()}
				return ctx.Err()
			default:
			}
			cs, err := LoadFile(path)
			results[i] = LoadResult{Path: path, Set: cs, Err: err}
			debug.LogIf(err != nil, "loader: %s: %v", path, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// LoadDir loads every case file in dir. Sets that share an ID with an
// earlier file are reported as errors.
func LoadDir(ctx context.Context, dir string) ([]model.CaseSet, []LoadResult, error) {
	paths, err := FindCaseFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	results, err := LoadFiles(ctx, paths)
	if err != nil {
		return nil, results, fmt.Errorf("loading %s: %w", dir, err)
	}
	debug.LogTiming(fmt.Sprintf("LoadDir(%d files)", len(paths)), time.Since(start))
	return Collect(results), results, nil
}

// Collect extracts successfully loaded sets, dropping later duplicates of
// a set ID and marking them as failed in results.
func Collect(results []LoadResult) []model.CaseSet {
	seen := make(map[string]string)
	var sets []model.CaseSet
	for i := range results {
		r := &results[i]
		if r.Err != nil || r.Set == nil {
			continue
		}
		if first, dup := seen[r.Set.ID]; dup {
			r.Err = fmt.Errorf("case set %q already loaded from %s", r.Set.ID, first)
			continue
		}
		seen[r.Set.ID] = r.Path
		sets = append(sets, *r.Set)
	}
	return sets
}

// Failures returns the results that carry an error.
func Failures(results []LoadResult) []LoadResult {
	var out []LoadResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
