// Package export writes confirmed case selections to files and images.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/model"
)

// Format is an output format for confirmed IDs.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text", "txt", "plain":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// Result is one confirmed selection.
type Result struct {
	SetID       string    `json:"set_id"`
	SetTitle    string    `json:"set_title,omitempty"`
	IDs         []string  `json:"ids"`
	Total       int       `json:"total"`
	ConfirmedAt time.Time `json:"confirmed_at"`

	titles map[string]string
}

// NewResult pairs confirmed IDs with the case set they came from.
func NewResult(set model.CaseSet, ids []string) Result {
	r := Result{
		SetID:       set.ID,
		SetTitle:    set.Title,
		IDs:         append([]string{}, ids...),
		Total:       set.CaseCount(),
		ConfirmedAt: time.Now().UTC(),
		titles:      make(map[string]string, len(ids)),
	}
	for _, c := range set.Cases() {
		r.titles[c.ID] = c.Title
	}
	return r
}

// WriteIDs writes r to w in the given format.
func WriteIDs(w io.Writer, f Format, r Result) error {
	defer metrics.Timer(metrics.Export)()

	if r.IDs == nil {
		r.IDs = []string{}
	}

	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case FormatText:
		for _, id := range r.IDs {
			if _, err := fmt.Fprintln(w, id); err != nil {
				return err
			}
		}
		return nil

	case FormatMarkdown:
		var sb strings.Builder
		title := r.SetTitle
		if title == "" {
			title = r.SetID
		}
		sb.WriteString(fmt.Sprintf("# Selected cases: %s\n\n", title))
		sb.WriteString(fmt.Sprintf("%d of %d cases selected.\n\n", len(r.IDs), r.Total))
		if len(r.IDs) > 0 {
			sb.WriteString("| ID | Title |\n|---|---|\n")
			for _, id := range r.IDs {
				sb.WriteString(fmt.Sprintf("| `%s` | %s |\n", id, escapeCell(r.titles[id])))
			}
		}
		_, err := io.WriteString(w, sb.String())
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteIDsFile writes r to path, creating parent directories.
func WriteIDsFile(path string, f Format, r Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteIDs(file, f, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// DefaultPath names the export file for r inside dir.
func DefaultPath(dir string, f Format, r Result) string {
	return filepath.Join(dir, r.SetID+"-selection"+f.Ext())
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
