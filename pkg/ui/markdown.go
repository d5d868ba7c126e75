package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/casepick/pkg/model"
)

// MarkdownRenderer wraps a glamour renderer and rebuilds it when the
// wrap width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer. style is a glamour standard style
// name ("dark", "light", "notty") or "" for auto detection.
func NewMarkdownRenderer(width int, style string) *MarkdownRenderer {
	r := &MarkdownRenderer{style: style}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the underlying renderer for a new wrap width.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if r.renderer != nil && width == r.width {
		return
	}
	styleOpt := glamour.WithAutoStyle()
	if r.style != "" {
		styleOpt = glamour.WithStandardStyle(r.style)
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		tr = nil
	}
	r.renderer = tr
	r.width = width
}

// Render converts markdown to styled terminal text. Without a working
// renderer the raw markdown is returned.
func (r *MarkdownRenderer) Render(md string) (string, error) {
	if r == nil || r.renderer == nil {
		return md, nil
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md, err
	}
	return strings.TrimRight(out, "\n "), nil
}

// CaseMarkdown describes one test case for the detail pane.
func CaseMarkdown(c model.TestCase) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", c.Title))

	sb.WriteString("| ID | Priority | Type | Status |\n|---|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| **%s** | %s %s | %s | %s |\n\n",
		c.ID,
		GetPriorityIcon(c.Priority.Rank()),
		orDash(string(c.Priority)),
		orDash(string(c.Type)),
		orDash(string(c.Status)),
	))

	if c.Precondition != "" {
		sb.WriteString("### Precondition\n")
		sb.WriteString(c.Precondition + "\n\n")
	}

	if len(c.Steps) > 0 {
		sb.WriteString("### Steps\n")
		for i, step := range c.Steps {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
		sb.WriteString("\n")
	}

	if c.Expected != "" {
		sb.WriteString("### Expected\n")
		sb.WriteString(c.Expected + "\n\n")
	}

	if c.Source != "" {
		sb.WriteString(fmt.Sprintf("*Source: %s*\n", c.Source))
	}

	return sb.String()
}

// GroupMarkdown summarizes a dimension, test point or group row.
func GroupMarkdown(label string, selected, total int) string {
	if total == 0 {
		return fmt.Sprintf("# %s\n\nNo cases yet.\n", label)
	}
	return fmt.Sprintf("# %s\n\n**%d** of **%d** cases selected.\n", label, selected, total)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
