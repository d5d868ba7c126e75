package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth so CJK labels are measured by cell width, not rune count.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces on the right to the given cell width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncate truncates s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// buildTreePrefix draws the branch characters for a row. ancestorsLast
// holds, for every ancestor below the top level, whether it was the last
// child of its parent.
func buildTreePrefix(ancestorsLast []bool, isLast bool, depth int) string {
	if depth == 0 {
		return ""
	}
	var sb strings.Builder
	for _, last := range ancestorsLast {
		if last {
			sb.WriteString("    ")
		} else {
			sb.WriteString("│   ")
		}
	}
	if isLast {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return sb.String()
}

// GetPriorityIcon returns the emoji for a case priority rank.
func GetPriorityIcon(rank int) string {
	switch rank {
	case 0:
		return "🔥"
	case 1:
		return "⚡"
	case 2:
		return "🔹"
	case 3:
		return "☕"
	default:
		return "  "
	}
}
