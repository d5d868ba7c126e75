package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/selection"
)

// SnapshotOptions controls selection snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string
	Tree   *selection.Tree
}

// SaveSelectionSnapshot renders the tree as an image, one row per node,
// each row coloured by its tri-state.
func SaveSelectionSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.Export)()

	if opts.Tree == nil {
		return fmt.Errorf("a selection tree is required for snapshot export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVGToWriter(file, layout); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// --- layout computation ----------------------------------------------------

const (
	rowHeight    = 24
	indentWidth  = 24
	headerHeight = 88
	marginX      = 24
	boxSize      = 14
	imageWidth   = 760
)

type layoutRow struct {
	ID    string
	Label string
	State selection.State
	Leaf  bool
	Depth int
	Count string
}

type layoutResult struct {
	Rows     []layoutRow
	Width    int
	Height   int
	Title    string
	Selected int
	Total    int
}

func buildLayout(opts SnapshotOptions) layoutResult {
	t := opts.Tree
	sel, total, _ := t.Counts(selection.RootID)
	l := layoutResult{
		Width:    imageWidth,
		Title:    opts.Title,
		Selected: sel,
		Total:    total,
	}
	if l.Title == "" {
		l.Title = "Case selection"
	}

	t.Walk(func(n *selection.Node) bool {
		row := layoutRow{
			ID:    n.ID(),
			Label: n.Label(),
			State: t.State(n.ID()),
			Leaf:  n.IsLeaf(),
			Depth: n.Depth(),
		}
		if !n.IsLeaf() {
			s, tot, _ := t.Counts(n.ID())
			row.Count = fmt.Sprintf("%d/%d", s, tot)
		}
		l.Rows = append(l.Rows, row)
		return true
	})

	l.Height = headerHeight + len(l.Rows)*rowHeight + marginX
	return l
}

var (
	colorChecked  = color.RGBA{0x50, 0xc8, 0x78, 0xff}
	colorPartial  = color.RGBA{0xff, 0xb8, 0x6c, 0xff}
	colorEmpty    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func stateColor(s selection.State) color.RGBA {
	switch s {
	case selection.Checked:
		return colorChecked
	case selection.Indeterminate:
		return colorPartial
	default:
		return colorEmpty
	}
}

func rowY(i int) int {
	return headerHeight + i*rowHeight
}

func rowText(r layoutRow) string {
	label := r.Label
	if label == "" {
		label = r.ID
	}
	if r.Leaf {
		return truncate(r.ID+"  "+label, 80)
	}
	return truncate(label, 60) + "  (" + r.Count + ")"
}

// --- PNG -------------------------------------------------------------------

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, headerHeight-32, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Title, 32, 36, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("selected: %d / %d", layout.Selected, layout.Total), 32, 56, 0, 0.5)

	for i, r := range layout.Rows {
		x := float64(marginX + r.Depth*indentWidth)
		y := float64(rowY(i))
		dc.SetColor(stateColor(r.State))
		dc.DrawRoundedRectangle(x, y, boxSize, boxSize, 3)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(x, y, boxSize, boxSize, 3)
		dc.Stroke()
		if r.State == selection.Indeterminate {
			dc.DrawLine(x+3, y+boxSize/2, x+boxSize-3, y+boxSize/2)
			dc.Stroke()
		}

		if r.Leaf {
			dc.SetColor(colorSubtle)
		} else {
			dc.SetColor(colorText)
		}
		dc.DrawStringAnchored(rowText(r), x+boxSize+8, y+boxSize/2, 0, 0.5)
	}

	return dc.SavePNG(path)
}

// --- SVG -------------------------------------------------------------------

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, headerHeight-32, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 40, layout.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 60, fmt.Sprintf("selected: %d / %d", layout.Selected, layout.Total),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	for i, r := range layout.Rows {
		x := marginX + r.Depth*indentWidth
		y := rowY(i)
		canvas.Gid("node-" + r.ID)
		canvas.Roundrect(x, y, boxSize, boxSize, 3, 3,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(stateColor(r.State)), css(colorStroke)))
		if r.State == selection.Indeterminate {
			canvas.Line(x+3, y+boxSize/2, x+boxSize-3, y+boxSize/2,
				fmt.Sprintf("stroke:%s;stroke-width:1.5", css(colorStroke)))
		}
		style := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText))
		if r.Leaf {
			style = fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle))
		}
		canvas.Text(x+boxSize+8, y+boxSize-2, rowText(r), style)
		canvas.Gend()
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
