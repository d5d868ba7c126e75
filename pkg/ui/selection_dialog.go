package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/model"
	"github.com/vanderheijden86/casepick/pkg/selection"
)

// Dialog layout thresholds
const (
	DialogSplitThreshold = 100 // Detail pane shown beside the tree at this width
	minTreeWidth         = 30
)

// SelectionConfirmedMsg carries the selected case IDs, in tree order, when
// the user confirms a dialog.
type SelectionConfirmedMsg struct {
	SetID string
	IDs   []string
}

// SelectionCancelledMsg is sent when a dialog is dismissed. The caller's
// case set is untouched.
type SelectionCancelledMsg struct {
	SetID string
}

// dialogKeyMap holds the dialog bindings.
type dialogKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Expand    key.Binding
	Collapse  key.Binding
	ExpandAll key.Binding
	FoldAll   key.Binding
	Toggle    key.Binding
	All       key.Binding
	None      key.Binding
	Reset     key.Binding
	Filter    key.Binding
	Detail    key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

func defaultDialogKeys() dialogKeyMap {
	return dialogKeyMap{
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "move")),
		Down:      key.NewBinding(key.WithKeys("j", "down")),
		Top:       key.NewBinding(key.WithKeys("g", "home")),
		Bottom:    key.NewBinding(key.WithKeys("G", "end")),
		Expand:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("h/l", "fold")),
		Collapse:  key.NewBinding(key.WithKeys("h", "left")),
		ExpandAll: key.NewBinding(key.WithKeys("E")),
		FoldAll:   key.NewBinding(key.WithKeys("C")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		All:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
		None:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "none")),
		Reset:     key.NewBinding(key.WithKeys("r")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Detail:    key.NewBinding(key.WithKeys("d")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:    key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "cancel")),
	}
}

// dialogRow is one rendered line of the tree.
type dialogRow struct {
	node   *selection.Node
	prefix string
}

// DialogOption configures a SelectionDialogModel.
type DialogOption func(*SelectionDialogModel)

// WithOnConfirm registers a callback run with the selected IDs on confirm.
func WithOnConfirm(fn func(setID string, ids []string)) DialogOption {
	return func(m *SelectionDialogModel) {
		m.onConfirm = fn
	}
}

// WithExpandDepth expands every group shallower than depth on open.
func WithExpandDepth(depth int) DialogOption {
	return func(m *SelectionDialogModel) {
		m.expandDepth = depth
	}
}

// WithDetailPane toggles the case detail pane.
func WithDetailPane(show bool) DialogOption {
	return func(m *SelectionDialogModel) {
		m.showDetail = show
	}
}

// WithMarkdownRenderer sets the renderer used by the detail pane.
func WithMarkdownRenderer(r *MarkdownRenderer) DialogOption {
	return func(m *SelectionDialogModel) {
		m.renderer = r
	}
}

// SelectionDialogModel is the case confirmation dialog. Each dialog owns a
// tree built from its own copy of the case set.
type SelectionDialogModel struct {
	set   model.CaseSet
	tree  *selection.Tree
	cases map[string]model.TestCase

	expanded map[string]bool
	rows     []dialogRow
	cursor   int
	offset   int

	filter     textinput.Model
	filtering  bool
	visibility selection.Visibility

	showDetail  bool
	expandDepth int
	renderer    *MarkdownRenderer
	detail      viewport.Model

	keys      dialogKeyMap
	onConfirm func(setID string, ids []string)
	width     int
	height    int
	theme     Theme
	done      bool
}

// NewSelectionDialogModel builds a dialog over a private copy of cs.
func NewSelectionDialogModel(cs model.CaseSet, theme Theme, opts ...DialogOption) (SelectionDialogModel, error) {
	set := cs.Clone()
	tree, err := selection.NewFromCaseSet(set)
	if err != nil {
		return SelectionDialogModel{}, fmt.Errorf("building selection tree for %q: %w", cs.ID, err)
	}

	ti := textinput.New()
	ti.Placeholder = "filter by id or title..."
	ti.CharLimit = 80
	ti.Width = 30

	m := SelectionDialogModel{
		set:         set,
		tree:        tree,
		cases:       make(map[string]model.TestCase, set.CaseCount()),
		expanded:    make(map[string]bool),
		filter:      ti,
		showDetail:  true,
		expandDepth: 2,
		keys:        defaultDialogKeys(),
		theme:       theme,
		width:       80,
		height:      24,
	}
	for _, c := range set.Cases() {
		m.cases[c.ID] = c
	}
	for _, opt := range opts {
		opt(&m)
	}

	tree.Walk(func(n *selection.Node) bool {
		if !n.IsLeaf() && n.Depth() < m.expandDepth {
			m.expanded[n.ID()] = true
		}
		return true
	})

	m.detail = viewport.New(0, 0)
	m.rebuildRows()
	m.layout()
	return m, nil
}

// SetSize updates the dialog dimensions.
func (m *SelectionDialogModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.layout()
}

// Tree exposes the dialog's selection tree.
func (m SelectionDialogModel) Tree() *selection.Tree { return m.tree }

// SetID returns the ID of the case set under review.
func (m SelectionDialogModel) SetID() string { return m.set.ID }

// Done reports whether the dialog was confirmed or cancelled.
func (m SelectionDialogModel) Done() bool { return m.done }

// Filtering reports whether the filter input has focus.
func (m SelectionDialogModel) Filtering() bool { return m.filtering }

// FilterQuery returns the applied filter text.
func (m SelectionDialogModel) FilterQuery() string { return m.visibility.Query() }

// CursorID returns the node under the cursor, or "".
func (m SelectionDialogModel) CursorID() string {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return ""
	}
	return m.rows[m.cursor].node.ID()
}

// VisibleIDs lists the rendered node IDs in order.
func (m SelectionDialogModel) VisibleIDs() []string {
	ids := make([]string, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r.node.ID()
	}
	return ids
}

// IsExpanded reports whether a group row shows its children.
func (m SelectionDialogModel) IsExpanded(id string) bool {
	return m.expanded[id]
}

// Init has no startup command.
func (m SelectionDialogModel) Init() tea.Cmd {
	return nil
}

// Update handles a message and returns the updated dialog.
func (m SelectionDialogModel) Update(msg tea.Msg) (SelectionDialogModel, tea.Cmd) {
	if m.done {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKeys(msg)
		}
		return m.handleKeys(msg)
	}

	// Cursor blink ticks for the filter input.
	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m SelectionDialogModel) handleFilterKeys(msg tea.KeyMsg) (SelectionDialogModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.SetValue("")
		m.filter.Blur()
		m.filtering = false
		m.applyFilter()
		return m, nil
	case "enter":
		m.filter.Blur()
		m.filtering = false
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m SelectionDialogModel) handleKeys(msg tea.KeyMsg) (SelectionDialogModel, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Top):
		m.cursor = 0
		m.syncDetail()
	case key.Matches(msg, k.Bottom):
		m.cursor = len(m.rows) - 1
		m.syncDetail()
	case key.Matches(msg, k.Expand):
		m.expandCursor()
	case key.Matches(msg, k.Collapse):
		m.collapseCursor()
	case key.Matches(msg, k.ExpandAll):
		m.ExpandAll()
	case key.Matches(msg, k.FoldAll):
		m.CollapseAll()
	case key.Matches(msg, k.Toggle):
		if id := m.CursorID(); id != "" {
			m.tree.Toggle(id)
			m.syncDetail()
		}
	case key.Matches(msg, k.All):
		m.tree.SetAllSelected(true)
		m.syncDetail()
	case key.Matches(msg, k.None):
		m.tree.SetAllSelected(false)
		m.syncDetail()
	case key.Matches(msg, k.Reset):
		m.tree.Reset()
		m.syncDetail()
	case key.Matches(msg, k.Filter):
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink
	case key.Matches(msg, k.Detail):
		m.showDetail = !m.showDetail
		m.layout()
	case key.Matches(msg, k.Confirm):
		return m.Confirm()
	case key.Matches(msg, k.Cancel):
		if m.visibility.Active() && msg.String() == "esc" {
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		}
		return m.Cancel()
	}
	m.ensureCursorVisible()
	return m, nil
}

// Confirm closes the dialog and hands the selected IDs to the caller.
func (m SelectionDialogModel) Confirm() (SelectionDialogModel, tea.Cmd) {
	ids := m.tree.SelectedLeafIDs()
	m.done = true
	debug.Log("dialog %s: confirmed %d of %d cases", m.set.ID, len(ids), m.tree.LeafCount())
	if m.onConfirm != nil {
		m.onConfirm(m.set.ID, ids)
	}
	setID := m.set.ID
	return m, func() tea.Msg {
		return SelectionConfirmedMsg{SetID: setID, IDs: ids}
	}
}

// Cancel closes the dialog without reporting a selection.
func (m SelectionDialogModel) Cancel() (SelectionDialogModel, tea.Cmd) {
	m.done = true
	setID := m.set.ID
	return m, func() tea.Msg {
		return SelectionCancelledMsg{SetID: setID}
	}
}

// ExpandAll opens every group.
func (m *SelectionDialogModel) ExpandAll() {
	m.tree.Walk(func(n *selection.Node) bool {
		if !n.IsLeaf() {
			m.expanded[n.ID()] = true
		}
		return true
	})
	m.rebuildRows()
}

// CollapseAll folds every group.
func (m *SelectionDialogModel) CollapseAll() {
	m.expanded = make(map[string]bool)
	m.rebuildRows()
}

func (m *SelectionDialogModel) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	m.syncDetail()
}

func (m *SelectionDialogModel) expandCursor() {
	if m.cursor >= len(m.rows) {
		return
	}
	n := m.rows[m.cursor].node
	if n.IsLeaf() {
		return
	}
	if m.expanded[n.ID()] && n.ChildCount() > 0 {
		m.moveCursor(1)
		return
	}
	m.expanded[n.ID()] = true
	m.rebuildRows()
}

func (m *SelectionDialogModel) collapseCursor() {
	if m.cursor >= len(m.rows) {
		return
	}
	n := m.rows[m.cursor].node
	if !n.IsLeaf() && m.expanded[n.ID()] {
		delete(m.expanded, n.ID())
		m.rebuildRows()
		return
	}
	if p := n.Parent(); p != nil && !p.IsRoot() {
		m.focusID(p.ID())
	}
}

func (m *SelectionDialogModel) focusID(id string) {
	for i, r := range m.rows {
		if r.node.ID() == id {
			m.cursor = i
			m.syncDetail()
			return
		}
	}
}

func (m *SelectionDialogModel) applyFilter() {
	cur := m.CursorID()
	m.visibility = m.tree.Filter(m.filter.Value())
	m.rebuildRows()
	if cur != "" {
		m.focusID(cur)
	}
}

// rebuildRows flattens the visible part of the tree. An active filter
// shows every matching path regardless of the fold state.
func (m *SelectionDialogModel) rebuildRows() {
	m.rows = nil
	var walk func(nodes []*selection.Node, ancestorsLast []bool)
	walk = func(nodes []*selection.Node, ancestorsLast []bool) {
		var shown []*selection.Node
		for _, n := range nodes {
			if m.visibility.Visible(n.ID()) {
				shown = append(shown, n)
			}
		}
		for i, n := range shown {
			isLast := i == len(shown)-1
			m.rows = append(m.rows, dialogRow{
				node:   n,
				prefix: buildTreePrefix(ancestorsLast, isLast, n.Depth()),
			})
			if n.IsLeaf() {
				continue
			}
			if m.expanded[n.ID()] || m.visibility.Active() {
				next := ancestorsLast
				if n.Depth() > 0 {
					next = append(append([]bool(nil), ancestorsLast...), isLast)
				}
				walk(n.Children(), next)
			}
		}
	}
	walk(m.tree.Roots(), nil)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
	m.syncDetail()
}

func (m *SelectionDialogModel) listHeight() int {
	// border, padding, title, filter, blank, footer lines
	h := m.height - 10
	if h < 3 {
		h = 3
	}
	return h
}

func (m *SelectionDialogModel) ensureCursorVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *SelectionDialogModel) splitView() bool {
	return m.showDetail && m.width >= DialogSplitThreshold
}

func (m *SelectionDialogModel) boxWidth() int {
	w := m.width - 4
	if w < minTreeWidth+6 {
		w = minTreeWidth + 6
	}
	return w
}

func (m *SelectionDialogModel) treeWidth() int {
	inner := m.boxWidth() - 6
	if m.splitView() {
		return inner * 55 / 100
	}
	return inner
}

func (m *SelectionDialogModel) layout() {
	if !m.splitView() {
		return
	}
	dw := m.boxWidth() - 6 - m.treeWidth() - 3
	m.detail.Width = dw
	m.detail.Height = m.listHeight()
	if m.renderer != nil {
		m.renderer.SetWidth(dw - 2)
	}
	m.syncDetail()
}

func (m *SelectionDialogModel) syncDetail() {
	if !m.splitView() {
		return
	}
	id := m.CursorID()
	if id == "" {
		m.detail.SetContent("")
		return
	}
	var md string
	if c, ok := m.cases[id]; ok {
		md = CaseMarkdown(c)
	} else {
		n, _ := m.tree.Node(id)
		sel, total, _ := m.tree.Counts(id)
		md = GroupMarkdown(n.Label(), sel, total)
	}
	out := md
	if m.renderer != nil {
		rendered, err := m.renderer.Render(md)
		if err != nil {
			debug.Log("dialog: rendering detail for %s: %v", id, err)
		}
		out = rendered
	}
	m.detail.SetContent(out)
	m.detail.GotoTop()
}

func (m SelectionDialogModel) renderRow(i int, width int) string {
	t := m.theme
	r := m.rows[i]
	n := r.node

	indicator := "  "
	if !n.IsLeaf() {
		if m.expanded[n.ID()] || m.visibility.Active() {
			indicator = "▾ "
		} else {
			indicator = "▸ "
		}
	}

	label := n.Label()
	if label == "" {
		label = n.ID()
	}
	suffix := ""
	if n.IsLeaf() {
		if c, ok := m.cases[n.ID()]; ok && c.Priority != "" {
			suffix = " " + string(c.Priority)
		}
	} else {
		sel, total, _ := m.tree.Counts(n.ID())
		suffix = fmt.Sprintf(" (%d/%d)", sel, total)
	}

	fixed := r.prefix + indicator + "[x] "
	avail := width - lipgloss.Width(fixed) - lipgloss.Width(suffix)
	label = truncate(label, avail)

	box := t.Checkbox(m.tree.State(n.ID()))
	text := label
	if i == m.cursor {
		text = t.Selected.Render(label)
	} else if m.visibility.Active() && matchesQuery(n, m.visibility.Query()) {
		text = t.Match.Render(label)
	}

	return t.MutedText.Render(r.prefix) + indicator + box + " " + text + t.MutedText.Render(suffix)
}

func matchesQuery(n *selection.Node, q string) bool {
	return strings.Contains(strings.ToLower(n.ID()), q) ||
		strings.Contains(strings.ToLower(n.Label()), q)
}

// View renders the dialog centered in its viewport.
func (m SelectionDialogModel) View() string {
	defer metrics.Timer(metrics.UIRender)()

	t := m.theme
	boxWidth := m.boxWidth()
	treeWidth := m.treeWidth()

	var lines []string

	title := m.set.Title
	if title == "" {
		title = m.set.ID
	}
	titleStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	lines = append(lines, titleStyle.Render(truncate("Confirm cases: "+title, boxWidth-6)))

	if m.filtering || m.visibility.Active() {
		inputStyle := t.Renderer.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(t.Secondary).
			Padding(0, 1).
			Width(treeWidth - 4)
		lines = append(lines, inputStyle.Render(m.filter.View()))
	} else {
		lines = append(lines, "")
	}

	var treeLines []string
	if len(m.rows) == 0 {
		dimStyle := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
		if m.visibility.Active() {
			treeLines = append(treeLines, dimStyle.Render("  No matching cases"))
		} else {
			treeLines = append(treeLines, dimStyle.Render("  No cases in this set"))
		}
	} else {
		end := m.offset + m.listHeight()
		if end > len(m.rows) {
			end = len(m.rows)
		}
		for i := m.offset; i < end; i++ {
			treeLines = append(treeLines, m.renderRow(i, treeWidth))
		}
	}
	treeBlock := t.Renderer.NewStyle().Width(treeWidth).Render(strings.Join(treeLines, "\n"))

	if m.splitView() {
		detailStyle := t.Renderer.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Border).
			PaddingLeft(1)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, treeBlock, "  ", detailStyle.Render(m.detail.View())))
	} else {
		lines = append(lines, treeBlock)
	}

	lines = append(lines, "")
	sel, total, _ := m.tree.Counts(selection.RootID)
	countStyle := t.Renderer.NewStyle().Foreground(t.Base.GetForeground()).Bold(true)
	counts := countStyle.Render(fmt.Sprintf("%d/%d selected", sel, total))
	if m.visibility.Active() {
		counts += t.MutedText.Render(fmt.Sprintf("  %d match(es)", m.visibility.Matches()))
	}
	if m.tree.Dirty() {
		counts += t.MutedText.Render("  (modified)")
	}
	lines = append(lines, counts)

	footerStyle := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
	footer := "j/k: move | h/l: fold | space: toggle | a/n: all/none | /: filter | enter: confirm | esc: cancel"
	if m.filtering {
		footer = "type to filter | enter: keep | esc: clear"
	}
	lines = append(lines, footerStyle.Render(truncate(footer, boxWidth-6)))

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(strings.Join(lines, "\n")),
	)
}
