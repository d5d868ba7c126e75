package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casepick/pkg/config"
	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/export"
	"github.com/vanderheijden86/casepick/pkg/hooks"
	"github.com/vanderheijden86/casepick/pkg/loader"
	"github.com/vanderheijden86/casepick/pkg/model"
	"github.com/vanderheijden86/casepick/pkg/watcher"
)

// focus represents which UI element has keyboard focus
type focus int

const (
	focusList focus = iota
	focusDialog
	focusHelp
)

// FileChangedMsg is sent when a case file changes on disk
type FileChangedMsg struct{}

// CasesReloadedMsg carries the result of re-reading the case directory.
type CasesReloadedMsg struct {
	Sets     []model.CaseSet
	Failures []loader.LoadResult
	Err      error
}

// ExportFinishedMsg reports the outcome of an export, hooks included.
type ExportFinishedMsg struct {
	SetID       string
	Path        string
	HookSummary string
	Err         error
}

// HooksFinishedMsg reports post-confirm hook runs.
type HooksFinishedMsg struct {
	SetID   string
	Summary string
	Failed  bool
	Err     error
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCasesCmd re-reads every case file in dir.
func ReloadCasesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		sets, results, err := loader.LoadDir(context.Background(), dir)
		return CasesReloadedMsg{Sets: sets, Failures: loader.Failures(results), Err: err}
	}
}

// Model is the top-level casepick application: a list of case sets, each
// of which opens a selection dialog.
type Model struct {
	sets   []model.CaseSet
	cursor int

	dialog    SelectionDialogModel
	focused   focus
	confirmed map[string][]string

	cfg       config.Config
	casesDir  string
	watcher   *watcher.Watcher
	hooks     *hooks.Config
	renderer  *MarkdownRenderer
	onConfirm func(setID string, ids []string)
	copyFn    func(string) error

	statusMsg     string
	statusIsError bool
	width         int
	height        int
	theme         Theme
}

// NewModel creates the application over already loaded case sets.
func NewModel(sets []model.CaseSet, cfg config.Config) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	return Model{
		sets:      sets,
		confirmed: make(map[string][]string),
		cfg:       cfg,
		renderer:  NewMarkdownRenderer(60, ""),
		copyFn:    clipboard.WriteAll,
		theme:     theme,
		width:     80,
		height:    24,
	}
}

// WithWatcher enables live reload of dir.
func (m Model) WithWatcher(w *watcher.Watcher, dir string) Model {
	m.watcher = w
	m.casesDir = dir
	return m
}

// WithHooks runs cfg's hooks on confirm and export.
func (m Model) WithHooks(cfg *hooks.Config) Model {
	m.hooks = cfg
	return m
}

// WithTheme replaces the theme.
func (m Model) WithTheme(t Theme) Model {
	m.theme = t
	return m
}

// WithOnConfirm registers a callback for every confirmed dialog.
func (m Model) WithOnConfirm(fn func(setID string, ids []string)) Model {
	m.onConfirm = fn
	return m
}

// Init starts the file watcher loop when one is attached.
func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.focused == focusDialog {
			m.dialog.SetSize(msg.Width, msg.Height-1)
		}
		return m, nil

	case FileChangedMsg:
		if m.casesDir != "" {
			cmds = append(cmds, ReloadCasesCmd(m.casesDir))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case CasesReloadedMsg:
		m.applyReload(msg)
		return m, nil

	case SelectionConfirmedMsg:
		m.recordConfirmation(msg)
		m.focused = focusList
		return m, m.postConfirmCmd(msg)

	case HooksFinishedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Confirmed, but a hook failed: %v", msg.Err), true)
		} else if msg.Failed {
			m.setStatus("Confirmed ("+firstLine(msg.Summary)+")", true)
		} else if msg.Summary != "" {
			debug.Log("post-confirm %s: %s", msg.SetID, msg.Summary)
		}
		return m, nil

	case ExportFinishedMsg:
		switch {
		case msg.Err != nil:
			m.setStatus(fmt.Sprintf("Export failed: %v", msg.Err), true)
		case msg.HookSummary != "":
			m.setStatus(fmt.Sprintf("Exported to %s (%s)", msg.Path, firstLine(msg.HookSummary)), false)
		default:
			m.setStatus("Exported to "+msg.Path, false)
		}
		return m, nil

	case SelectionCancelledMsg:
		m.focused = focusList
		m.setStatus("Cancelled, nothing changed", false)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focused {
		case focusDialog:
			var cmd tea.Cmd
			m.dialog, cmd = m.dialog.Update(msg)
			return m, cmd
		case focusHelp:
			m.focused = focusList
			return m, nil
		default:
			return m.handleListKeys(msg)
		}
	}

	if m.focused == focusDialog {
		var cmd tea.Cmd
		m.dialog, cmd = m.dialog.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.sets)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter", "o":
		m.openDialog()
	case "y":
		m.copySelection()
	case "e":
		return m, m.exportCmd()
	case "?":
		m.focused = focusHelp
	}
	return m, nil
}

// OpenSet moves the cursor to the set with id and opens its dialog.
// Unknown ids leave the model on the list.
func (m Model) OpenSet(id string) Model {
	for i, cs := range m.sets {
		if strings.EqualFold(cs.ID, id) {
			m.cursor = i
			m.openDialog()
			break
		}
	}
	return m
}

// openDialog builds a fresh dialog for the set under the cursor.
func (m *Model) openDialog() {
	cs := m.CurrentSet()
	if cs == nil {
		return
	}
	d, err := NewSelectionDialogModel(*cs, m.theme,
		WithExpandDepth(m.cfg.UI.ExpandDepth),
		WithDetailPane(m.cfg.UI.ShowDetail),
		WithMarkdownRenderer(m.renderer),
		WithOnConfirm(m.onConfirm),
	)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	d.SetSize(m.width, m.height-1)
	m.dialog = d
	m.focused = focusDialog
	m.statusMsg = ""
}

// recordConfirmation stores the confirmed IDs and marks them selected in
// the in-memory set, so reopening the dialog starts from this choice.
func (m *Model) recordConfirmation(msg SelectionConfirmedMsg) {
	m.confirmed[msg.SetID] = msg.IDs
	for i := range m.sets {
		if m.sets[i].ID != msg.SetID {
			continue
		}
		chosen := make(map[string]bool, len(msg.IDs))
		for _, id := range msg.IDs {
			chosen[id] = true
		}
		applySelection(&m.sets[i], chosen)
		m.setStatus(fmt.Sprintf("Confirmed %d of %d cases in %s", len(msg.IDs), m.sets[i].CaseCount(), msg.SetID), false)
		return
	}
	m.setStatus(fmt.Sprintf("Confirmed %d cases in %s", len(msg.IDs), msg.SetID), false)
}

func applySelection(cs *model.CaseSet, chosen map[string]bool) {
	mark := func(cases []model.TestCase) {
		for i := range cases {
			cases[i].Selected = chosen[cases[i].ID]
		}
	}
	for d := range cs.Dimensions {
		for p := range cs.Dimensions[d].Points {
			mark(cs.Dimensions[d].Points[p].Cases)
		}
	}
	for g := range cs.Groups {
		mark(cs.Groups[g].Cases)
	}
}

// applyReload swaps in freshly loaded sets. An open dialog keeps its own
// tree; the reload is only visible once it closes.
func (m *Model) applyReload(msg CasesReloadedMsg) {
	if msg.Err != nil {
		m.setStatus("Reload failed: "+msg.Err.Error(), true)
		return
	}

	var currentID string
	if cs := m.CurrentSet(); cs != nil {
		currentID = cs.ID
	}

	m.sets = msg.Sets
	m.cursor = 0
	for i, cs := range m.sets {
		if cs.ID == currentID {
			m.cursor = i
		}
		if ids, ok := m.confirmed[cs.ID]; ok {
			chosen := make(map[string]bool, len(ids))
			for _, id := range ids {
				chosen[id] = true
			}
			applySelection(&m.sets[i], chosen)
		}
	}

	if len(msg.Failures) > 0 {
		for _, f := range msg.Failures {
			debug.Log("reload: %s: %v", f.Path, f.Err)
		}
		m.setStatus(fmt.Sprintf("Reloaded %d case sets, %d file(s) failed", len(m.sets), len(msg.Failures)), true)
		return
	}
	m.setStatus(fmt.Sprintf("Reloaded %d case sets", len(m.sets)), false)
}

func (m *Model) copySelection() {
	cs := m.CurrentSet()
	if cs == nil {
		return
	}
	ids, ok := m.confirmed[cs.ID]
	if !ok {
		m.setStatus("Nothing confirmed yet for "+cs.ID, true)
		return
	}
	if err := m.copyFn(strings.Join(ids, "\n")); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 Copied %d IDs to clipboard", len(ids)), false)
}

// exportCmd writes the confirmed IDs of the current set in the background,
// wrapped in any pre- and post-export hooks.
func (m *Model) exportCmd() tea.Cmd {
	cs := m.CurrentSet()
	if cs == nil {
		return nil
	}
	ids, ok := m.confirmed[cs.ID]
	if !ok {
		m.setStatus("Nothing confirmed yet for "+cs.ID, true)
		return nil
	}
	format, err := export.ParseFormat(m.cfg.Export.Format)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	dir := m.cfg.Export.Dir
	if dir == "" {
		dir = filepath.Join(config.StateDir(), "exports")
	}
	r := export.NewResult(*cs, ids)
	path := export.DefaultPath(dir, format, r)
	hookCfg := m.hooks
	m.setStatus("Exporting...", false)

	return func() tea.Msg {
		done := ExportFinishedMsg{SetID: r.SetID, Path: path}
		exec := hooks.NewExecutor(hookCfg, hooks.SelectionContext{
			SetID:        r.SetID,
			Selected:     r.IDs,
			Total:        r.Total,
			ExportPath:   path,
			ExportFormat: string(format),
			Timestamp:    r.ConfirmedAt,
		})
		if err := exec.RunPreExport(); err != nil {
			done.Err = err
			return done
		}
		if err := export.WriteIDsFile(path, format, r); err != nil {
			done.Err = err
			return done
		}
		if err := exec.RunPostExport(); err != nil {
			debug.Log("post-export %s: %v", r.SetID, err)
		}
		done.HookSummary = exec.Summary()
		return done
	}
}

// postConfirmCmd runs post-confirm hooks for msg, if any are configured.
func (m Model) postConfirmCmd(msg SelectionConfirmedMsg) tea.Cmd {
	if len(m.hooks.Phase(hooks.PostConfirm)) == 0 {
		return nil
	}
	total := 0
	for i := range m.sets {
		if m.sets[i].ID == msg.SetID {
			total = m.sets[i].CaseCount()
		}
	}
	ctx := hooks.SelectionContext{SetID: msg.SetID, Selected: msg.IDs, Total: total, Timestamp: time.Now()}
	hookCfg := m.hooks
	return func() tea.Msg {
		exec, err := hooks.RunPhase(hookCfg, hooks.PostConfirm, ctx)
		return HooksFinishedMsg{SetID: msg.SetID, Summary: exec.Summary(), Failed: exec.Failed(), Err: err}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (m *Model) setStatus(s string, isErr bool) {
	m.statusMsg = s
	m.statusIsError = isErr
}

// CurrentSet returns the set under the cursor, or nil.
func (m Model) CurrentSet() *model.CaseSet {
	if m.cursor < 0 || m.cursor >= len(m.sets) {
		return nil
	}
	return &m.sets[m.cursor]
}

// Sets returns the loaded case sets.
func (m Model) Sets() []model.CaseSet { return m.sets }

// Confirmed returns the last confirmed IDs for a set.
func (m Model) Confirmed(setID string) ([]string, bool) {
	ids, ok := m.confirmed[setID]
	return ids, ok
}

// DialogOpen reports whether a selection dialog has focus.
func (m Model) DialogOpen() bool { return m.focused == focusDialog }

// Dialog returns the open dialog.
func (m Model) Dialog() SelectionDialogModel { return m.dialog }

// StatusMessage returns the footer status text.
func (m Model) StatusMessage() string { return m.statusMsg }

// View implements tea.Model.
func (m Model) View() string {
	switch m.focused {
	case focusDialog:
		return lipgloss.JoinVertical(lipgloss.Left, m.dialog.View(), m.renderFooter())
	case focusHelp:
		return m.renderHelpOverlay()
	}

	t := m.theme
	var lines []string
	lines = append(lines, t.Header.Render("casepick"))
	lines = append(lines, "")

	if len(m.sets) == 0 {
		lines = append(lines, t.MutedText.Render("  No case sets found"))
	}
	for i, cs := range m.sets {
		lines = append(lines, m.renderSetLine(i, cs))
	}

	body := strings.Join(lines, "\n")
	bodyHeight := m.height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body = t.Renderer.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) renderSetLine(i int, cs model.CaseSet) string {
	t := m.theme
	selected := 0
	for _, c := range cs.Cases() {
		if c.Selected {
			selected++
		}
	}

	title := cs.Title
	if title == "" {
		title = cs.ID
	}
	marker := "  "
	if i == m.cursor {
		marker = t.PrimaryBold.Render("▸ ")
	}

	meta := fmt.Sprintf("%d/%d  %s", selected, cs.CaseCount(), cs.Layout)
	if ids, ok := m.confirmed[cs.ID]; ok {
		meta += fmt.Sprintf("  ✓ %d confirmed", len(ids))
	}

	avail := m.width - 4 - lipgloss.Width(meta) - 2
	line := padRight(truncate(title, avail), avail)
	if i == m.cursor {
		line = t.Selected.Render(line)
	}
	return marker + line + "  " + t.SecondaryText.Render(meta)
}

func (m Model) renderFooter() string {
	t := m.theme
	if m.statusMsg != "" {
		style := t.Renderer.NewStyle().Foreground(t.Checked)
		if m.statusIsError {
			style = style.Foreground(t.Danger)
		}
		return style.Render(truncate(m.statusMsg, m.width))
	}
	if m.focused == focusDialog {
		return ""
	}
	return t.MutedText.Render(truncate("j/k: move | enter: review | y: copy | e: export | ?: help | q: quit", m.width))
}

func (m Model) renderHelpOverlay() string {
	t := m.theme
	keys := [][2]string{
		{"j/k", "Move between case sets"},
		{"enter", "Review and confirm cases"},
		{"y", "Copy confirmed IDs"},
		{"e", "Export confirmed IDs"},
		{"space", "Toggle case or group (dialog)"},
		{"a / n", "Select all / none (dialog)"},
		{"h / l", "Collapse / expand (dialog)"},
		{"/", "Filter (dialog)"},
		{"esc", "Cancel dialog"},
	}
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render("Keyboard shortcuts") + "\n\n")
	for _, k := range keys {
		sb.WriteString(t.PrimaryBold.Render(padRight(k[0], 8)) + " " + k[1] + "\n")
	}
	sb.WriteString("\n" + t.MutedText.Render("press any key to close"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 3).
		Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
