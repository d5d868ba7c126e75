package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/casepick/pkg/config"
	"github.com/vanderheijden86/casepick/pkg/debug"
	"github.com/vanderheijden86/casepick/pkg/export"
	"github.com/vanderheijden86/casepick/pkg/hooks"
	"github.com/vanderheijden86/casepick/pkg/loader"
	"github.com/vanderheijden86/casepick/pkg/metrics"
	"github.com/vanderheijden86/casepick/pkg/model"
	"github.com/vanderheijden86/casepick/pkg/selection"
	_ "github.com/vanderheijden86/casepick/pkg/ttyguard"
	"github.com/vanderheijden86/casepick/pkg/ui"
	"github.com/vanderheijden86/casepick/pkg/version"
	"github.com/vanderheijden86/casepick/pkg/watcher"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred profile and metrics writers finish
// before the process exits.
func run() int {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dirFlag := flag.String("dir", "", "Directory of case files (default: $CASEPICK_DIR or ./.casepick)")
	sourceFlag := flag.String("source", "", "Named case source from the config file")
	setFlag := flag.String("set", "", "Case set to open (default: first set)")
	sampleFlag := flag.Bool("sample", false, "Use the built-in sample case sets")
	robotFlag := flag.Bool("robot", false, "Non-interactive: apply --select/--deselect and print the result")
	selectFlag := flag.String("select", "", "Comma-separated case or group IDs to select (robot mode)")
	deselectFlag := flag.String("deselect", "", "Comma-separated case or group IDs to deselect (robot mode)")
	onlyFlag := flag.Bool("only", false, "Start from an empty selection instead of the set's defaults (robot mode)")
	formatFlag := flag.String("format", "", "Output format: json, text, markdown (default from config)")
	snapshotFlag := flag.String("snapshot", "", "Write a selection snapshot image (.svg or .png)")
	yesFlag := flag.Bool("yes", false, "Overwrite existing snapshot files without asking")
	metricsFlag := flag.Bool("metrics", false, "Print timing metrics to stderr on exit")
	noHooksFlag := flag.Bool("no-hooks", false, "Skip hooks from the case directory's "+hooks.FileName)
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: casepick [options]")
		fmt.Println("\nReview generated test cases and confirm which ones to keep.")
		flag.PrintDefaults()
		return 0
	}

	if *versionFlag {
		fmt.Printf("casepick %s\n", version.Version)
		return 0
	}

	if *metricsFlag {
		metrics.SetEnabled(true)
		defer func() {
			if err := metrics.WriteJSON(os.Stderr); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
			}
		}()
	}

	appCfg, cfgErr := config.Load()
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring config: %v\n", cfgErr)
		appCfg = config.DefaultConfig()
	}

	format, err := export.ParseFormat(firstNonEmpty(*formatFlag, appCfg.Export.Format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	dir, err := resolveCasesDir(appCfg, *dirFlag, *sourceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var sets []model.CaseSet
	if *sampleFlag {
		sets = loader.SampleSets()
	} else {
		loaded, results, err := loader.LoadDir(context.Background(), dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading cases: %v\n", err)
			fmt.Fprintln(os.Stderr, "Point --dir at a directory of case files, or try --sample.")
			return 1
		}
		for _, f := range loader.Failures(results) {
			fmt.Fprintf(os.Stderr, "Warning: skipped %s: %v\n", f.Path, f.Err)
		}
		sets = loaded
	}

	if len(sets) == 0 {
		fmt.Printf("No case sets found in %s.\n", dir)
		return 0
	}

	var hookCfg *hooks.Config
	if !*noHooksFlag && !*sampleFlag {
		hl, err := hooks.LoadDir(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: hooks disabled: %v\n", err)
		} else {
			for _, w := range hl.Warnings() {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
			}
			hookCfg = hl.Config()
		}
	}

	if *robotFlag {
		cs, err := findSet(sets, *setFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		opts := robotOptions{
			Select:   splitIDs(*selectFlag),
			Deselect: splitIDs(*deselectFlag),
			Only:     *onlyFlag,
			Format:   format,
			Snapshot: *snapshotFlag,
			Confirm:  export.ConfirmOverwrite,
			Hooks:    hookCfg,
		}
		if *yesFlag {
			opts.Confirm = nil
		}
		if err := runRobot(os.Stdout, cs, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	m := ui.NewModel(sets, appCfg).WithHooks(hookCfg)
	if *setFlag != "" {
		if _, err := findSet(sets, *setFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		m = m.OpenSet(*setFlag)
	}

	if !*sampleFlag && appCfg.WatchEnabled() {
		w, err := watcher.NewWatcher(dir,
			watcher.WithFilter(loader.IsCaseFile),
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: live reload disabled: %v\n", err)
		} else {
			defer w.Stop()
			m = m.WithWatcher(w, dir)
		}
	}

	final, err := runTUIProgram(m)
	if err != nil {
		fmt.Printf("Error running casepick: %v\n", err)
		return 1
	}
	printConfirmed(os.Stdout, final, format)
	return 0
}

// resolveCasesDir picks the case directory: --dir, then a named source,
// then the config file, then the environment default.
func resolveCasesDir(cfg config.Config, dir, source string) (string, error) {
	if dir != "" {
		return loader.GetCasesDir(dir)
	}
	if source != "" {
		s := cfg.FindSource(source)
		if s == nil {
			return "", fmt.Errorf("unknown source %q", source)
		}
		return loader.GetCasesDir(s.ResolvedPath())
	}
	return loader.GetCasesDir(cfg.CasesDir)
}

func findSet(sets []model.CaseSet, id string) (model.CaseSet, error) {
	if id == "" {
		return sets[0], nil
	}
	for _, cs := range sets {
		if strings.EqualFold(cs.ID, id) {
			return cs, nil
		}
	}
	ids := make([]string, len(sets))
	for i, cs := range sets {
		ids[i] = cs.ID
	}
	return model.CaseSet{}, fmt.Errorf("no case set %q (available: %s)", id, strings.Join(ids, ", "))
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type robotOptions struct {
	Select   []string
	Deselect []string
	Only     bool
	Format   export.Format
	Snapshot string
	// Confirm is asked before an existing snapshot is replaced. Nil
	// overwrites silently.
	Confirm  func(path string) (bool, error)
	Hooks    *hooks.Config
}

// runRobot applies the requested selection changes to cs and writes the
// confirmed IDs to w.
func runRobot(w io.Writer, cs model.CaseSet, opts robotOptions) error {
	tr, err := selection.NewFromCaseSet(cs)
	if err != nil {
		return fmt.Errorf("case set %s: %w", cs.ID, err)
	}
	if opts.Only {
		tr.SetAllSelected(false)
	}
	for _, id := range opts.Deselect {
		if !applyID(tr, id, false) {
			return fmt.Errorf("unknown id %q in --deselect", id)
		}
	}
	for _, id := range opts.Select {
		if !applyID(tr, id, true) {
			return fmt.Errorf("unknown id %q in --select", id)
		}
	}

	if opts.Snapshot != "" {
		write := true
		if opts.Confirm != nil {
			if write, err = opts.Confirm(opts.Snapshot); err != nil {
				return err
			}
		}
		if write {
			if err := export.SaveSelectionSnapshot(export.SnapshotOptions{
				Path:  opts.Snapshot,
				Title: cs.Title,
				Tree:  tr,
			}); err != nil {
				return err
			}
		}
	}

	r := export.NewResult(cs, tr.SelectedLeafIDs())
	if err := export.WriteIDs(w, opts.Format, r); err != nil {
		return err
	}

	exec, err := hooks.RunPhase(opts.Hooks, hooks.PostConfirm, hooks.SelectionContext{
		SetID:     r.SetID,
		Selected:  r.IDs,
		Total:     r.Total,
		Timestamp: r.ConfirmedAt,
	})
	if exec != nil && exec.Failed() {
		fmt.Fprintln(os.Stderr, exec.Summary())
	}
	return err
}

// applyID sets a leaf, a group, or every case when id is the root.
func applyID(tr *selection.Tree, id string, v bool) bool {
	if id == selection.RootID || strings.EqualFold(id, "all") {
		tr.SetAllSelected(v)
		return true
	}
	return tr.SetGroupSelected(id, v)
}

// printConfirmed reports what was confirmed during the session so shell
// pipelines can consume it after the alt screen closes.
func printConfirmed(w io.Writer, m ui.Model, format export.Format) {
	for _, cs := range m.Sets() {
		ids, ok := m.Confirmed(cs.ID)
		if !ok {
			continue
		}
		if err := export.WriteIDs(w, format, export.NewResult(cs, ids)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", cs.ID, err)
		}
	}
}

func runTUIProgram(m ui.Model) (ui.Model, error) {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CASEPICK_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CASEPICK_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	final, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		err = nil
	}
	if fm, ok := final.(ui.Model); ok {
		return fm, err
	}
	return m, err
}
