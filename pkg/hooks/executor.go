package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/casepick/pkg/debug"
)

// HookResult records one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Error    error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs configured hooks for one selection.
type Executor struct {
	config  *Config
	context SelectionContext
	results []HookResult
}

// NewExecutor creates an executor for config and ctx.
func NewExecutor(config *Config, ctx SelectionContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// RunPostConfirm runs every post-confirm hook.
func (e *Executor) RunPostConfirm() error {
	return e.runAll(PostConfirm)
}

// RunPreExport runs pre-export hooks, stopping at the first failure whose
// on_error is "fail".
func (e *Executor) RunPreExport() error {
	for _, hook := range e.config.Hooks.PreExport {
		res := e.run(hook, PreExport)
		if !res.Success && hook.OnError == "fail" {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook.
func (e *Executor) RunPostExport() error {
	return e.runAll(PostExport)
}

// runAll runs every hook of phase even after failures and reports the
// first failure of a hook marked on_error: fail.
func (e *Executor) runAll(phase HookPhase) error {
	var firstErr error
	for _, hook := range e.config.Phase(phase) {
		res := e.run(hook, phase)
		if !res.Success && hook.OnError == "fail" && firstErr == nil {
			firstErr = fmt.Errorf("%s hook %q failed: %w", phase, hook.Name, res.Error)
		}
	}
	return firstErr
}

func (e *Executor) run(hook Hook, phase HookPhase) HookResult {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", hook.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", hook.Command)
	}
	cmd.WaitDelay = 500 * time.Millisecond

	env := append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		env = append(env, k+"="+os.ExpandEnv(v))
	}
	cmd.Env = env

	if len(e.context.Selected) > 0 {
		cmd.Stdin = strings.NewReader(strings.Join(e.context.Selected, "\n") + "\n")
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := HookResult{
		Hook:     hook,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v", timeout)
		}
		res.Error = err
	}
	debug.Log("hook %s (%s): success=%v in %v", hook.Name, phase, res.Success, res.Duration)

	e.results = append(e.results, res)
	return res
}

// Results returns every hook run so far, in order.
func (e *Executor) Results() []HookResult {
	if e == nil {
		return nil
	}
	return e.results
}

// Failed reports whether any hook run failed.
func (e *Executor) Failed() bool {
	if e == nil {
		return false
	}
	for _, r := range e.results {
		if !r.Success {
			return true
		}
	}
	return false
}

// Summary describes the runs in a few lines, with failing hooks' stderr
// truncated.
func (e *Executor) Summary() string {
	if e == nil || len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	for _, r := range e.results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hooks: %d succeeded, %d failed", ok, failed)
	for _, r := range e.results {
		if r.Success {
			continue
		}
		fmt.Fprintf(&sb, "\n  ✗ %s (%s): %v", r.Hook.Name, r.Phase, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "\n    stderr: %s", truncate(r.Stderr, 200))
		}
	}
	return sb.String()
}

// truncate shortens s to max terminal cells, cutting on rune boundaries.
func truncate(s string, max int) string {
	if max <= 3 {
		return runewidth.Truncate(s, max, "")
	}
	return runewidth.Truncate(s, max, "...")
}

// RunPhase runs the hooks cfg configures for phase. It returns a nil
// executor when none are configured.
func RunPhase(cfg *Config, phase HookPhase, ctx SelectionContext) (*Executor, error) {
	if len(cfg.Phase(phase)) == 0 {
		return nil, nil
	}
	e := NewExecutor(cfg, ctx)
	switch phase {
	case PreExport:
		return e, e.RunPreExport()
	default:
		return e, e.runAll(phase)
	}
}
