package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", FileName, err)
	}
}

func testContext() SelectionContext {
	return SelectionContext{
		SetID:     "login",
		Selected:  []string{"c1", "c3"},
		Total:     5,
		Timestamp: time.Date(2026, 4, 27, 10, 30, 0, 0, time.UTC),
	}
}

func TestSelectionContextToEnv(t *testing.T) {
	ctx := testContext()
	ctx.ExportPath = "/tmp/login-selection.json"
	ctx.ExportFormat = "json"

	want := map[string]bool{
		"CASEPICK_SET_ID=login":                          true,
		"CASEPICK_SELECTED_COUNT=2":                      true,
		"CASEPICK_TOTAL_COUNT=5":                         true,
		"CASEPICK_EXPORT_PATH=/tmp/login-selection.json": true,
		"CASEPICK_EXPORT_FORMAT=json":                    true,
		"CASEPICK_TIMESTAMP=2026-04-27T10:30:00Z":        true,
	}
	env := ctx.ToEnv()
	if len(env) != len(want) {
		t.Fatalf("got %d vars, want %d: %v", len(env), len(want), env)
	}
	for _, e := range env {
		if !want[e] {
			t.Errorf("unexpected env entry %q", e)
		}
	}
}

func TestLoaderNoConfig(t *testing.T) {
	loader := NewLoader(WithDir(t.TempDir()))
	if err := loader.Load(); err != nil {
		t.Fatalf("expected no error for missing config, got: %v", err)
	}
	if loader.HasHooks() {
		t.Error("expected no hooks when config is missing")
	}
}

func TestLoaderWithValidConfig(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, `
hooks:
  post-confirm:
    - name: notify
      command: echo confirmed
  pre-export:
    - command: echo validating
      timeout: 5s
  post-export:
    - name: upload
      command: echo done
      timeout: 2
      env:
        TARGET: ci
`)

	loader, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	cfg := loader.Config()

	if len(cfg.Hooks.PostConfirm) != 1 || cfg.Hooks.PostConfirm[0].OnError != "continue" {
		t.Errorf("post-confirm = %+v", cfg.Hooks.PostConfirm)
	}
	pre := cfg.Hooks.PreExport[0]
	if pre.Name != "pre-export-1" || pre.Timeout != 5*time.Second || pre.OnError != "fail" {
		t.Errorf("pre-export defaults = %+v", pre)
	}
	post := cfg.Hooks.PostExport[0]
	if post.Timeout != 2*time.Second || post.Env["TARGET"] != "ci" {
		t.Errorf("post-export = %+v", post)
	}
	if cfg.Hooks.PostConfirm[0].Timeout != DefaultTimeout {
		t.Errorf("default timeout = %v", cfg.Hooks.PostConfirm[0].Timeout)
	}
}

func TestLoaderSkipsEmptyCommandsAndWarns(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, `
hooks:
  post-confirm:
    - name: blank
      command: "   "
    - command: echo ok
      on_error: explode
`)
	loader, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	hooks := loader.Config().Hooks.PostConfirm
	if len(hooks) != 1 || hooks[0].OnError != "continue" {
		t.Errorf("hooks = %+v", hooks)
	}
	if len(loader.Warnings()) != 2 {
		t.Errorf("warnings = %v", loader.Warnings())
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks: [not: valid")
	if _, err := LoadDir(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestHookUnmarshalYAMLInvalidTimeout(t *testing.T) {
	var h Hook
	if err := yaml.Unmarshal([]byte("name: bad\ntimeout: nope\ncommand: echo hi\n"), &h); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestConfigPhaseUnknown(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{{Name: "x", Command: "echo"}}}}
	if cfg.Phase(HookPhase("unknown")) != nil {
		t.Error("unknown phase should return nil")
	}
	var nilCfg *Config
	if !nilCfg.Empty() || nilCfg.Phase(PreExport) != nil {
		t.Error("nil config should be empty")
	}
}

func TestExecutorRunSimpleHook(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostConfirm: []Hook{
		{Name: "echo", Command: "echo hello", Timeout: 5 * time.Second, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, testContext())
	if err := e.RunPostConfirm(); err != nil {
		t.Fatalf("expected hook to succeed, got: %v", err)
	}
	results := e.Results()
	if len(results) != 1 || !results[0].Success || results[0].Stdout != "hello" {
		t.Errorf("results = %+v", results)
	}
}

func TestExecutorPipesSelectedIDs(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostConfirm: []Hook{
		{Name: "ids", Command: "tr '\\n' ' '", Timeout: 5 * time.Second},
	}}}
	e := NewExecutor(cfg, testContext())
	if err := e.RunPostConfirm(); err != nil {
		t.Fatal(err)
	}
	if got := e.Results()[0].Stdout; got != "c1 c3" {
		t.Errorf("stdin ids = %q", got)
	}
}

func TestExecutorEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_HOOK_VAR", "expanded_value")
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{
		{Name: "env", Command: "echo $CASEPICK_SET_ID $CASEPICK_SELECTED_COUNT $CUSTOM_VAR", Timeout: 5 * time.Second, OnError: "fail",
			Env: map[string]string{"CUSTOM_VAR": "${TEST_HOOK_VAR}"}},
	}}}
	e := NewExecutor(cfg, testContext())
	if err := e.RunPreExport(); err != nil {
		t.Fatal(err)
	}
	if got := e.Results()[0].Stdout; got != "login 2 expanded_value" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunPreExportStopsOnFail(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{
		{Name: "fail-fast", Command: "exit 1", Timeout: time.Second, OnError: "fail"},
		{Name: "should-not-run", Command: "echo nope", Timeout: time.Second, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SelectionContext{})
	if err := e.RunPreExport(); err == nil {
		t.Fatal("expected error from failing pre-export hook")
	}
	if len(e.Results()) != 1 {
		t.Fatalf("expected only first hook to run, got %d results", len(e.Results()))
	}
}

func TestRunPostExportFailStillRunsAll(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostExport: []Hook{
		{Name: "fail", Command: "exit 1", Timeout: time.Second, OnError: "fail"},
		{Name: "after", Command: "echo ok", Timeout: time.Second, OnError: "continue"},
	}}}
	e := NewExecutor(cfg, SelectionContext{})
	if err := e.RunPostExport(); err == nil {
		t.Fatal("expected error for post-export hook with on_error=fail")
	}
	results := e.Results()
	if len(results) != 2 || results[1].Stdout != "ok" {
		t.Errorf("results = %+v", results)
	}
	if !e.Failed() {
		t.Error("Failed() = false")
	}
}

func TestExecutorContinueIgnoresFailure(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PostConfirm: []Hook{
		{Name: "fail", Command: "exit 3", Timeout: time.Second, OnError: "continue"},
	}}}
	e := NewExecutor(cfg, SelectionContext{})
	if err := e.RunPostConfirm(); err != nil {
		t.Errorf("on_error=continue returned %v", err)
	}
	if e.Results()[0].Success {
		t.Error("failing hook recorded as success")
	}
}

func TestExecutorHookTimeout(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{
		{Name: "slow", Command: "sleep 10", Timeout: 100 * time.Millisecond, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SelectionContext{})
	err := e.RunPreExport()
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if d := e.Results()[0].Duration; d < 100*time.Millisecond {
		t.Errorf("duration = %v", d)
	}
}

func TestExecutorCommandNotFound(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{PreExport: []Hook{
		{Name: "missing", Command: "definitely-not-a-real-command-xyz", Timeout: time.Second, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SelectionContext{})
	if err := e.RunPreExport(); err == nil {
		t.Fatal("expected error for missing command")
	}
	if e.Results()[0].Stderr == "" {
		t.Error("expected stderr to include shell error")
	}
}

func TestExecutorSummary(t *testing.T) {
	cfg := &Config{Hooks: HooksByPhase{
		PreExport:  []Hook{{Name: "ok", Command: "echo ok", Timeout: time.Second, OnError: "continue"}},
		PostExport: []Hook{{Name: "noisy", Command: "printf '%0300d' 0 1>&2; exit 1", Timeout: time.Second, OnError: "continue"}},
	}}
	e := NewExecutor(cfg, SelectionContext{})
	if e.Summary() != "" {
		t.Error("summary before any run should be empty")
	}
	_ = e.RunPreExport()
	_ = e.RunPostExport()

	summary := e.Summary()
	if !strings.Contains(summary, "1 succeeded") || !strings.Contains(summary, "1 failed") {
		t.Errorf("summary counts: %s", summary)
	}
	for _, line := range strings.Split(summary, "\n") {
		if strings.Contains(line, "stderr:") && len(line) > 230 {
			t.Errorf("stderr line not truncated: %d chars", len(line))
		}
	}
	if !strings.Contains(summary, "...") {
		t.Error("expected ellipsis indicating truncation")
	}
}

func TestRunPhase(t *testing.T) {
	e, err := RunPhase(nil, PostConfirm, testContext())
	if err != nil || e != nil {
		t.Fatalf("nil config: exec=%v err=%v", e, err)
	}
	if e.Failed() || e.Summary() != "" || e.Results() != nil {
		t.Error("nil executor should report nothing")
	}

	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks:\n  post-confirm:\n    - command: echo $CASEPICK_TOTAL_COUNT\n    - command: exit 2\n")
	loader, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := loader.Config()
	if e, _ := RunPhase(cfg, PostExport, testContext()); e != nil {
		t.Error("phase without hooks should return nil")
	}
	e, err = RunPhase(cfg, PostConfirm, testContext())
	if err != nil || e == nil {
		t.Fatalf("RunPhase = %+v, %v", e, err)
	}
	if e.Results()[0].Stdout != "5" || !e.Failed() {
		t.Errorf("results = %+v", e.Results())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 8); got != "abcde..." {
		t.Errorf("truncate long = %q", got)
	}
	got := truncate(strings.Repeat("用例执行失败", 10), 11)
	if !utf8.ValidString(got) || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate CJK = %q", got)
	}
	if w := len([]rune(strings.TrimSuffix(got, "..."))); w != 4 {
		t.Errorf("truncate CJK kept %d runes, want 4", w)
	}
}
