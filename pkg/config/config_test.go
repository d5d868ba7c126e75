package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.ExpandDepth != 2 {
		t.Errorf("expected expand depth 2, got %d", cfg.UI.ExpandDepth)
	}
	if !cfg.UI.ShowDetail || !cfg.UI.ConfirmDiscard {
		t.Error("expected detail pane and discard confirmation on by default")
	}
	if cfg.Export.Format != "json" {
		t.Errorf("expected json export, got %q", cfg.Export.Format)
	}
	if !cfg.WatchEnabled() {
		t.Error("expected watch enabled by default")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.ExpandDepth != 2 {
		t.Errorf("expected default config, got expand depth %d", cfg.UI.ExpandDepth)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
cases_dir: ~/qa/cases
sources:
  - name: payments
    path: ~/qa/payments
  - name: Shared
    path: /srv/cases

ui:
  expand_depth: 1
  show_detail: false

export:
  dir: /tmp/exports
  format: Markdown

watch: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "qa/cases"); cfg.CasesDir != want {
		t.Errorf("expected expanded cases dir %q, got %q", want, cfg.CasesDir)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if want := filepath.Join(home, "qa/payments"); cfg.Sources[0].Path != want {
		t.Errorf("expected expanded source path %q, got %q", want, cfg.Sources[0].Path)
	}
	if cfg.UI.ExpandDepth != 1 || cfg.UI.ShowDetail {
		t.Errorf("ui settings not applied: %+v", cfg.UI)
	}
	// Unset keys keep their defaults
	if !cfg.UI.ConfirmDiscard {
		t.Error("confirm_discard default lost")
	}
	if cfg.Export.Format != "markdown" {
		t.Errorf("expected lower-cased format, got %q", cfg.Export.Format)
	}
	if cfg.WatchEnabled() {
		t.Error("watch: false not honored")
	}
	if s := cfg.FindSource("shared"); s == nil || s.Path != "/srv/cases" {
		t.Errorf("FindSource(shared) = %+v", s)
	}
	dirs := cfg.CaseDirs()
	if len(dirs) != 3 || dirs[0] != cfg.CasesDir {
		t.Errorf("CaseDirs() = %v", dirs)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("ui: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(badYAML); err == nil {
		t.Error("expected parse error")
	}

	badFormat := filepath.Join(dir, "format.yaml")
	if err := os.WriteFile(badFormat, []byte("export:\n  format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(badFormat); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	watch := false
	cfg := DefaultConfig()
	cfg.CasesDir = "/data/cases"
	cfg.Sources = []Source{{Name: "a", Path: "/a"}}
	cfg.Watch = &watch

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.CasesDir != "/data/cases" || len(loaded.Sources) != 1 || loaded.WatchEnabled() {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	if got := ConfigPath(); got != "/xdg/config/casepick/config.yaml" {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := StateDir(); got != "/xdg/state/casepick" {
		t.Errorf("StateDir() = %q", got)
	}
}
