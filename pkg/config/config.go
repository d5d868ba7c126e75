// Package config handles loading and saving casepick configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/casepick/config.yaml
//   - State:   ~/.local/state/casepick/ (snapshots, exports)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is a named directory of case files.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// UIConfig holds dialog preferences.
type UIConfig struct {
	ExpandDepth    int  `yaml:"expand_depth,omitempty"`    // Levels expanded when a dialog opens
	ShowDetail     bool `yaml:"show_detail,omitempty"`     // Case detail pane beside the tree
	ConfirmDiscard bool `yaml:"confirm_discard,omitempty"` // Ask before cancelling a changed dialog
}

// ExportConfig controls where confirmed selections go.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // json, text, markdown
}

// Config is the top-level configuration for casepick.
type Config struct {
	CasesDir string       `yaml:"cases_dir,omitempty"`
	Sources  []Source     `yaml:"sources,omitempty"`
	UI       UIConfig     `yaml:"ui,omitempty"`
	Export   ExportConfig `yaml:"export,omitempty"`
	Watch    *bool        `yaml:"watch,omitempty"` // Reload case files on change (default on)
}

// Export formats accepted in ExportConfig.Format.
var validFormats = map[string]bool{"json": true, "text": true, "markdown": true}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			ExpandDepth:    2,
			ShowDetail:     true,
			ConfirmDiscard: true,
		},
		Export: ExportConfig{
			Format: "json",
		},
	}
}

// ConfigDir returns the XDG config directory for casepick.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "casepick")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "casepick")
}

// StateDir returns the XDG state directory for casepick.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "casepick")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "casepick")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Export.Format == "" {
		cfg.Export.Format = "json"
	}
	cfg.Export.Format = strings.ToLower(cfg.Export.Format)
	if !validFormats[cfg.Export.Format] {
		return cfg, fmt.Errorf("parsing config: unknown export format %q", cfg.Export.Format)
	}
	if cfg.UI.ExpandDepth < 0 {
		cfg.UI.ExpandDepth = 0
	}

	cfg.CasesDir = expandHome(cfg.CasesDir)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	for i := range cfg.Sources {
		cfg.Sources[i].Path = expandHome(cfg.Sources[i].Path)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// WatchEnabled reports whether case files should be reloaded on change.
func (c Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// FindSource returns the source with the given name, or nil.
func (c Config) FindSource(name string) *Source {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i]
		}
	}
	return nil
}

// CaseDirs lists CasesDir followed by every source path, without duplicates.
func (c Config) CaseDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		dirs = append(dirs, p)
	}
	add(c.CasesDir)
	for _, s := range c.Sources {
		add(s.ResolvedPath())
	}
	return dirs
}

// ResolvedPath returns the source path with ~ expanded.
func (s Source) ResolvedPath() string {
	return expandHome(s.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
