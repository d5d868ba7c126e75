// Package hooks runs user commands around confirmations and exports.
// Hooks are configured in a hidden .hooks.yaml inside the case directory
// so the case loader and the file watcher never pick the file up.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the hook config file looked up in the case directory.
const FileName = ".hooks.yaml"

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PostConfirm runs after a selection is confirmed. Failure never undoes the confirmation.
	PostConfirm HookPhase = "post-confirm"
	// PreExport runs before an export file is written. Failure cancels the export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after the export is written. Failure is reported but keeps the file.
	PostExport HookPhase = "post-export"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // default: 30s
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // expanded against the process env
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue"
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	PostConfirm []Hook `yaml:"post-confirm,omitempty" json:"post-confirm,omitempty"`
	PreExport   []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport  []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// Phase returns the hooks for phase, or nil for an unknown phase.
func (c *Config) Phase(phase HookPhase) []Hook {
	if c == nil {
		return nil
	}
	switch phase {
	case PostConfirm:
		return c.Hooks.PostConfirm
	case PreExport:
		return c.Hooks.PreExport
	case PostExport:
		return c.Hooks.PostExport
	default:
		return nil
	}
}

// Empty reports whether no hooks are configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.Hooks.PostConfirm)+len(c.Hooks.PreExport)+len(c.Hooks.PostExport) == 0
}

// SelectionContext is what hooks learn about the selection, through
// environment variables and, for the IDs, stdin.
type SelectionContext struct {
	SetID        string    // CASEPICK_SET_ID
	Selected     []string  // stdin, one ID per line; CASEPICK_SELECTED_COUNT
	Total        int       // CASEPICK_TOTAL_COUNT
	ExportPath   string    // CASEPICK_EXPORT_PATH (export phases only)
	ExportFormat string    // CASEPICK_EXPORT_FORMAT (export phases only)
	Timestamp    time.Time // CASEPICK_TIMESTAMP (RFC3339)
}

// ToEnv converts the context to environment variables
func (c SelectionContext) ToEnv() []string {
	return []string{
		fmt.Sprintf("CASEPICK_SET_ID=%s", c.SetID),
		fmt.Sprintf("CASEPICK_SELECTED_COUNT=%d", len(c.Selected)),
		fmt.Sprintf("CASEPICK_TOTAL_COUNT=%d", c.Total),
		fmt.Sprintf("CASEPICK_EXPORT_PATH=%s", c.ExportPath),
		fmt.Sprintf("CASEPICK_EXPORT_FORMAT=%s", c.ExportFormat),
		fmt.Sprintf("CASEPICK_TIMESTAMP=%s", c.Timestamp.Format(time.RFC3339)),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// Loader loads hook configuration from a case directory
type Loader struct {
	dir      string
	config   *Config
	warnings []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithDir sets the case directory (default: current directory)
func WithDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.dir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.dir == "" {
		l.dir, _ = os.Getwd()
	}
	return l
}

// Path is the config file the loader reads.
func (l *Loader) Path() string {
	return filepath.Join(l.dir, FileName)
}

// Load reads the hook file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	l.warnings = nil
	config.Hooks.PostConfirm, l.warnings = normalizeHooks(config.Hooks.PostConfirm, PostConfirm, l.warnings)
	config.Hooks.PreExport, l.warnings = normalizeHooks(config.Hooks.PreExport, PreExport, l.warnings)
	config.Hooks.PostExport, l.warnings = normalizeHooks(config.Hooks.PostExport, PostExport, l.warnings)

	l.config = &config
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i := range hooks {
		hook := hooks[i]
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case "":
			if phase == PreExport {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
		case "fail", "continue":
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using continue", phase, i+1, hook.OnError))
			hook.OnError = "continue"
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	return !l.Config().Empty()
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// LoadDir creates a loader for dir and loads it.
func LoadDir(dir string) (*Loader, error) {
	loader := NewLoader(WithDir(dir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// UnmarshalYAML accepts durations ("5s") and bare numbers of seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Mirrors Hook with Timeout as a string.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}

	return nil
}
