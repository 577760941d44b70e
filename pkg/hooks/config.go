// Package hooks runs user commands around document saves. Hooks are
// configured via .om/hooks.yaml next to the document and run before the
// document is written (pre-save) and after it was written (post-save).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PreSave runs before the document is written. Failure cancels the save.
	PreSave HookPhase = "pre-save"
	// PostSave runs after the document is written. Failure is reported but the save stands.
	PostSave HookPhase = "post-save"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue"
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	PreSave  []Hook `yaml:"pre-save,omitempty" json:"pre-save,omitempty"`
	PostSave []Hook `yaml:"post-save,omitempty" json:"post-save,omitempty"`
}

// SaveContext is passed to hooks via environment variables
type SaveContext struct {
	DocumentPath string    // OM_DOCUMENT_PATH
	RestoreURL   string    // OM_RESTORE_URL: page URL carrying the restore marker
	RowCount     int       // OM_ROW_COUNT: managed rows in the document
	DeletedCount int       // OM_DELETED_COUNT: rows marked for deletion
	Timestamp    time.Time // OM_TIMESTAMP (RFC3339)
}

// ToEnv converts the save context to environment variables
func (c SaveContext) ToEnv() []string {
	return []string{
		fmt.Sprintf("OM_DOCUMENT_PATH=%s", c.DocumentPath),
		fmt.Sprintf("OM_RESTORE_URL=%s", c.RestoreURL),
		fmt.Sprintf("OM_ROW_COUNT=%d", c.RowCount),
		fmt.Sprintf("OM_DELETED_COUNT=%d", c.DeletedCount),
		fmt.Sprintf("OM_TIMESTAMP=%s", c.Timestamp.Format(time.RFC3339)),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// Loader loads hook configuration from .om/hooks.yaml
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithProjectDir sets the directory holding .om/ (default: current directory)
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Path returns the hooks file the loader reads.
func (l *Loader) Path() string {
	return filepath.Join(l.projectDir, ".om", "hooks.yaml")
}

// Load loads hook configuration. A missing file means no hooks.
func (l *Loader) Load() error {
	configPath := l.Path()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}

	l.warnings = nil
	config.Hooks.PreSave, l.warnings = normalizeHooks(config.Hooks.PreSave, PreSave, l.warnings)
	config.Hooks.PostSave, l.warnings = normalizeHooks(config.Hooks.PostSave, PostSave, l.warnings)

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
		if hook.OnError == "" {
			if phase == PreSave {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
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
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreSave) > 0 || len(l.config.Hooks.PostSave) > 0
}

// GetHooks returns hooks for a specific phase
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreSave:
		return l.config.Hooks.PreSave
	case PostSave:
		return l.config.Hooks.PostSave
	default:
		return nil
	}
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// LoadDefault creates a loader for the current directory and loads it
func LoadDefault() (*Loader, error) {
	loader := NewLoader()
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// UnmarshalYAML accepts timeouts as duration strings or plain seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Must mirror Hook except for Timeout.
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
			// "timeout: 30" means seconds.
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
