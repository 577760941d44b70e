// Package config handles loading and saving ordermachine configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/ordermachine/config.yaml
//   - State:   ~/.local/state/ordermachine/ (session database, local store)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "ordermachine"

// EditorConfig tunes the editor's timers and drag behavior.
type EditorConfig struct {
	ResizeDebounceMS     int     `yaml:"resize_debounce_ms"`
	SettleDelayMS        int     `yaml:"settle_delay_ms"`
	RestoreScrollDelayMS int     `yaml:"restore_scroll_delay_ms"`
	ScrollThreshold      float64 `yaml:"scroll_threshold"` // fraction of the viewport
	ScrollStep           float64 `yaml:"scroll_step"`
	ScrollIntervalMS     int     `yaml:"scroll_interval_ms"`
	DropMargin           float64 `yaml:"drop_margin"`
}

// StorageConfig locates the persisted stores.
type StorageConfig struct {
	SessionDB string `yaml:"session_db,omitempty"` // default <state>/session.db
	LocalDir  string `yaml:"local_dir,omitempty"`  // default <state>/local
	SessionID string `yaml:"session_id,omitempty"`
}

// UIConfig holds terminal host preferences.
type UIConfig struct {
	RowHeight        int  `yaml:"row_height,omitempty"`
	ShowSectionBoxes bool `yaml:"show_section_boxes"`
}

// Config is the top-level configuration.
type Config struct {
	Editor  EditorConfig  `yaml:"editor"`
	Storage StorageConfig `yaml:"storage"`
	UI      UIConfig      `yaml:"ui"`
	Scripts []string      `yaml:"scripts,omitempty"`
}

// DefaultConfig returns a Config with the standard editor timings.
func DefaultConfig() Config {
	return Config{
		Editor: EditorConfig{
			ResizeDebounceMS:     10,
			SettleDelayMS:        0,
			RestoreScrollDelayMS: 200,
			ScrollThreshold:      0.1,
			ScrollStep:           10,
			ScrollIntervalMS:     10,
			DropMargin:           5,
		},
		Storage: StorageConfig{
			SessionID: "default",
		},
		UI: UIConfig{
			RowHeight:        1,
			ShowSectionBoxes: true,
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
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
		return withEnv(DefaultConfig()), nil
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
			return withEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}

	cfg.Storage.SessionDB = expandHome(cfg.Storage.SessionDB)
	cfg.Storage.LocalDir = expandHome(cfg.Storage.LocalDir)
	for i := range cfg.Scripts {
		cfg.Scripts[i] = expandHome(cfg.Scripts[i])
	}
	return withEnv(cfg), nil
}

// withEnv applies environment overrides.
func withEnv(cfg Config) Config {
	if id := strings.TrimSpace(os.Getenv("OM_SESSION")); id != "" {
		cfg.Storage.SessionID = id
	}
	return cfg
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

// SessionDBPath returns the session database path, defaulting under StateDir.
func (c Config) SessionDBPath() string {
	if c.Storage.SessionDB != "" {
		return c.Storage.SessionDB
	}
	return filepath.Join(StateDir(), "session.db")
}

// LocalDirPath returns the local store directory, defaulting under StateDir.
func (c Config) LocalDirPath() string {
	if c.Storage.LocalDir != "" {
		return c.Storage.LocalDir
	}
	return filepath.Join(StateDir(), "local")
}

// ResizeDebounce returns the debounce for resize-triggered section rebuilds.
func (e EditorConfig) ResizeDebounce() time.Duration {
	return ms(e.ResizeDebounceMS)
}

// SettleDelay returns the delay after a row removal.
func (e EditorConfig) SettleDelay() time.Duration {
	return ms(e.SettleDelayMS)
}

// RestoreScrollDelay returns how long to wait before restoring scroll.
func (e EditorConfig) RestoreScrollDelay() time.Duration {
	return ms(e.RestoreScrollDelayMS)
}

// ScrollInterval returns the auto-scroll tick.
func (e EditorConfig) ScrollInterval() time.Duration {
	return ms(e.ScrollIntervalMS)
}

func ms(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
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
