// Package config loads the server configuration. Resolution order is
// fixed: built-in defaults, then an optional YAML file, then NOEMA_*
// environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/aletheia-dev/noema/internal/notebook"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/aletheia-dev/noema/internal/unified"
)

// Config holds all noema configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`

	// Session lifecycle
	Session SessionConfig `yaml:"session"`

	// Standalone knowledge graph
	Graph GraphConfig `yaml:"graph"`

	// Unified memory store and its projection graph
	Memory MemoryConfig `yaml:"memory"`

	// Notebook sandbox
	Notebook NotebookConfig `yaml:"notebook"`

	// Session archive
	Archive ArchiveConfig `yaml:"archive"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig controls session lifetime and artifact ceilings.
type SessionConfig struct {
	IdleTimeout  string `yaml:"idle_timeout"`
	ThoughtLimit int    `yaml:"thought_limit"`
}

// GraphConfig configures the standalone knowledge graph.
type GraphConfig struct {
	Mode string `yaml:"mode"` // minimal, development, production, research
}

// MemoryConfig configures the unified store.
type MemoryConfig struct {
	Mode     string `yaml:"mode"` // projection graph mode
	Debounce string `yaml:"debounce"`
	Persist  bool   `yaml:"persist"`
}

// NotebookConfig configures the notebook sandbox.
type NotebookConfig struct {
	MaxCells       int    `yaml:"max_cells"`
	MaxExecutions  int    `yaml:"max_executions"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`
	ExecTimeout    string `yaml:"exec_timeout"`
	MaxExecTimeout string `yaml:"max_exec_timeout"`
	IdleTTL        string `yaml:"idle_ttl"`
}

// ArchiveConfig configures the session archive.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Name:    "noema",
		DataDir: filepath.Join(home, ".noema"),

		Session: SessionConfig{
			IdleTimeout:  "1h",
			ThoughtLimit: session.DefaultThoughtLimit,
		},

		Graph: GraphConfig{
			Mode: string(graph.DefaultMode),
		},

		Memory: MemoryConfig{
			Mode:     string(graph.ModeResearch),
			Debounce: "500ms",
			Persist:  true,
		},

		Notebook: NotebookConfig{
			MaxCells:       notebook.DefaultMaxCells,
			MaxExecutions:  notebook.DefaultMaxExecutions,
			MaxOutputBytes: notebook.DefaultOutputLimit,
			ExecTimeout:    "5s",
			MaxExecTimeout: "30s",
			IdleTTL:        "30m",
		},

		Archive: ArchiveConfig{
			Enabled: true,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the config file location, honoring NOEMA_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("NOEMA_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".noema", "config.yaml")
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates. A missing file is not an error;
// an empty path falls back to DefaultPath.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fault.Validationf("config: parse %s: %v", path, err)
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, fault.Persistencef("config: read %s: %v", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOEMA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("NOEMA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NOEMA_GRAPH_MODE"); v != "" {
		c.Graph.Mode = v
	}
	if v := os.Getenv("NOEMA_SESSION_IDLE_TIMEOUT"); v != "" {
		c.Session.IdleTimeout = v
	}
	if v := os.Getenv("NOEMA_ARCHIVE_DISABLED"); v == "1" || strings.EqualFold(v, "true") {
		c.Archive.Enabled = false
	}
}

// Validate checks enum values, durations, and limits.
func (c *Config) Validate() error {
	if _, err := graph.ParseMode(c.Graph.Mode); err != nil {
		return err
	}
	if _, err := graph.ParseMode(c.Memory.Mode); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fault.Validationf("config: unknown log level %q (valid: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Session.ThoughtLimit < 0 {
		return fault.Validationf("config: session.thought_limit must be >= 0, got %d", c.Session.ThoughtLimit)
	}
	if c.Notebook.MaxCells < 0 || c.Notebook.MaxExecutions < 0 || c.Notebook.MaxOutputBytes < 0 {
		return fault.Validationf("config: notebook limits must be >= 0")
	}

	durations := map[string]string{
		"session.idle_timeout":      c.Session.IdleTimeout,
		"memory.debounce":           c.Memory.Debounce,
		"notebook.exec_timeout":     c.Notebook.ExecTimeout,
		"notebook.max_exec_timeout": c.Notebook.MaxExecTimeout,
		"notebook.idle_ttl":         c.Notebook.IdleTTL,
	}
	for name, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fault.Validationf("config: %s: bad duration %q", name, raw)
		}
		if d < 0 {
			return fault.Validationf("config: %s must not be negative", name)
		}
	}

	return nil
}

// ─── Derived values ──────────────────────────────────────────────────────────

// SessionIdleTimeout returns the parsed idle timeout.
func (c *Config) SessionIdleTimeout() time.Duration {
	return durationOr(c.Session.IdleTimeout, session.DefaultIdleTimeout)
}

// MemoryDebounce returns the parsed persistence debounce.
func (c *Config) MemoryDebounce() time.Duration {
	return durationOr(c.Memory.Debounce, unified.DefaultDebounce)
}

// NotebookExecTimeout returns the parsed default execution timeout.
func (c *Config) NotebookExecTimeout() time.Duration {
	return durationOr(c.Notebook.ExecTimeout, notebook.DefaultExecTimeout)
}

// NotebookMaxExecTimeout returns the parsed execution timeout ceiling.
func (c *Config) NotebookMaxExecTimeout() time.Duration {
	return durationOr(c.Notebook.MaxExecTimeout, notebook.DefaultMaxTimeout)
}

// NotebookIdleTTL returns the parsed notebook idle lifetime.
func (c *Config) NotebookIdleTTL() time.Duration {
	return durationOr(c.Notebook.IdleTTL, notebook.DefaultIdleTTL)
}

// MemoryDir returns the unified store's persistence directory, or ""
// when persistence is disabled.
func (c *Config) MemoryDir() string {
	if !c.Memory.Persist {
		return ""
	}
	return filepath.Join(c.DataDir, "memory")
}

// ArchiveDir returns the archive's data directory.
func (c *Config) ArchiveDir() string {
	return c.DataDir
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
