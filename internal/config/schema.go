// Package config loads the tgclaw YAML file, expands environment
// variables in it and checks its structure.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	// Version is the config format version. Only "1" exists.
	Version string `yaml:"version"`

	// Log controls the process logger.
	Log LogConfig `yaml:"log,omitempty"`

	// Reload controls live reconfiguration of `tgclaw start`.
	Reload ReloadConfig `yaml:"reload,omitempty"`

	// DataDir is handed to modules for persistent state.
	DataDir string `yaml:"data_dir,omitempty"`

	// Modules maps module IDs (e.g. "telegram") to their raw section.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// ReloadConfig enables reloading when the file changes. SIGHUP always
// triggers a reload.
type ReloadConfig struct {
	Watch    bool          `yaml:"watch,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"` // poll period, default 5s
}
