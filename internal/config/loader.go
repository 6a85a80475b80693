package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name looked up by FindPath.
const FileName = "tgclaw.yaml"

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// ErrNotFound is returned by FindPath when no candidate file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// Load reads path, expands environment variables and parses the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse expands environment variables in raw and decodes it.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	return &cfg, nil
}

// FindPath returns explicit when set. Otherwise it tries, in order,
// $XDG_CONFIG_HOME/tgclaw, ~/.config/tgclaw and the working directory.
func FindPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, p := range candidates() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// DefaultPath is where `tgclaw init` writes a new file.
func DefaultPath() string {
	return candidates()[0]
}

func candidates() []string {
	var out []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "tgclaw", FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".config", "tgclaw", FileName))
	}
	out = append(out, FileName)
	return slices.Compact(out)
}

// expandEnv replaces ${VAR} and ${VAR:-default}. Variables that are unset
// and have no default are all reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if subs[2] != nil {
			return subs[2]
		}
		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return out, errors.Join(errs...)
}
