package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/tgclaw/internal/core"
)

var (
	logLevels  = []string{"", "debug", "info", "warn", "error"}
	logFormats = []string{"", "text", "json"}
)

// Validate checks cfg against the module registry. Module sections are
// validated by the modules themselves when loaded.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Version {
	case "":
		errs = append(errs, errors.New("config: version field is required"))
	case "1":
	default:
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}
	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if !slices.Contains(logLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(cfg.Log.Format)) {
		errs = append(errs, fmt.Errorf("config: log.format %q is not text or json", cfg.Log.Format))
	}

	if cfg.Reload.Interval < 0 {
		errs = append(errs, fmt.Errorf("config: reload.interval must not be negative, got %s", cfg.Reload.Interval))
	}

	return errors.Join(errs...)
}

// Resolve returns the configured module IDs in load order: sorted, with
// modules that bind services moved ahead of those that only consume them.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortStableFunc(ids, func(a, b string) int {
		pa, pb := provides(a), provides(b)
		switch {
		case pa && !pb:
			return -1
		case !pa && pb:
			return 1
		}
		return strings.Compare(a, b)
	})
	return ids
}

func provides(id string) bool {
	info, ok := core.GetModule(id)
	return ok && len(info.Provides) > 0
}
