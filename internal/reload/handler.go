package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/flemzord/tgclaw/internal/config"
	"github.com/flemzord/tgclaw/internal/core"
)

// ErrRestartRequired is returned when the new file adds or removes
// modules, which only a restart can apply.
var ErrRestartRequired = errors.New("reload: module set changed, restart required")

// Handler reloads an App from its configuration file.
type Handler struct {
	app    *core.App
	path   string
	logger *slog.Logger
}

// NewHandler creates a handler reloading app from path.
func NewHandler(app *core.App, path string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{app: app, path: path, logger: logger}
}

// Reload reads and validates the file, then hands each module its new
// section. Nothing is applied when the file is invalid.
func (h *Handler) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	cfg, err := config.Load(h.path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	loaded := make([]string, 0, len(h.app.ModuleIDs()))
	for _, id := range h.app.ModuleIDs() {
		loaded = append(loaded, string(id))
	}
	wanted := config.Resolve(cfg)
	slices.Sort(loaded)
	slices.Sort(wanted)
	if !slices.Equal(loaded, wanted) {
		return fmt.Errorf("%w (running %v, file has %v)", ErrRestartRequired, loaded, wanted)
	}

	if err := h.app.ReloadModules(h.app.Context().WithModuleConfigs(cfg.Modules)); err != nil {
		return err
	}
	h.logger.Info("configuration reloaded", "path", h.path)
	return nil
}

// Loop reloads on every value from signals and, when watcher is not nil,
// on every file change, until ctx is done. Failures are logged and the
// running configuration stays in place.
func (h *Handler) Loop(ctx context.Context, signals <-chan struct{}, watcher *Watcher) {
	var changes <-chan struct{}
	if watcher != nil {
		go watcher.Run(ctx)
		changes = watcher.Changes()
	}

	for {
		var trigger string
		select {
		case <-ctx.Done():
			return
		case <-signals:
			trigger = "signal"
		case <-changes:
			trigger = "file change"
		}

		h.logger.Info("reloading configuration", "trigger", trigger)
		if err := h.Reload(ctx); err != nil {
			h.logger.Error("reload failed, keeping current configuration", "error", err)
		}
	}
}
