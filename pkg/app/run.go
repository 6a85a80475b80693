// Package app provides the shared entry point for the tgclaw commands:
// it loads the configuration, builds the redacting logger and loads the
// configured modules into one AppContext.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/flemzord/tgclaw/internal/config"
	"github.com/flemzord/tgclaw/internal/core"
	"github.com/flemzord/tgclaw/internal/reload"
	"github.com/flemzord/tgclaw/internal/security"
	"github.com/flemzord/tgclaw/modules/telegram"
	tg "github.com/flemzord/tgclaw/pkg/telegram"
)

// CredentialsService is the container name of the shared credential store.
const CredentialsService = "security.credentials"

// Params configures Bootstrap and Run.
type Params struct {
	// ConfigPath is an explicit configuration file. If empty, the standard
	// locations are searched.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string

	// DataDir overrides both the config value and the default.
	DataDir string

	// LogLevel overrides log.level from the file when set.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// Modules, when set, restricts loading to these configured modules.
	// One-shot commands use it to skip long-running modules.
	Modules []string
}

// Runtime is a loaded, not yet started, application.
type Runtime struct {
	Config      *config.Config
	ConfigPath  string
	Logger      *slog.Logger
	Credentials *security.CredentialStore
	Redactor    *security.Redactor
	App         *core.App
}

// Bootstrap loads and validates the configuration, then loads modules.
func Bootstrap(params Params) (*Runtime, error) {
	cfgPath, err := config.FindPath(params.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if params.LogLevel != "" {
		cfg.Log.Level = params.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	credStore := security.NewCredentialStore()
	redactor := security.NewRedactor(credStore)

	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(cfg.Log, out, redactor)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(CredentialsService, credStore)

	ids := config.Resolve(cfg)
	if len(params.Modules) > 0 {
		ids = slices.DeleteFunc(ids, func(id string) bool {
			return !slices.Contains(params.Modules, id)
		})
	}

	application := core.NewApp(appCtx)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	return &Runtime{
		Config:      cfg,
		ConfigPath:  cfgPath,
		Logger:      logger,
		Credentials: credStore,
		Redactor:    redactor,
		App:         application,
	}, nil
}

// Client returns the Bot API client bound by the telegram module.
func (r *Runtime) Client() (*tg.Client, error) {
	return telegram.FromContext(r.App.Context())
}

// Close stops whatever the runtime started.
func (r *Runtime) Close() {
	r.App.Stop()
}

// Run starts every configured module and blocks until ctx is cancelled or
// SIGINT/SIGTERM arrives. SIGHUP, and file changes when reload.watch is
// set, reload the configuration in place.
func Run(ctx context.Context, params Params) error {
	rt, err := Bootstrap(params)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.watchReloads(ctx)

	rt.Logger.Info("starting tgclaw",
		"version", params.Version,
		"config", rt.ConfigPath,
		"modules", len(rt.App.ModuleIDs()),
	)
	if err := rt.App.Run(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	rt.Logger.Info("shutdown complete")
	return nil
}

// watchReloads runs the reload loop until ctx is done.
func (r *Runtime) watchReloads(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	triggers := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case triggers <- struct{}{}:
				default:
				}
			}
		}
	}()

	var watcher *reload.Watcher
	if r.Config.Reload.Watch {
		watcher = reload.NewWatcher(r.ConfigPath, r.Config.Reload.Interval)
	}
	handler := reload.NewHandler(r.App, r.ConfigPath, r.Logger.With("component", "reload"))
	go handler.Loop(ctx, triggers, watcher)
}

// NewLogger builds the process logger. Every record passes through the
// redactor before it is written.
func NewLogger(cfg config.LogConfig, w io.Writer, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/tgclaw, or ~/.local/share/tgclaw.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "tgclaw")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tgclaw")
}
