// Package gateway registers the "gateway.http" module: a small HTTP relay
// in front of the shared Bot API client, so that scripts and services can
// post notifications or call API methods without holding the bot token.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/core"
	"github.com/flemzord/tgclaw/internal/security"
	"github.com/flemzord/tgclaw/internal/telemetry"
	"github.com/flemzord/tgclaw/pkg/telegram"
)

const (
	telegramService    = "telegram"
	credentialsService = "security.credentials"
)

func init() {
	core.RegisterModule(&Gateway{})
}

var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP relay module.
type Gateway struct {
	config   Config
	services *core.Container
	logger   *slog.Logger
	server   *http.Server
	addr     net.Addr
	done     chan struct{}

	// Resolved at Start.
	client   *telegram.Client
	metrics  http.Handler
	redactor *security.Redactor
	limiter  *security.RateLimiter

	startedAt time.Time
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.logger = ctx.Logger
	g.services = ctx.Services()

	store, err := core.Resolve[*security.CredentialStore](g.services, credentialsService)
	if err == nil {
		store.Set("gateway.bearer_token", g.config.Auth.BearerToken)
		store.Set("gateway.basic_pass", g.config.Auth.BasicPass)
	}
	g.redactor = security.NewRedactor(store)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	if !g.config.Auth.IsConfigured() && !g.config.InsecureNoAuth {
		return errors.New("gateway: auth is required (set auth.bearer_token or auth.basic_user/basic_pass, or insecure_no_auth)")
	}
	if g.config.RateLimit < 0 {
		return fmt.Errorf("gateway: rate_limit must not be negative, got %d", g.config.RateLimit)
	}
	return nil
}

// Start implements core.Starter. It resolves the client, then listens.
func (g *Gateway) Start() error {
	client, err := core.Resolve[*telegram.Client](g.services, telegramService)
	if err != nil {
		return fmt.Errorf("gateway: %w (is the telegram module configured?)", err)
	}
	g.client = client

	if m, err := core.Resolve[*telemetry.Metrics](g.services, telemetry.MetricsService); err == nil {
		g.metrics = m.Handler()
	}
	g.limiter = security.NewRateLimiter(g.config.RateLimit, time.Minute)
	g.startedAt = time.Now()

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	g.server = &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}
	g.addr = ln.Addr()
	g.done = make(chan struct{})

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	go g.pruneLimiter()

	return nil
}

func (g *Gateway) pruneLimiter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.limiter.Prune()
		}
	}
}

// Addr returns the listening address once started.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// Stop implements core.Stopper.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	close(g.done)

	ctx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()
	return g.server.Shutdown(ctx)
}
