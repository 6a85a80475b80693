package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/core"
	"github.com/flemzord/tgclaw/internal/security"
	tg "github.com/flemzord/tgclaw/pkg/telegram"
)

// Service names bound by the module, and those it picks up when present.
const (
	ServiceName  = "telegram"
	ServiceAlias = "telegram.client"

	credentialsService = "security.credentials"
	metricsService     = "telemetry.metrics"
	tracerService      = "telemetry.tracer"

	tracerName = "github.com/flemzord/tgclaw/pkg/telegram"
)

const verifyTimeout = 15 * time.Second

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
)

// Module provides the shared *tg.Client.
type Module struct {
	config   Config
	logger   *slog.Logger
	services *core.Container
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:       "telegram",
		New:      func() core.Module { return &Module{} },
		Provides: []string{ServiceName, ServiceAlias},
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The client itself is built on
// first resolve so that telemetry services bound later are picked up.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.services = ctx.Services()

	if store, err := core.Resolve[*security.CredentialStore](m.services, credentialsService); err == nil {
		store.Set("telegram.token", m.config.Token)
	}

	m.services.Singleton(ServiceName, m.newClient)
	m.services.Alias(ServiceAlias, ServiceName)
	return nil
}

func (m *Module) newClient(c *core.Container) (any, error) {
	opts := []tg.Option{
		tg.WithEndpoint(m.config.APIURL),
		tg.WithTimeout(m.config.Timeout),
		tg.WithAsyncTimeout(m.config.AsyncTimeout),
		tg.WithAsync(m.config.Async),
		tg.WithLogger(m.logger),
	}
	if c.Bound(metricsService) {
		obs, err := core.Resolve[tg.Observer](c, metricsService)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tg.WithObserver(obs))
	}
	if c.Bound(tracerService) {
		tp, err := core.Resolve[trace.TracerProvider](c, tracerService)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tg.WithTracer(tp.Tracer(tracerName)))
	}

	client := tg.NewClient(tg.Credentials{
		Token:       m.config.Token,
		BotUsername: m.config.BotUsername,
	}, opts...)
	client.SetChatAliases(m.config.Chats)
	client.Allow(m.config.Methods...)
	return client, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. With verify_on_start it checks the token
// with getMe and fails startup when the API rejects it.
func (m *Module) Start() error {
	if !m.config.VerifyOnStart {
		return nil
	}

	client, err := core.Resolve[*tg.Client](m.services, ServiceName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	res, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe: %w", err)
	}
	var me tg.User
	if err := res.Decode(&me); err != nil {
		return fmt.Errorf("telegram: getMe failed (check token), status %d: %w", res.StatusCode(), err)
	}

	m.logger.Info("telegram bot authenticated", "id", me.ID, "username", me.Username)
	if m.config.BotUsername != "" && me.Username != m.config.BotUsername {
		m.logger.Warn("configured bot_username differs from the API", "configured", m.config.BotUsername, "actual", me.Username)
	}
	return nil
}

// Reload implements core.Reloader. Chat aliases, extra methods and async
// mode apply to the running client. Methods are only ever added to the
// allow-list. Token, api_url and timeouts need a restart.
func (m *Module) Reload(ctx *core.AppContext) error {
	var next Config
	if err := ctx.ModuleConfig().Decode(&next); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	next.defaults()
	if err := next.validate(); err != nil {
		return err
	}
	if next.Token != m.config.Token || next.APIURL != m.config.APIURL ||
		next.Timeout != m.config.Timeout || next.AsyncTimeout != m.config.AsyncTimeout {
		return errors.New("telegram: token, api_url and timeouts only change on restart")
	}

	client, err := Resolve(m.services)
	if err != nil {
		return err
	}
	client.SetChatAliases(next.Chats)
	client.Allow(next.Methods...)
	client.SetAsync(next.Async)

	m.config = next
	m.logger.Info("telegram client reconfigured", "chats", len(next.Chats), "async", next.Async)
	return nil
}

// FromContext returns the client bound by the telegram module.
func FromContext(ctx *core.AppContext) (*tg.Client, error) {
	return Resolve(ctx.Services())
}

// Resolve returns the client bound in c.
func Resolve(c *core.Container) (*tg.Client, error) {
	client, err := core.Resolve[*tg.Client](c, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w (is the telegram module configured?)", err)
	}
	return client, nil
}
