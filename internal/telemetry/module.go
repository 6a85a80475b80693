package telemetry

import (
	"context"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/core"
)

// Services bound by the telemetry module.
const (
	MetricsService = "telemetry.metrics"
	TracerService  = "telemetry.tracer"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config is the telemetry module section.
type Config struct {
	ServiceName    string        `yaml:"service_name"`
	RuntimeMetrics *bool         `yaml:"runtime_metrics"`
	Tracing        TracingConfig `yaml:"tracing"`
}

func (c *Config) defaults() {
	if c.ServiceName == "" {
		c.ServiceName = "tgclaw"
	}
	if c.RuntimeMetrics == nil {
		on := true
		c.RuntimeMetrics = &on
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Module binds a *Metrics and a trace.TracerProvider.
type Module struct {
	config   Config
	shutdown ShutdownFunc
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:       "telemetry",
		New:      func() core.Module { return &Module{} },
		Provides: []string{MetricsService, TracerService},
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	tp, shutdown, err := NewTracerProvider(context.Background(), m.config.ServiceName, m.config.Tracing)
	if err != nil {
		return err
	}
	m.shutdown = shutdown

	ctx.Services().Instance(MetricsService, NewMetrics(*m.config.RuntimeMetrics))
	ctx.Services().Instance(TracerService, tp)

	if m.config.Tracing.Endpoint != "" {
		ctx.Logger.Info("tracing enabled", "endpoint", m.config.Tracing.Endpoint, "sample_ratio", m.config.Tracing.SampleRatio)
	}
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if ep := m.config.Tracing.Endpoint; ep != "" {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("telemetry: tracing.endpoint must be an http/https URL, got %q", ep)
		}
	}
	return nil
}

// Stop implements core.Stopper. It flushes pending spans.
func (m *Module) Stop(ctx context.Context) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}
