// Package core holds the module system of tgclaw: a registry of modules
// filled from init functions, a service container the modules bind into,
// and the App that drives their lifecycle.
package core

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// AppContext is handed to every module during provisioning. All copies
// derived from one root share the same service container.
type AppContext struct {
	// Logger is scoped to the current module.
	Logger *slog.Logger

	// DataDir is where modules may keep state across runs.
	DataDir string

	services      *Container
	rootLogger    *slog.Logger
	moduleConfigs map[string]yaml.Node
	module        ModuleID
}

// NewAppContext creates a root context with an empty container.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:     logger,
		DataDir:    dataDir,
		services:   NewContainer(),
		rootLogger: logger,
	}
}

// Services returns the shared container.
func (ctx *AppContext) Services() *Container {
	return ctx.services
}

// RegisterService binds a ready value in the shared container.
func (ctx *AppContext) RegisterService(name string, v any) {
	ctx.services.Instance(name, v)
}

// GetService resolves a service, reporting false when it is missing or
// its factory fails.
func (ctx *AppContext) GetService(name string) (any, bool) {
	v, err := ctx.services.Make(name)
	if err != nil {
		return nil, false
	}
	return v, true
}

// WithModuleConfigs returns a copy carrying the raw YAML section of each
// module, keyed by module ID.
func (ctx *AppContext) WithModuleConfigs(configs map[string]yaml.Node) *AppContext {
	cp := *ctx
	cp.moduleConfigs = configs
	return &cp
}

// ForModule returns a copy whose logger carries the module ID.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	cp := *ctx
	cp.Logger = ctx.rootLogger.With("module", string(id))
	cp.module = id
	return &cp
}

// ModuleConfig returns the raw section of the module the context was
// derived for, or an empty mapping when there is none.
func (ctx *AppContext) ModuleConfig() *yaml.Node {
	if node, ok := ctx.moduleConfigs[string(ctx.module)]; ok {
		return &node
	}
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// LoadModule builds a module and runs it through
// New, Configure, Provision and Validate. A module without a config
// section is configured with an empty mapping so defaults still apply.
func (ctx *AppContext) LoadModule(id string) (Module, error) {
	info, ok := GetModule(id)
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", id)
	}

	mod := info.New()

	if c, ok := mod.(Configurable); ok {
		if err := c.Configure(ctx.ForModule(info.ID).ModuleConfig()); err != nil {
			return nil, fmt.Errorf("configuring module %s: %w", id, err)
		}
	}

	if p, ok := mod.(Provisioner); ok {
		if err := p.Provision(ctx.ForModule(info.ID)); err != nil {
			return nil, fmt.Errorf("provisioning module %s: %w", id, err)
		}
	}

	for _, name := range info.Provides {
		if !ctx.services.Bound(name) {
			return nil, fmt.Errorf("module %s did not bind service %q", id, name)
		}
	}

	if v, ok := mod.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating module %s: %w", id, err)
		}
	}

	return mod, nil
}
