package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// ModuleID names a module, e.g. "telegram" or "gateway.http".
type ModuleID string

// Module is the minimal interface every module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module

	// Provides lists the container services the module binds during
	// Provision. App.LoadModules fails if one of them is missing afterwards.
	Provides []string
}

// Configurable modules receive their raw YAML section before Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner modules bind services and build their dependencies.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator modules check their configuration after Provision.
// Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter modules begin background work once every module is loaded.
type Starter interface {
	Start() error
}

// Stopper modules release resources, in reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader modules apply a new configuration section while running.
// ctx.ModuleConfig returns the new section.
type Reloader interface {
	Reload(ctx *AppContext) error
}
