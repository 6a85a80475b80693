package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App drives a set of modules through their lifecycle.
type App struct {
	ctx     *AppContext
	modules []loadedModule
	logger  *slog.Logger
}

type loadedModule struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates an App around ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// Context returns the context modules were provisioned with.
func (a *App) Context() *AppContext {
	return a.ctx
}

// LoadModules loads the given modules in order. On failure, modules
// loaded so far are stopped and dropped.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.unwind()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		// Modules without a Start step are live once loaded.
		_, starter := mod.(Starter)
		a.modules = append(a.modules, loadedModule{id: info.ID, module: mod, started: !starter})
		a.logger.Debug("module loaded", "module", string(info.ID))
	}
	return nil
}

// Module returns a loaded module by ID.
func (a *App) Module(id ModuleID) (Module, bool) {
	for _, m := range a.modules {
		if m.id == id {
			return m.module, true
		}
	}
	return nil, false
}

// ModuleIDs lists loaded modules in load order.
func (a *App) ModuleIDs() []ModuleID {
	ids := make([]ModuleID, len(a.modules))
	for i, m := range a.modules {
		ids[i] = m.id
	}
	return ids
}

// Start starts every Starter in load order. If one fails, those already
// started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		m := &a.modules[i]
		s, ok := m.module.(Starter)
		if !ok {
			continue
		}
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(m.id), "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting module %s: %w", m.id, err)
		}
		m.started = true
		a.logger.Debug("module started", "module", string(m.id))
	}
	return nil
}

// Stop stops started modules in reverse order. Modules that have no Start
// step count as started from the moment they load.
func (a *App) Stop() {
	a.stopFrom(len(a.modules) - 1)
}

func (a *App) stopFrom(last int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := last; i >= 0; i-- {
		m := &a.modules[i]
		if !m.started {
			continue
		}
		if s, ok := m.module.(Stopper); ok {
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop failed", "module", string(m.id), "error", err)
			}
		}
		m.started = false
	}
}

// unwind releases modules that were loaded but never started.
func (a *App) unwind() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		if s, ok := a.modules[i].module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.modules = nil
}

// ReloadModules hands ctx, which carries the new module sections, to
// every loaded Reloader. Failures are joined; other modules still reload.
func (a *App) ReloadModules(ctx *AppContext) error {
	var errs []error
	for i := range a.modules {
		m := &a.modules[i]
		r, ok := m.module.(Reloader)
		if !ok {
			continue
		}
		a.logger.Info("reloading module", "module", string(m.id))
		if err := r.Reload(ctx.ForModule(m.id)); err != nil {
			a.logger.Error("module reload failed", "module", string(m.id), "error", err)
			errs = append(errs, fmt.Errorf("reloading module %s: %w", m.id, err))
		}
	}
	return errors.Join(errs...)
}

// Run starts the modules, waits for ctx to end and stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	a.logger.Info("tgclaw running", "modules", len(a.modules))

	<-ctx.Done()
	a.logger.Info("shutting down", "cause", context.Cause(ctx))

	a.Stop()
	return nil
}
