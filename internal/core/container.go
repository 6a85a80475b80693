package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrServiceNotFound is returned by Make for names nothing is bound to.
var ErrServiceNotFound = errors.New("core: service not found")

// Factory builds a service on demand.
type Factory func(c *Container) (any, error)

type binding struct {
	factory Factory
	shared  bool
}

// Container is a small service container. Services are bound by name as
// shared singletons, per-resolve factories or ready instances, and can be
// reached through aliases. All methods are safe for concurrent use.
type Container struct {
	s     *containerState
	chain []string // names being built on this resolution path
}

type containerState struct {
	mu        sync.Mutex
	bindings  map[string]binding
	instances map[string]any
	aliases   map[string]string
	inflight  map[string]chan struct{}
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{s: &containerState{
		bindings:  make(map[string]binding),
		instances: make(map[string]any),
		aliases:   make(map[string]string),
		inflight:  make(map[string]chan struct{}),
	}}
}

// Singleton binds a factory whose result is built once and then shared.
// Rebinding drops any instance already built.
func (c *Container) Singleton(name string, f Factory) {
	c.bind(name, binding{factory: f, shared: true})
}

// Bind binds a factory that runs on every Make.
func (c *Container) Bind(name string, f Factory) {
	c.bind(name, binding{factory: f})
}

func (c *Container) bind(name string, b binding) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.instances, name)
	delete(c.s.aliases, name)
	c.s.bindings[name] = b
}

// Instance binds an existing value.
func (c *Container) Instance(name string, v any) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.bindings, name)
	delete(c.s.aliases, name)
	c.s.instances[name] = v
}

// Alias makes alias resolve to target.
func (c *Container) Alias(alias, target string) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.aliases[alias] = target
}

// Bound reports whether name (or what it aliases) can be resolved.
func (c *Container) Bound(name string) bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	name = c.s.canonical(name)
	_, hasInstance := c.s.instances[name]
	_, hasBinding := c.s.bindings[name]
	return hasInstance || hasBinding
}

// Names returns every bound name and alias, sorted.
func (c *Container) Names() []string {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	set := make(map[string]struct{})
	for _, m := range []map[string]struct{}{keySet(c.s.bindings), keySet(c.s.instances), keySet(c.s.aliases)} {
		maps.Copy(set, m)
	}
	return slices.Sorted(maps.Keys(set))
}

// Make resolves a service by name or alias. Concurrent first resolutions
// of a singleton wait for a single build.
func (c *Container) Make(name string) (any, error) {
	s := c.s
	s.mu.Lock()
	name = s.canonical(name)
	if v, ok := s.instances[name]; ok {
		s.mu.Unlock()
		return v, nil
	}
	b, ok := s.bindings[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	if slices.Contains(c.chain, name) {
		s.mu.Unlock()
		return nil, fmt.Errorf("core: circular dependency: %s -> %s", strings.Join(c.chain, " -> "), name)
	}
	if b.shared {
		if wait, busy := s.inflight[name]; busy {
			s.mu.Unlock()
			<-wait
			return c.Make(name)
		}
		s.inflight[name] = make(chan struct{})
	}
	s.mu.Unlock()

	// The factory runs unlocked with a view that remembers the path, so it
	// can Make its own dependencies.
	sub := &Container{s: s, chain: append(slices.Clone(c.chain), name)}
	v, err := b.factory(sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	if b.shared {
		close(s.inflight[name])
		delete(s.inflight, name)
	}
	if err != nil {
		return nil, fmt.Errorf("core: building %s: %w", name, err)
	}
	if b.shared {
		s.instances[name] = v
	}
	return v, nil
}

// canonical follows aliases. Callers hold s.mu.
func (s *containerState) canonical(name string) string {
	seen := map[string]bool{}
	for {
		target, ok := s.aliases[name]
		if !ok || seen[name] {
			return name
		}
		seen[name] = true
		name = target
	}
}

// Resolve is a typed Make.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.Make(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("core: service %s is %T, not %T", name, v, zero)
	}
	return t, nil
}

func keySet[V any](m map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
