package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestAppContext_ForModule(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := NewAppContext(logger, "/data")
	child := ctx.ForModule("telegram")
	child.Logger.Info("hello")

	if !strings.Contains(buf.String(), "module=telegram") {
		t.Errorf("child logger output = %q, want module=telegram", buf.String())
	}
	if child.Services() != ctx.Services() {
		t.Error("child context must share the parent container")
	}
}

func TestAppContext_RegisterService(t *testing.T) {
	ctx := NewAppContext(nil, "")
	ctx.ForModule("a").RegisterService("answer", 42)

	v, ok := ctx.GetService("answer")
	if !ok || v != 42 {
		t.Errorf("GetService(answer) = %v, %v; want 42, true", v, ok)
	}
	if _, ok := ctx.GetService("missing"); ok {
		t.Error("GetService(missing) should report false")
	}
}

func TestAppContext_LoadModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&trackingModule{id: "test.loadmod", calls: &calls})

	mod, err := NewAppContext(nil, "").LoadModule("test.loadmod")
	if err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}
	if mod == nil {
		t.Fatal("LoadModule() returned nil module")
	}
	want := "configure,provision,validate"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("lifecycle = %s, want %s", got, want)
	}
}

func TestAppContext_LoadModule_PassesConfig(t *testing.T) {
	t.Cleanup(resetRegistry)

	var seen string
	RegisterModule(&trackingModule{id: "test.cfg", onConfigure: func(n *yaml.Node) {
		var cfg struct {
			Name string `yaml:"name"`
		}
		_ = n.Decode(&cfg)
		seen = cfg.Name
	}})

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("name: relay\n"), &node); err != nil {
		t.Fatal(err)
	}
	ctx := NewAppContext(nil, "").WithModuleConfigs(map[string]yaml.Node{"test.cfg": *node.Content[0]})
	if _, err := ctx.LoadModule("test.cfg"); err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}
	if seen != "relay" {
		t.Errorf("configured name = %q, want relay", seen)
	}
}

func TestAppContext_LoadModule_MissingConfigIsEmptyMap(t *testing.T) {
	t.Cleanup(resetRegistry)

	var kind yaml.Kind
	RegisterModule(&trackingModule{id: "test.nocfg", onConfigure: func(n *yaml.Node) { kind = n.Kind }})

	if _, err := NewAppContext(nil, "").LoadModule("test.nocfg"); err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}
	if kind != yaml.MappingNode {
		t.Errorf("node kind = %v, want mapping", kind)
	}
}

func TestAppContext_LoadModule_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  *trackingModule
		load string
	}{
		{name: "unknown", mod: &trackingModule{id: "test.known"}, load: "test.unknown"},
		{name: "provision", mod: &trackingModule{id: "test.prov", provisionErr: errors.New("boom")}, load: "test.prov"},
		{name: "validate", mod: &trackingModule{id: "test.val", validateErr: errors.New("boom")}, load: "test.val"},
		{name: "missing provided service", mod: &trackingModule{id: "test.provides", provides: []string{"never.bound"}}, load: "test.provides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)
			RegisterModule(tt.mod)
			if _, err := NewAppContext(nil, "").LoadModule(tt.load); err == nil {
				t.Fatal("LoadModule() should fail")
			}
		})
	}
}

func TestAppContext_LoadModule_ProvidesSatisfied(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{
		id:       "test.binds",
		provides: []string{"thing"},
		onProvision: func(ctx *AppContext) {
			ctx.Services().Singleton("thing", func(*Container) (any, error) { return "ok", nil })
		},
	})

	if _, err := NewAppContext(nil, "").LoadModule("test.binds"); err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}
}

// trackingModule records the lifecycle calls it receives.
type trackingModule struct {
	id           ModuleID
	provides     []string
	calls        *[]string
	onConfigure  func(*yaml.Node)
	onProvision  func(*AppContext)
	provisionErr error
	validateErr  error
	startErr     error
	stopped      *[]ModuleID
}

func (m *trackingModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID:       m.id,
		Provides: m.provides,
		New: func() Module {
			cp := *m
			return &cp
		},
	}
}

func (m *trackingModule) record(call string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, call)
	}
}

func (m *trackingModule) Configure(node *yaml.Node) error {
	m.record("configure")
	if m.onConfigure != nil {
		m.onConfigure(node)
	}
	return nil
}

func (m *trackingModule) Provision(ctx *AppContext) error {
	m.record("provision")
	if m.onProvision != nil {
		m.onProvision(ctx)
	}
	return m.provisionErr
}

func (m *trackingModule) Validate() error {
	m.record("validate")
	return m.validateErr
}

func (m *trackingModule) Start() error {
	m.record("start")
	return m.startErr
}

func (m *trackingModule) Stop(_ context.Context) error {
	m.record("stop")
	if m.stopped != nil {
		*m.stopped = append(*m.stopped, m.id)
	}
	return nil
}

var (
	_ Configurable = (*trackingModule)(nil)
	_ Provisioner  = (*trackingModule)(nil)
	_ Validator    = (*trackingModule)(nil)
	_ Starter      = (*trackingModule)(nil)
	_ Stopper      = (*trackingModule)(nil)
)
