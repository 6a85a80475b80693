package config

import (
	"strings"
	"testing"
	"time"

	"github.com/flemzord/tgclaw/internal/core"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

type stubModule struct {
	id       string
	provides []string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:       core.ModuleID(m.id),
		Provides: m.provides,
		New:      func() core.Module { return &stubModule{id: m.id, provides: m.provides} },
	}
}

func registerStub(t *testing.T, id string, provides ...string) {
	t.Helper()
	core.RegisterModule(&stubModule{id: id, provides: provides})
}

func TestValidate(t *testing.T) {
	known := "validate.known"
	registerStub(t, known)

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{Version: "1", Modules: map[string]yaml.Node{known: {}}},
		},
		{
			name:    "missing version",
			cfg:     Config{Modules: map[string]yaml.Node{known: {}}},
			wantErr: "version field is required",
		},
		{
			name:    "unsupported version",
			cfg:     Config{Version: "99", Modules: map[string]yaml.Node{known: {}}},
			wantErr: "unsupported version",
		},
		{
			name:    "no modules",
			cfg:     Config{Version: "1"},
			wantErr: "at least one module",
		},
		{
			name:    "unknown module",
			cfg:     Config{Version: "1", Modules: map[string]yaml.Node{"nope": {}}},
			wantErr: `unknown module "nope"`,
		},
		{
			name:    "bad log level",
			cfg:     Config{Version: "1", Log: LogConfig{Level: "loud"}, Modules: map[string]yaml.Node{known: {}}},
			wantErr: "log.level",
		},
		{
			name:    "bad log format",
			cfg:     Config{Version: "1", Log: LogConfig{Format: "xml"}, Modules: map[string]yaml.Node{known: {}}},
			wantErr: "log.format",
		},
		{
			name:    "negative reload interval",
			cfg:     Config{Version: "1", Reload: ReloadConfig{Watch: true, Interval: -time.Second}, Modules: map[string]yaml.Node{known: {}}},
			wantErr: "reload.interval",
		},
		{
			name: "log settings are case-insensitive",
			cfg:  Config{Version: "1", Log: LogConfig{Level: "DEBUG", Format: "JSON"}, Modules: map[string]yaml.Node{known: {}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	err := Validate(&Config{Version: "2", Modules: map[string]yaml.Node{"a.missing": {}, "b.missing": {}}})
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"unsupported version", `"a.missing"`, `"b.missing"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestResolve_ProvidersFirst(t *testing.T) {
	registerStub(t, "resolve.consumer.a")
	registerStub(t, "resolve.consumer.b")
	registerStub(t, "resolve.provider", "resolve.service")

	cfg := &Config{Modules: map[string]yaml.Node{
		"resolve.consumer.b": {},
		"resolve.provider":   {},
		"resolve.consumer.a": {},
	}}

	want := []string{"resolve.provider", "resolve.consumer.a", "resolve.consumer.b"}
	if diff := cmp.Diff(want, Resolve(cfg)); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}
