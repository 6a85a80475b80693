package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("TGCLAW_TEST_TOKEN", "123456:abc")

	cfg, err := Parse([]byte(`
version: "1"
log:
  level: ${TGCLAW_TEST_LEVEL:-debug}
modules:
  telegram:
    token: ${TGCLAW_TEST_TOKEN}
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want default debug", cfg.Log.Level)
	}

	node := cfg.Modules["telegram"]
	var tg struct {
		Token string `yaml:"token"`
	}
	if err := node.Decode(&tg); err != nil {
		t.Fatal(err)
	}
	if tg.Token != "123456:abc" {
		t.Errorf("token = %q, want expanded value", tg.Token)
	}
}

func TestParse_UnresolvedVariables(t *testing.T) {
	_, err := Parse([]byte("a: ${TGCLAW_UNSET_ONE}\nb: ${TGCLAW_UNSET_TWO}\n"))
	if err == nil {
		t.Fatal("Parse() should fail on unresolved variables")
	}
	for _, name := range []string{"TGCLAW_UNSET_ONE", "TGCLAW_UNSET_TWO"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name %s", err, name)
		}
	}
}

func TestParse_EmptyDefault(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\ndata_dir: \"${TGCLAW_UNSET_DIR:-}\"\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.DataDir != "" {
		t.Errorf("data_dir = %q, want empty", cfg.DataDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestFindPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if got, _ := FindPath("explicit.yaml"); got != "explicit.yaml" {
		t.Errorf("FindPath(explicit) = %q", got)
	}

	if _, err := FindPath(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindPath() error = %v, want ErrNotFound", err)
	}

	want := filepath.Join(xdg, "tgclaw", FileName)
	if DefaultPath() != want {
		t.Errorf("DefaultPath() = %q, want %q", DefaultPath(), want)
	}
	if err := os.MkdirAll(filepath.Dir(want), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FindPath("")
	if err != nil {
		t.Fatalf("FindPath() error: %v", err)
	}
	if got != want {
		t.Errorf("FindPath() = %q, want %q", got, want)
	}
}
