package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/core"
	"github.com/flemzord/tgclaw/internal/security"
	tg "github.com/flemzord/tgclaw/pkg/telegram"
)

const testToken = "123456:test-token-abcdefghijklmnopqrstuvwxyz"

type fakeAPI struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
	body  map[string]any
}

func newFakeAPI(t *testing.T, meOK bool) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		api.mu.Lock()
		api.paths = append(api.paths, r.URL.Path)
		api.body = body
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe") && !meOK:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":123456,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

func moduleConfig(t *testing.T, src string) map[string]yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return map[string]yaml.Node{"telegram": *doc.Content[0]}
}

func loadModule(t *testing.T, cfg string) (*core.AppContext, core.Module) {
	t.Helper()
	ctx := core.NewAppContext(nil, t.TempDir()).WithModuleConfigs(moduleConfig(t, cfg))
	ctx.RegisterService("security.credentials", security.NewCredentialStore())

	mod, err := ctx.LoadModule("telegram")
	if err != nil {
		t.Fatalf("LoadModule() error: %v", err)
	}
	return ctx, mod
}

func TestLifecycle(t *testing.T) {
	api := newFakeAPI(t, true)

	ctx, mod := loadModule(t, `
token: `+testToken+`
bot_username: relay_bot
api_url: `+api.URL+`
verify_on_start: true
methods: [sendChatAction]
chats:
  default: -1001234567890
  ops: "@ops"
`)

	if err := mod.(core.Starter).Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := api.calls(); len(got) != 1 || got[0] != "/bot"+testToken+"/getMe" {
		t.Fatalf("calls after Start = %v, want one getMe", got)
	}

	client, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext() error: %v", err)
	}
	if client.BotUsername() != "relay_bot" {
		t.Errorf("BotUsername() = %q", client.BotUsername())
	}

	res, err := client.SendMessage(context.Background(), "default", "deploy finished", "", nil)
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if res.HasError() {
		t.Fatalf("SendMessage() failed: %v", res.Result())
	}
	api.mu.Lock()
	chatID := api.body["chat_id"]
	api.mu.Unlock()
	if chatID != float64(-1001234567890) {
		t.Errorf("chat_id = %v, want the aliased id", chatID)
	}

	if _, err := client.Invoke(context.Background(), http.MethodPost, "sendChatAction", tg.Params{"chat_id": 1}); err != nil {
		t.Errorf("configured method should be allow-listed: %v", err)
	}
}

func TestProvision_BindsAliasAndCredential(t *testing.T) {
	ctx, _ := loadModule(t, "token: "+testToken+"\n")

	a, err := ctx.Services().Make(ServiceName)
	if err != nil {
		t.Fatalf("Make(%s) error: %v", ServiceName, err)
	}
	b, err := ctx.Services().Make(ServiceAlias)
	if err != nil {
		t.Fatalf("Make(%s) error: %v", ServiceAlias, err)
	}
	if a != b {
		t.Error("alias should resolve to the same singleton client")
	}

	store, _ := ctx.GetService("security.credentials")
	if v, _ := store.(*security.CredentialStore).Get("telegram.token"); v != testToken {
		t.Errorf("credential store token = %q, want the configured token", v)
	}
}

func TestStart_VerifyFails(t *testing.T) {
	api := newFakeAPI(t, false)
	_, mod := loadModule(t, "token: "+testToken+"\napi_url: "+api.URL+"\nverify_on_start: true\n")

	err := mod.(core.Starter).Start()
	if err == nil {
		t.Fatal("Start() should fail when getMe is rejected")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestStart_NoVerify(t *testing.T) {
	api := newFakeAPI(t, false)
	_, mod := loadModule(t, "token: "+testToken+"\napi_url: "+api.URL+"\n")

	if err := mod.(core.Starter).Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := api.calls(); len(got) != 0 {
		t.Errorf("calls = %v, want none without verify_on_start", got)
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.APIURL != tg.DefaultEndpoint || c.Timeout != 60*time.Second || c.AsyncTimeout != time.Second {
		t.Errorf("defaults = %+v", c)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "valid", config: Config{Token: testToken}},
		{name: "missing token", config: Config{}, wantErr: "token is required"},
		{name: "malformed token", config: Config{Token: "nope"}, wantErr: "token format invalid"},
		{name: "bad api url", config: Config{Token: testToken, APIURL: "ftp://example.com"}, wantErr: "api_url"},
		{name: "negative timeout", config: Config{Token: testToken, Timeout: -time.Second}, wantErr: "telegram: timeout must not be negative"},
		{name: "negative async timeout", config: Config{Token: testToken, AsyncTimeout: -time.Second}, wantErr: "async_timeout must not be negative"},
		{name: "bad chat id", config: Config{Token: testToken, Chats: map[string]any{"x": 1.5}}, wantErr: "chats.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			cfg.defaults()
			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFromContext_NotConfigured(t *testing.T) {
	if _, err := FromContext(core.NewAppContext(nil, "")); err == nil {
		t.Fatal("FromContext() should fail without the telegram module")
	}
}

func TestReload(t *testing.T) {
	api := newFakeAPI(t, true)
	base := "token: " + testToken + "\napi_url: " + api.URL + "\n"

	ctx, mod := loadModule(t, base+"chats:\n  ops: -1001\n")
	client, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext() error: %v", err)
	}

	next := ctx.WithModuleConfigs(moduleConfig(t, base+"async: true\nmethods: [getChat]\nchats:\n  alerts: -2002\n"))
	if err := mod.(core.Reloader).Reload(next.ForModule("telegram")); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	if got := client.ChatAliases(); len(got) != 1 || got["alerts"] != -2002 {
		t.Errorf("ChatAliases() = %v, want only alerts", got)
	}
	if !client.Async() {
		t.Error("Async() = false after reload")
	}
	if _, err := client.Invoke(context.Background(), http.MethodGet, "getChat", nil); err != nil {
		t.Errorf("getChat should be allow-listed after reload: %v", err)
	}
}

func TestReload_RejectsRestartOnlyChanges(t *testing.T) {
	api := newFakeAPI(t, true)
	ctx, mod := loadModule(t, "token: "+testToken+"\napi_url: "+api.URL+"\n")

	tests := map[string]string{
		"token":   "token: 654321:another-token-abcdefghijklmnopqrstu\napi_url: " + api.URL + "\n",
		"api_url": "token: " + testToken + "\napi_url: http://127.0.0.1:1\n",
		"invalid": "token: nope\n",
	}
	for name, cfg := range tests {
		next := ctx.WithModuleConfigs(moduleConfig(t, cfg))
		if err := mod.(core.Reloader).Reload(next.ForModule("telegram")); err == nil {
			t.Errorf("%s: Reload() error = nil, want failure", name)
		}
	}
}
