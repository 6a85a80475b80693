package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, store *CredentialStore) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, NewRedactor(store)))
}

func TestRedactingHandler(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.Set("gateway.password", "super-secret-value")

	tests := []struct {
		name string
		log  func(*slog.Logger)
	}{
		{name: "message", log: func(l *slog.Logger) { l.Info("token " + testToken) }},
		{name: "attribute", log: func(l *slog.Logger) { l.Info("call", "password", "super-secret-value") }},
		{name: "error value", log: func(l *slog.Logger) { l.Warn("failed", "error", errors.New("bad token "+testToken)) }},
		{name: "group", log: func(l *slog.Logger) { l.Info("call", slog.Group("req", "url", "https://api.telegram.org/bot"+testToken+"/getMe")) }},
		{name: "with attrs", log: func(l *slog.Logger) { l.With("password", "super-secret-value").Info("ready") }},
		{name: "with group", log: func(l *slog.Logger) { l.WithGroup("tg").Info("call", "token", testToken) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.log(newTestLogger(&buf, store))

			out := buf.String()
			for _, secret := range []string{testToken, "super-secret-value"} {
				if strings.Contains(out, secret) {
					t.Errorf("secret leaked: %s", out)
				}
			}
			if !strings.Contains(out, RedactPlaceholder) {
				t.Errorf("placeholder missing: %s", out)
			}
		})
	}
}

func TestRedactingHandler_KeepsSafeValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf, nil).Info("sent", "chat", "42", "status", 200)

	out := buf.String()
	for _, want := range []string{"chat=42", "status=200"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRedactingHandler(inner, NewRedactor(nil))
	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("Info should be disabled under a Warn handler")
	}
}
