package telegram

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	got, err := ParseParams([]byte(`{"chat_id":-1001234567890123456,"text":"hi","opts":{"a":[1]}}` + "\n"))
	if err != nil {
		t.Fatalf("ParseParams() error: %v", err)
	}
	want := Params{
		"chat_id": json.Number("-1001234567890123456"),
		"text":    "hi",
		"opts":    map[string]any{"a": []any{json.Number("1")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseParams() mismatch (-want +got):\n%s", diff)
	}

	empty, err := ParseParams([]byte(`{}`))
	if err != nil || empty == nil {
		t.Errorf("ParseParams({}) = %v, %v; want an empty non-nil map", empty, err)
	}
}

func TestParseParams_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          string
		notAnObject bool
	}{
		{name: "null", in: "null", notAnObject: true},
		{name: "array", in: "[1,2]", notAnObject: true},
		{name: "number", in: "42", notAnObject: true},
		{name: "string", in: `"x"`, notAnObject: true},
		{name: "syntax error", in: "{nope"},
		{name: "empty", in: ""},
		{name: "trailing data", in: `{"a":1} trailing`},
		{name: "two objects", in: `{"a":1}{"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseParams([]byte(tt.in))
			if err == nil {
				t.Fatalf("ParseParams(%q) = %v, want error", tt.in, got)
			}
			if errors.Is(err, ErrParamsNotObject) != tt.notAnObject {
				t.Errorf("errors.Is(err, ErrParamsNotObject) = %v, want %v (err: %v)", !tt.notAnObject, tt.notAnObject, err)
			}
		})
	}
}
