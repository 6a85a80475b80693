package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Result is the outcome of one Bot API call.
//
// A fresh Result starts as the "no call made" sentinel: status 500, error
// flag set, nil body. Results are never reused across calls.
type Result struct {
	status int
	body   any
	raw    []byte
	failed bool
}

func newResult() *Result {
	return &Result{status: http.StatusInternalServerError, failed: true}
}

// asyncResult is what every fire-and-forget call reports, whatever the
// transport did. status is the response code if one arrived, 0 otherwise.
func asyncResult(status int) *Result {
	return &Result{status: status, body: map[string]any{}}
}

// decodeResult parses a response body. The error flag is cleared only by an
// explicit boolean "ok": true; bodies that are not JSON or have no boolean
// "ok" count as failures. Data after the first JSON value makes the body
// unparseable.
func decodeResult(status int, raw []byte) *Result {
	res := &Result{status: status, raw: raw, failed: true}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil || !atEOF(dec) {
		res.body = string(raw)
		return res
	}
	res.body = body

	if m, ok := body.(map[string]any); ok {
		if v, ok := m["ok"].(bool); ok {
			res.failed = !v
		}
	}
	return res
}

// invalidParams mirrors the envelope the API would send for a rejected
// request, without performing one.
func invalidParams() *Result {
	return &Result{
		status: http.StatusInternalServerError,
		body:   map[string]any{"ok": false, "result": "Invalid params"},
		failed: true,
	}
}

// Result returns the call body: the decoded JSON value (numbers as
// json.Number), a diagnostic string after a transport failure, or an empty
// map in async mode.
func (r *Result) Result() any {
	return r.body
}

// Content is an alias for Result.
func (r *Result) Content() any {
	return r.Result()
}

// Response is an alias for Result.
func (r *Result) Response() any {
	return r.Result()
}

// StatusCode returns the HTTP status of the call.
func (r *Result) StatusCode() int {
	return r.status
}

// HasError reports whether the call failed at the transport or API level.
func (r *Result) HasError() bool {
	return r.failed
}

// Raw returns the undecoded response body, if one was read.
func (r *Result) Raw() []byte {
	return r.raw
}

// Decode unmarshals the "result" field of a successful response into v.
func (r *Result) Decode(v any) error {
	if r.failed {
		return fmt.Errorf("telegram: cannot decode failed call (status %d)", r.status)
	}
	if len(r.raw) == 0 {
		return errors.New("telegram: no response body to decode")
	}

	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(r.raw, &env); err != nil {
		return fmt.Errorf("telegram: decode envelope: %w", err)
	}
	if len(env.Result) == 0 {
		return errors.New("telegram: response has no result field")
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		return fmt.Errorf("telegram: decode result: %w", err)
	}
	return nil
}
