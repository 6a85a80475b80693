package telegram

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// capturedRequest is what the fake Bot API saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
	Raw    []byte
}

// fakeAPI records every request and answers with respond.
type fakeAPI struct {
	t       *testing.T
	srv     *httptest.Server
	mu      sync.Mutex
	reqs    []capturedRequest
	respond func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, respond: respond}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		captured := capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Raw:    raw,
		}
		if len(raw) > 0 {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&captured.Body); err != nil {
				t.Errorf("request body is not a JSON object: %v (%s)", err, raw)
			}
		}
		f.mu.Lock()
		f.reqs = append(f.reqs, captured)
		f.mu.Unlock()

		if f.respond != nil {
			f.respond(w, r)
			return
		}
		writeJSON(t, w, map[string]any{"ok": true, "result": true})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) requests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedRequest, len(f.reqs))
	copy(out, f.reqs)
	return out
}

func (f *fakeAPI) last() capturedRequest {
	f.t.Helper()
	reqs := f.requests()
	if len(reqs) == 0 {
		f.t.Fatal("no request reached the fake API")
	}
	return reqs[len(reqs)-1]
}

func (f *fakeAPI) client(opts ...Option) *Client {
	opts = append([]Option{WithEndpoint(f.srv.URL)}, opts...)
	return NewClient(Credentials{Token: "TEST_TOKEN", BotUsername: "test_bot"}, opts...)
}
