package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgclaw/internal/security"
	"github.com/flemzord/tgclaw/pkg/telegram"
)

// Envelope is the body of every relay response.
type Envelope struct {
	OK         bool `json:"ok"`
	StatusCode int  `json:"status_code"`
	Result     any  `json:"result"`
}

// NotifyRequest is the body of POST /notify. Chat is an alias or a chat
// ID, given as a string or a number.
type NotifyRequest struct {
	Chat      any    `json:"chat"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`

	// Silent maps to disable_notification.
	Silent bool `json:"silent,omitempty"`
}

func (g *Gateway) handleNotify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NotifyRequest
		if err := g.decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		chat := chatString(req.Chat)
		if chat == "" || req.Text == "" {
			writeError(w, http.StatusBadRequest, "chat and text are required")
			return
		}

		var extra telegram.Params
		if req.Silent {
			extra = telegram.Params{"disable_notification": true}
		}
		res, err := g.client.SendMessage(r.Context(), chat, req.Text, req.ParseMode, extra)
		g.writeResult(w, res, err)
	}
}

// handleAPI relays any Bot API method. POST takes a JSON object of
// parameters; GET sends the query string as parameters over GET.
func (g *Gateway) handleAPI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := chi.URLParam(r, "method")
		if len(g.config.APIMethods) > 0 && !slices.Contains(g.config.APIMethods, method) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %q", telegram.ErrUnknownResource, method))
			return
		}

		params := telegram.Params{}
		if r.Method == http.MethodGet {
			for key, values := range r.URL.Query() {
				params[key] = values[len(values)-1]
			}
			params["method"] = http.MethodGet
		} else if err := g.decodeBody(r, &params); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := g.client.Call(r.Context(), method, params)
		g.writeResult(w, res, err)
	}
}

// decodeBody reads a bounded JSON body into v. An empty body leaves v as is.
func (g *Gateway) decodeBody(r *http.Request, v any) error {
	data, err := security.ReadBody(r.Body, g.config.MaxBodyBytes)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := security.CheckJSONDepth(data, 0); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: unexpected data after JSON value")
	}
	return nil
}

// writeResult maps a call outcome to an HTTP response: 200 for a
// successful call, 502 for a failed one, 404 for a rejected method name.
func (g *Gateway) writeResult(w http.ResponseWriter, res *telegram.Result, err error) {
	if errors.Is(err, telegram.ErrUnknownResource) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := res.Result()
	if s, ok := body.(string); ok {
		// Transport failures embed the request URL, token included.
		body = g.redactor.Redact(s)
	}

	status := http.StatusOK
	if res.HasError() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, Envelope{OK: !res.HasError(), StatusCode: res.StatusCode(), Result: body})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{StatusCode: status, Result: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func chatString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case json.Number:
		return c.String()
	default:
		return ""
	}
}
