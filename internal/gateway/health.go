package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	BotUsername string `json:"bot_username,omitempty"`
	Async       bool   `json:"async"`

	// LastStatus is the HTTP status of the most recent Bot API call.
	LastStatus int    `json:"last_status"`
	LastOK     bool   `json:"last_ok"`
	Uptime     string `json:"uptime"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		last := g.client.Last()
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:      "ok",
			BotUsername: g.client.BotUsername(),
			Async:       g.client.Async(),
			LastStatus:  last.StatusCode(),
			LastOK:      !last.HasError(),
			Uptime:      time.Since(g.startedAt).Round(time.Second).String(),
		})
	}
}
