// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalmesh/relay/internal/auth"
	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	ws "github.com/signalmesh/relay/internal/websocket"
)

// Handler holds dependencies for all HTTP endpoints.
//
// Dependencies:
//   - cfg: Application configuration
//   - relay: WebSocket relay for upgrades and presence stats
//   - jwtManager: JWT token manager, nil when auth mode is "none"
type Handler struct {
	cfg        *config.Config
	relay      *ws.Relay
	jwtManager *auth.JWTManager
	startTime  time.Time
}

// NewHandler creates the endpoint handler set.
func NewHandler(cfg *config.Config, relay *ws.Relay, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		cfg:        cfg,
		relay:      relay,
		jwtManager: jwtManager,
		startTime:  time.Now(),
	}
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates browser WebSocket origins. Requests without
// an Origin header come from non-browser clients (mobile apps, scripts) and
// pass; browsers always send one and it must match the configured list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and attaches it to the relay.
//
// In jwt auth mode the request must carry a valid bearer token (header or
// token query parameter); the token's subject pins the identity the
// connection may claim in its identification frame.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		logging.Warn().Msg("websocket connection rejected: relay not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	var boundSubject string
	if h.cfg.Security.AuthMode == config.AuthModeJWT {
		token := auth.TokenFromRequest(r)
		if token == "" {
			NewResponseWriter(w, r).Unauthorized("Missing bearer token")
			return
		}
		claims, err := h.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("websocket token rejected")
			NewResponseWriter(w, r).Unauthorized("Invalid or expired token")
			return
		}
		boundSubject = claims.UserID()
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		logging.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	h.relay.Attach(conn, boundSubject)
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status        string  `json:"status"`
	ServerID      string  `json:"server_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Connections   int     `json:"connections"`
	Version       string  `json:"version"`
}

// Version is set at build time via -ldflags.
var Version = "dev"

// Health reports overall service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, HealthStatus{
		Status:        "healthy",
		ServerID:      h.relay.ServerID(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Connections:   h.relay.ClientCount(),
		Version:       Version,
	})
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. The relay has no warm-up phase, so
// ready tracks liveness unless the relay is missing entirely.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		NewResponseWriter(w, r).ServiceUnavailable("relay not initialized")
		return
	}
	WriteSuccess(w, r, map[string]string{"status": "ready"})
}

// StatsResponse is the stats endpoint payload.
type StatsResponse struct {
	ServerID        string  `json:"server_id"`
	OpenConnections int     `json:"open_connections"`
	IdentifiedUsers int     `json:"identified_users"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// Stats reports presence counters for operators and dashboards.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, StatsResponse{
		ServerID:        h.relay.ServerID(),
		OpenConnections: h.relay.ClientCount(),
		IdentifiedUsers: h.relay.Registry().Len(),
		UptimeSeconds:   time.Since(h.startTime).Seconds(),
	})
}
