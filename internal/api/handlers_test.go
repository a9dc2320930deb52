// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/signalmesh/relay/internal/auth"
	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	ws "github.com/signalmesh/relay/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			ID:          "srv-test",
			Environment: "development",
		},
		Relay: config.RelayConfig{
			SendBuffer:     16,
			MaxMessageSize: 64 * 1024,
			WriteTimeout:   time.Second,
			PongTimeout:    5 * time.Second,
		},
		Security: config.SecurityConfig{
			AuthMode:          config.AuthModeNone,
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
	}
}

func newTestHandler(cfg *config.Config, jwtManager *auth.JWTManager) (*Handler, *ws.Relay) {
	relay := ws.New(cfg.Server.ID, cfg.Relay, ws.NewRegistry())
	return NewHandler(cfg, relay, jwtManager), relay
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return resp
}

func TestHandler_Health(t *testing.T) {
	handler, _ := newTestHandler(testConfig(), nil)

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("health response should report success")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data has unexpected shape: %T", resp.Data)
	}
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
	if data["server_id"] != "srv-test" {
		t.Errorf("server_id = %v, want srv-test", data["server_id"])
	}
}

func TestHandler_HealthProbes(t *testing.T) {
	handler, _ := newTestHandler(testConfig(), nil)

	rec := httptest.NewRecorder()
	handler.HealthLive(rec, httptest.NewRequest("GET", "/api/v1/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.HealthReady(rec, httptest.NewRequest("GET", "/api/v1/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want %d", rec.Code, http.StatusOK)
	}

	broken := NewHandler(testConfig(), nil, nil)
	rec = httptest.NewRecorder()
	broken.HealthReady(rec, httptest.NewRequest("GET", "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready without relay = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// stubConn satisfies the registry's connection interface for stats tests.
type stubConn struct{}

func (stubConn) Enqueue(ws.Notification) bool { return true }
func (stubConn) Kill()                        {}

func TestHandler_Stats(t *testing.T) {
	handler, relay := newTestHandler(testConfig(), nil)
	relay.Registry().Register("alice", stubConn{})
	relay.Registry().Register("bob", stubConn{})

	rec := httptest.NewRecorder()
	handler.Stats(rec, httptest.NewRequest("GET", "/api/v1/stats", nil))

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data has unexpected shape: %T", resp.Data)
	}
	if got := data["identified_users"].(float64); got != 2 {
		t.Errorf("identified_users = %v, want 2", got)
	}
	if data["server_id"] != "srv-test" {
		t.Errorf("server_id = %v, want srv-test", data["server_id"])
	}
}

func dialWS(t *testing.T, server *httptest.Server, path string, header http.Header) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + path
	return gorillaws.DefaultDialer.Dial(wsURL, header)
}

func TestHandler_WebSocketAnonymousMode(t *testing.T) {
	cfg := testConfig()
	handler, relay := newTestHandler(cfg, nil)
	server := httptest.NewServer(NewRouter(handler, cfg).Setup())
	defer server.Close()

	conn, resp, err := dialWS(t, server, "/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	if err := conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"connection/initiated","userId":"alice"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if relay.Registry().IsConnected("alice") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("alice never registered through the /ws endpoint")
}

func TestHandler_WebSocketJWTMode(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AuthMode = config.AuthModeJWT
	cfg.Security.JWTSecret = "test-secret-key-minimum-32-characters-long"
	cfg.Security.SessionTimeout = time.Hour

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	handler, relay := newTestHandler(cfg, jwtManager)
	server := httptest.NewServer(NewRouter(handler, cfg).Setup())
	defer server.Close()

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := dialWS(t, server, "/ws", nil)
		if err == nil {
			t.Fatal("dial should fail without a token")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 handshake response, got %+v", resp)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		_, resp, err := dialWS(t, server, "/ws?token=not-a-token", nil)
		if err == nil {
			t.Fatal("dial should fail with a bad token")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401 handshake response, got %+v", resp)
		}
	})

	t.Run("valid token pins identity", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("alice")
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}

		header := http.Header{"Authorization": []string{"Bearer " + token}}
		conn, resp, err := dialWS(t, server, "/ws", header)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer func() { _ = conn.Close() }()
		_ = resp.Body.Close()

		// Claiming someone else is dropped; claiming the subject works.
		if err := conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"connection/initiated","userId":"mallory"}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"connection/initiated","userId":"alice"}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if relay.Registry().IsConnected("alice") {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		if !relay.Registry().IsConnected("alice") {
			t.Error("authenticated subject never registered")
		}
		if relay.Registry().IsConnected("mallory") {
			t.Error("connection claimed an identity other than its subject")
		}
	})
}
