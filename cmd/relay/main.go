// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package main is the entry point for the Signalmesh relay server.
//
// The relay keeps one WebSocket per signed-in user and pushes small typed
// wake-up notifications: a new chat message, a profile change. Clients
// connect to /ws, identify with a connection/initiated frame, and receive
// notifications addressed to their userId until they disconnect.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Server identity: Resolve the per-instance serverId used for fan-out dedup
//  3. Authentication: Configure JWT or no-auth mode for the /ws upgrade
//  4. Relay: Presence registry and frame dispatch
//  5. NATS bridge (optional): Forward upstream fan-out events into the relay
//  6. HTTP Server: /ws upgrade endpoint, health probes, stats, Prometheus metrics
//
// All long-running components run under a suture supervision tree.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables
//   - Config file (relay.yaml, path via CONFIG_PATH)
//   - Built-in defaults
//
// Key variables:
//   - SERVER_ID: stable identity of this instance for the user/updated dedup
//     guard; auto-generated (with a warning) when unset
//   - AUTH_MODE: "jwt" (default "none"); jwt requires JWT_SECRET (32+ chars)
//   - NATS_ENABLED, NATS_URL: upstream event bridge (requires -tags nats)
//
// # Build Tags
//
//	go build ./cmd/relay              # No broker; clients and HTTP only
//	go build -tags nats ./cmd/relay   # Enable the NATS upstream bridge
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// listener drains (10s timeout) and every WebSocket client is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/signalmesh/relay/internal/api"
	"github.com/signalmesh/relay/internal/auth"
	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/supervisor"
	"github.com/signalmesh/relay/internal/supervisor/services"
	ws "github.com/signalmesh/relay/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Signalmesh relay with supervisor tree")

	serverID := resolveServerID(cfg)

	logging.Info().
		Str("server_id", serverID).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Configuration loaded")

	var jwtManager *auth.JWTManager
	switch cfg.Security.AuthMode {
	case config.AuthModeJWT:
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	case config.AuthModeNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Any client may connect and identify as ANY userId!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  NEVER use AUTH_MODE=none on public networks!")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Any website may open WebSocket connections to this relay.")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins in production:")
		logging.Warn().Msg("    CORS_ORIGINS=https://yourdomain.com,https://app.yourdomain.com")
		logging.Warn().Msg("============================================================")
	}

	// Context canceled by shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := ws.New(serverID, cfg.Relay, ws.NewRegistry())

	// Bridge zerolog to slog for sutureslog
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewRelayService(relay))

	// Upstream NATS bridge (optional - requires build with -tags nats)
	natsComponents, err := initNATS(cfg, relay)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS bridge")
	}
	addNATSToSupervisor(tree, natsComponents)
	defer shutdownNATS(natsComponents)

	handler := api.NewHandler(cfg, relay, jwtManager)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().
		Str("addr", server.Addr).
		Msg("HTTP server configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Relay stopped gracefully")
}

// resolveServerID returns this instance's stable identity. The user/updated
// dedup guard depends on every instance carrying a distinct, stable id, so
// an unset SERVER_ID gets a generated one with a loud warning: restarts
// will change it, and events published under the old id stop matching.
func resolveServerID(cfg *config.Config) string {
	if cfg.Server.ID != "" {
		return cfg.Server.ID
	}

	id := uuid.New().String()
	logging.Warn().
		Str("server_id", id).
		Msg("SERVER_ID not configured, generated one for this run; set SERVER_ID for stable fan-out dedup across restarts")
	return id
}
