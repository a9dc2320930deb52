// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package config

import (
	"time"
)

// Config holds all relay configuration loaded from environment variables and
// an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Relay    RelayConfig    `koanf:"relay"`
	NATS     NATSConfig     `koanf:"nats"` // Optional: upstream event bridge (build with -tags nats)
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings and the relay instance identity.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT: listener address (default 0.0.0.0:8090)
//   - HTTP_TIMEOUT: read/write timeout for plain HTTP endpoints
//   - SERVER_ID: stable identity of this relay instance. Every instance in a
//     deployment receives the same upstream change fan-out; only the instance
//     whose identity matches an event's serverId re-broadcasts it, so SERVER_ID
//     must be stable and unique per deployed instance. Auto-generated (with a
//     startup warning) when unset.
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	ID          string        `koanf:"id"`
	Environment string        `koanf:"environment"`
}

// RelayConfig holds tunables for WebSocket connections and frame handling.
//
// SendBuffer is the per-connection outbound queue length. A connection whose
// queue is full when a notification arrives is treated as dead and evicted;
// the queue is a smoothing buffer, not durable storage.
//
// FrameRate/FrameBurst bound inbound frames per connection (token bucket).
// Zero disables the limit.
type RelayConfig struct {
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	PongTimeout    time.Duration `koanf:"pong_timeout"`
	FrameRate      float64       `koanf:"frame_rate"`
	FrameBurst     int           `koanf:"frame_burst"`
}

// NATSConfig holds settings for the optional upstream event bridge.
// When enabled (and the binary is built with -tags nats), the relay subscribes
// to the upstream fan-out subjects and feeds those events through the same
// dispatch path as client frames.
//
// Environment Variables:
//   - NATS_ENABLED: enable the bridge (default: false)
//   - NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - NATS_SUBJECT_PREFIX: subject prefix for upstream events (default: events)
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
//
// AuthMode selects how the WebSocket upgrade is authenticated:
//   - "jwt":  a bearer token (Authorization header or ?token= query parameter)
//     is required; its subject pins the identity the connection may claim.
//   - "none": any client may connect and identify as any userId. Development
//     and isolated networks only.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// Supported auth modes.
const (
	AuthModeNone = "none"
	AuthModeJWT  = "jwt"
)

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsDevelopment returns true when the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ShouldWarnAboutCORS reports whether the CORS configuration combined with
// authentication warrants a startup warning (wildcard origin with auth on).
func (c *Config) ShouldWarnAboutCORS() bool {
	if c.Security.AuthMode == AuthModeNone {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
