// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return defaultConfig()
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8090 {
		t.Errorf("default port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("default environment = %q, want development", cfg.Server.Environment)
	}
	if cfg.Relay.SendBuffer != 256 {
		t.Errorf("default send buffer = %d, want 256", cfg.Relay.SendBuffer)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS bridge should be disabled by default")
	}
	if cfg.Security.AuthMode != "none" {
		t.Errorf("default auth mode = %q, want none", cfg.Security.AuthMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidate_Server(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }, "HTTP_TIMEOUT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_Relay(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero send buffer", func(c *Config) { c.Relay.SendBuffer = 0 }, "RELAY_SEND_BUFFER"},
		{"tiny message size", func(c *Config) { c.Relay.MaxMessageSize = 10 }, "RELAY_MAX_MESSAGE_SIZE"},
		{"zero write timeout", func(c *Config) { c.Relay.WriteTimeout = 0 }, "RELAY_WRITE_TIMEOUT"},
		{"pong before write", func(c *Config) { c.Relay.PongTimeout = time.Second }, "RELAY_PONG_TIMEOUT"},
		{"negative frame rate", func(c *Config) { c.Relay.FrameRate = -1 }, "RELAY_FRAME_RATE"},
		{"zero burst with rate", func(c *Config) { c.Relay.FrameBurst = 0 }, "RELAY_FRAME_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_NATS(t *testing.T) {
	cfg := validConfig()
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "NATS_URL") {
		t.Errorf("expected NATS_URL error, got %v", err)
	}

	cfg.NATS.URL = "http://localhost:4222"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "nats://") {
		t.Errorf("expected scheme error, got %v", err)
	}

	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.SubjectPrefix = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "NATS_SUBJECT_PREFIX") {
		t.Errorf("expected subject prefix error, got %v", err)
	}
}

func TestValidate_Security(t *testing.T) {
	t.Run("jwt requires long secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.AuthMode = "jwt"
		cfg.Security.JWTSecret = "short"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
			t.Errorf("expected JWT_SECRET error, got %v", err)
		}
	})

	t.Run("jwt with valid secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.AuthMode = "jwt"
		cfg.Security.JWTSecret = strings.Repeat("s", 32)
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("unknown auth mode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.AuthMode = "basic"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "AUTH_MODE") {
			t.Errorf("expected AUTH_MODE error, got %v", err)
		}
	})

	t.Run("secret set but auth off in production", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Environment = "production"
		cfg.Security.JWTSecret = strings.Repeat("s", 32)
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unused JWT_SECRET in production")
		}
	})

	t.Run("rate limit bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.RateLimitReqs = 0
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "RATE_LIMIT_REQS") {
			t.Errorf("expected RATE_LIMIT_REQS error, got %v", err)
		}

		cfg = validConfig()
		cfg.Security.RateLimitReqs = 0
		cfg.Security.RateLimitDisabled = true
		if err := cfg.Validate(); err != nil {
			t.Errorf("rate limit bounds should be skipped when disabled, got %v", err)
		}
	})
}

func TestValidate_Logging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("expected LOG_LEVEL error, got %v", err)
	}

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LOG_FORMAT") {
		t.Errorf("expected LOG_FORMAT error, got %v", err)
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "none"
	if cfg.ShouldWarnAboutCORS() {
		t.Error("no warning expected when auth is disabled")
	}

	cfg.Security.AuthMode = "jwt"
	cfg.Security.CORSOrigins = []string{"*"}
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("warning expected for wildcard origin with auth enabled")
	}

	cfg.Security.CORSOrigins = []string{"https://app.example.com"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("no warning expected for explicit origins")
	}
}
