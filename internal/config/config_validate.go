// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateServer validates listener and identity settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be 'development' or 'production', got %q", c.Server.Environment)
	}
	return nil
}

// validateRelay validates WebSocket tunables.
func (c *Config) validateRelay() error {
	if c.Relay.SendBuffer < 1 {
		return fmt.Errorf("RELAY_SEND_BUFFER must be at least 1, got %d", c.Relay.SendBuffer)
	}
	if c.Relay.MaxMessageSize < 256 {
		return fmt.Errorf("RELAY_MAX_MESSAGE_SIZE must be at least 256 bytes, got %d", c.Relay.MaxMessageSize)
	}
	if c.Relay.WriteTimeout <= 0 {
		return fmt.Errorf("RELAY_WRITE_TIMEOUT must be positive, got %v", c.Relay.WriteTimeout)
	}
	if c.Relay.PongTimeout <= c.Relay.WriteTimeout {
		return fmt.Errorf("RELAY_PONG_TIMEOUT (%v) must exceed RELAY_WRITE_TIMEOUT (%v)",
			c.Relay.PongTimeout, c.Relay.WriteTimeout)
	}
	if c.Relay.FrameRate < 0 {
		return fmt.Errorf("RELAY_FRAME_RATE must not be negative, got %v", c.Relay.FrameRate)
	}
	if c.Relay.FrameRate > 0 && c.Relay.FrameBurst < 1 {
		return fmt.Errorf("RELAY_FRAME_BURST must be at least 1 when RELAY_FRAME_RATE is set, got %d", c.Relay.FrameBurst)
	}
	return nil
}

// validateNATS validates bridge configuration (only if enabled).
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://, got %q", c.NATS.URL)
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty when NATS_ENABLED=true")
	}
	return nil
}

// validateSecurity validates authentication and rate limit settings.
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeJWT:
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
		if c.Security.SessionTimeout <= 0 {
			return fmt.Errorf("SESSION_TIMEOUT must be positive, got %v", c.Security.SessionTimeout)
		}
	case AuthModeNone:
		if !c.IsDevelopment() && c.Security.JWTSecret != "" {
			return fmt.Errorf("JWT_SECRET is set but AUTH_MODE=none; set AUTH_MODE=jwt to enable it")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be 'jwt' or 'none', got %q", c.Security.AuthMode)
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQS must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
		}
	}

	return nil
}

// validateLogging validates log output settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be a valid level, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
