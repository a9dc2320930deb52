// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/supervisor"
	"github.com/signalmesh/relay/internal/supervisor/services"
	ws "github.com/signalmesh/relay/internal/websocket"
)

// natsComponents holds the NATS connection and the bridge built on it.
type natsComponents struct {
	conn   *natsgo.Conn
	bridge *ws.Bridge
}

// initNATS connects to the upstream broker and builds the event bridge.
// Returns (nil, nil) when the bridge is disabled in configuration.
func initNATS(cfg *config.Config, relay *ws.Relay) (*natsComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS bridge disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	conn, err := natsgo.Connect(cfg.NATS.URL,
		natsgo.Name("signalmesh-relay"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logging.Warn().Err(err).Msg("NATS disconnected")
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	logging.Info().
		Str("url", cfg.NATS.URL).
		Str("subject_prefix", cfg.NATS.SubjectPrefix).
		Msg("Connected to NATS")

	source := &natsEventSource{conn: conn}
	bridge := ws.NewBridge(relay, source, cfg.NATS.SubjectPrefix)

	return &natsComponents{conn: conn, bridge: bridge}, nil
}

// addNATSToSupervisor registers the bridge in the messaging layer.
func addNATSToSupervisor(tree *supervisor.Tree, c *natsComponents) {
	if c == nil {
		return
	}
	tree.AddMessagingService(services.NewBridgeService(c.bridge))
}

// shutdownNATS drains and closes the NATS connection.
func shutdownNATS(c *natsComponents) {
	if c == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		logging.Warn().Err(err).Msg("Failed to drain NATS connection")
		c.conn.Close()
	}
	logging.Info().Msg("NATS connection closed")
}

// natsEventSource adapts a NATS connection to the bridge's EventSource.
// Upstream events are pushed into a buffered channel; when the consumer
// falls behind the event is dropped with a warning rather than blocking
// the NATS callback goroutine. Notifications are wake-up hints, not
// durable messages, so a drop here costs one refresh at worst.
type natsEventSource struct {
	conn *natsgo.Conn
	sub  *natsgo.Subscription
}

func (s *natsEventSource) Subscribe(ctx context.Context, subject string) (<-chan ws.BridgeMessage, error) {
	messages := make(chan ws.BridgeMessage, 64)

	sub, err := s.conn.Subscribe(subject, func(msg *natsgo.Msg) {
		select {
		case messages <- ws.BridgeMessage{Subject: msg.Subject, Data: msg.Data}:
		default:
			logging.Warn().
				Str("subject", msg.Subject).
				Msg("dropping upstream event, bridge channel full")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.sub = sub

	// Unsubscribe when the context ends; the channel stays open so late
	// callback deliveries cannot panic.
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()

	return messages, nil
}

func (s *natsEventSource) Close() error {
	if s.sub != nil {
		return s.sub.Unsubscribe()
	}
	return nil
}
