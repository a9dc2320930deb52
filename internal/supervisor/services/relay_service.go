// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package services

import (
	"context"
)

// ContextRelay interface matches *websocket.Relay's RunWithContext method,
// avoiding a direct dependency on the websocket package.
type ContextRelay interface {
	RunWithContext(ctx context.Context) error
}

// RelayService wraps the websocket relay as a supervised service. The
// relay's RunWithContext already follows the suture.Service pattern, so
// this wrapper only delegates and names it for logging.
type RelayService struct {
	relay ContextRelay
	name  string
}

// NewRelayService creates a new relay service wrapper.
func NewRelayService(relay ContextRelay) *RelayService {
	return &RelayService{
		relay: relay,
		name:  "websocket-relay",
	}
}

// Serve implements suture.Service. It blocks until the context is canceled
// and closes all client connections on the way out.
func (s *RelayService) Serve(ctx context.Context) error {
	return s.relay.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervision logs.
func (s *RelayService) String() string {
	return s.name
}
