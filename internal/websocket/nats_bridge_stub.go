// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build !nats

package websocket

import (
	"context"
	"fmt"
)

// BridgeMessage is one event received from the upstream broker.
// This is a stub for non-NATS builds.
type BridgeMessage struct {
	Subject string
	Data    []byte
}

// EventSource abstracts the upstream broker.
// This is a stub for non-NATS builds.
type EventSource interface {
	Subscribe(ctx context.Context, subject string) (<-chan BridgeMessage, error)
	Close() error
}

// Bridge is a stub for non-NATS builds.
type Bridge struct{}

// NewBridge returns nil in non-NATS builds.
func NewBridge(_ *Relay, _ EventSource, _ string) *Bridge {
	return nil
}

// Start returns an error in non-NATS builds.
func (b *Bridge) Start(_ context.Context) error {
	return fmt.Errorf("NATS support not enabled (build with -tags nats)")
}

// Stop is a no-op stub.
func (b *Bridge) Stop() {}
