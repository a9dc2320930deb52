// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build !nats

package websocket

import (
	"context"
	"testing"
)

func TestBridgeStub(t *testing.T) {
	bridge := NewBridge(testRelay("srv-1"), nil, "relay")
	if bridge != nil {
		t.Error("NewBridge should return nil without NATS support")
	}

	if err := bridge.Start(context.Background()); err == nil {
		t.Error("Start should fail without NATS support")
	}
	bridge.Stop()
}
