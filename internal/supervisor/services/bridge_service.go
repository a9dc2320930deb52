// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package services

import (
	"context"
)

// EventBridge interface matches *websocket.Bridge's lifecycle methods.
type EventBridge interface {
	Start(ctx context.Context) error
	Stop()
}

// BridgeService wraps the upstream event bridge as a supervised service.
// A lost broker connection surfaces as a Serve error, so suture restarts
// the subscription with backoff instead of the relay silently going deaf
// to upstream events.
type BridgeService struct {
	bridge EventBridge
	name   string
}

// NewBridgeService creates a new bridge service wrapper.
func NewBridgeService(bridge EventBridge) *BridgeService {
	return &BridgeService{
		bridge: bridge,
		name:   "upstream-bridge",
	}
}

// Serve implements suture.Service.
func (s *BridgeService) Serve(ctx context.Context) error {
	if err := s.bridge.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.bridge.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervision logs.
func (s *BridgeService) String() string {
	return s.name
}
