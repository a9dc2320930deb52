// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build !nats

package main

import (
	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/supervisor"
	ws "github.com/signalmesh/relay/internal/websocket"
)

// natsComponents is a stub for non-NATS builds.
type natsComponents struct{}

// initNATS warns when the bridge is enabled in configuration but the binary
// was built without NATS support.
func initNATS(cfg *config.Config, _ *ws.Relay) (*natsComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but this binary was built without NATS support (rebuild with -tags nats)")
	}
	return nil, nil
}

// addNATSToSupervisor is a no-op stub.
func addNATSToSupervisor(_ *supervisor.Tree, _ *natsComponents) {}

// shutdownNATS is a no-op stub.
func shutdownNATS(_ *natsComponents) {}
