// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package services adapts the relay's long-running components to the
// suture.Service interface: the websocket relay, the HTTP server, and the
// optional upstream event bridge.
package services
