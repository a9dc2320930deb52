// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package metrics exposes package-level Prometheus collectors for the relay.
// Collectors are registered via promauto at init time and served from the
// /metrics endpoint.
package metrics
