// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package middleware provides HTTP middleware shared across the API surface:
// request ID propagation for log correlation and Prometheus instrumentation
// of every request.
package middleware
