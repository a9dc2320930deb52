// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package config loads and validates relay configuration.
//
// Configuration is loaded via Koanf v2 with layered sources, highest
// priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or ./config.yaml)
//  3. Environment variables
//
// The one setting every deployment must think about is SERVER_ID: the stable
// identity of this relay instance, compared against the serverId carried by
// user/updated events to collapse multi-instance re-broadcast down to one.
package config
