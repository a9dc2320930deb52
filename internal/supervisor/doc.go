// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

// Package supervisor builds the suture supervision tree the relay runs
// under. Services crash, get restarted with backoff, and log their
// lifecycle through the sutureslog bridge into the structured logger.
//
// See the services subpackage for the wrappers that adapt the relay, the
// HTTP server, and the upstream bridge to the suture.Service interface.
package supervisor
