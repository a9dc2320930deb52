// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

/*
Package websocket implements the presence registry and notification relay.

This package owns the server side of the /ws endpoint: it tracks which user
is reachable on which live connection and pushes typed wake-up notifications
to individual recipients. It uses the gorilla/websocket library with a
registry-relay architecture where every user maps to at most one connection.

Key Components:

  - Registry: userID -> connection map with last-writer-wins replacement
  - Relay: Decodes inbound frames and routes notifications to recipients
  - Client: A single WebSocket connection with read/write goroutines

Architecture:

The package implements targeted fan-out rather than broadcast:

	┌──────────┐     ┌──────────┐
	│  Relay   │ ──▶ │ Registry │ userID -> Client
	└────┬─────┘     └──────────┘
	     │ SendTo(receiverID)
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ alice    │ bob     │ carol   │ (unidentified)
	│          │         │         │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: Reads frames from the socket, handles pongs
  - writePump: Writes notifications to the socket, sends pings

Event Types:

The following inbound event types are dispatched; everything else is ignored:

  - connection/initiated: Binds the connection to userId in the registry
  - message/created: Notifies receiverId that a new message exists
  - user/updated: Notifies userId that their profile changed; only frames
    whose serverId matches this instance are delivered, so one upstream
    change fanned out to every instance produces a single notification

Outbound notifications carry only the event type. They are wake-up signals
telling the recipient to re-fetch, never a content channel.

Connection Lifecycle:

 1. Client connects via HTTP upgrade (see internal/api)
 2. Relay attaches the client and starts its pumps (Unidentified)
 3. Client sends connection/initiated and enters the registry (Identified)
 4. Notifications addressed to the user are enqueued on its send channel
 5. Client disconnects and releases its registry entry (Closed)

A second identification for the same user replaces the previous entry; the
superseded connection stays open but silently stops receiving. A failed
write purges the entry so the next send reports not_connected instead of
failing again.

Thread Safety:

The package is fully thread-safe:
  - Registry guards its map with a mutex; transitions are atomic
  - Each client has separate read/write goroutines
  - Enqueue never blocks; a full send channel counts as a write failure

See Also:

  - github.com/gorilla/websocket: Underlying WebSocket library
  - internal/api: Upgrade handler for the /ws endpoint
  - internal/supervisor: Runs the relay under the supervision tree
*/
package websocket
