// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/signalmesh/relay/internal/config"
	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/metrics"
)

// Relay decodes inbound frames and routes wake-up notifications to the
// registered recipient. Frames arrive from two directions: directly from
// client sockets, and from the upstream event bridge when another service
// publishes a change.
type Relay struct {
	cfg      config.RelayConfig
	serverID string
	registry *Registry

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// New creates a relay identified as serverID. The identity is compared
// against the serverId field of user/updated frames: only the instance a
// change originated on re-broadcasts it.
func New(serverID string, cfg config.RelayConfig, registry *Registry) *Relay {
	return &Relay{
		cfg:      cfg,
		serverID: serverID,
		registry: registry,
		clients:  make(map[*Client]struct{}),
	}
}

// Registry exposes the presence registry, mainly for the stats endpoint.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// ServerID returns this instance's configured identity.
func (r *Relay) ServerID() string {
	return r.serverID
}

// Attach wraps an upgraded connection in a Client and starts its pumps.
// boundSubject pins the identity the connection may claim; pass empty in
// anonymous mode.
func (r *Relay) Attach(conn *websocket.Conn, boundSubject string) *Client {
	c := newClient(r, conn, boundSubject)

	r.mu.Lock()
	r.clients[c] = struct{}{}
	total := len(r.clients)
	r.mu.Unlock()

	metrics.TrackConnection(true)
	logging.Debug().
		Uint64("client_id", c.id).
		Int("total_clients", total).
		Msg("websocket client attached")

	c.Start()
	return c
}

// ClientCount returns the number of open connections, identified or not.
func (r *Relay) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Dispatch routes a frame that arrived without a client connection, such as
// one delivered by the upstream bridge. Identification frames are ignored
// on this path since there is no socket to bind.
func (r *Relay) Dispatch(f Frame) {
	if err := f.Validate(); err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			logging.Debug().Str("event_type", f.Type).Msg("ignoring unknown upstream event")
			return
		}
		metrics.RecordRejectedFrame("invalid")
		logging.Debug().Err(err).Str("event_type", f.Type).Msg("dropping invalid upstream frame")
		return
	}
	metrics.RecordFrame(f.Type)
	r.dispatch(nil, f)
}

// handleFrame is the readPump entry point for raw client payloads.
// Malformed, invalid, and unknown frames are dropped without closing the
// connection; a chatty or outdated client costs log lines, not an outage.
func (r *Relay) handleFrame(c *Client, data []byte) {
	f, err := DecodeFrame(data)
	if err != nil {
		metrics.RecordRejectedFrame("malformed")
		logging.Debug().
			Err(err).
			Uint64("client_id", c.id).
			Msg("dropping malformed frame")
		return
	}

	if err := f.Validate(); err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			metrics.RecordFrame("unknown")
			logging.Debug().
				Str("event_type", f.Type).
				Uint64("client_id", c.id).
				Msg("ignoring unknown event type")
			return
		}
		metrics.RecordRejectedFrame("invalid")
		logging.Debug().
			Err(err).
			Str("event_type", f.Type).
			Uint64("client_id", c.id).
			Msg("dropping frame with missing fields")
		return
	}

	metrics.RecordFrame(f.Type)
	r.dispatch(c, f)
}

func (r *Relay) dispatch(c *Client, f Frame) {
	switch f.Type {
	case EventConnectionInitiated:
		r.identify(c, f.UserID)

	case EventMessageCreated:
		r.notify(f.ReceiverID, EventMessageCreated)

	case EventUserUpdated:
		if f.ServerID != r.serverID {
			metrics.EventsSuppressed.Inc()
			logging.Debug().
				Str("user_id", f.UserID).
				Str("origin_server_id", f.ServerID).
				Msg("suppressing user update from another instance")
			return
		}
		r.notify(f.UserID, EventUserUpdated)
	}
}

// identify binds the connection to userID in the registry. When the
// connection carries an authenticated subject, a claim for anyone else is
// dropped; the connection stays open so the client can retry correctly.
func (r *Relay) identify(c *Client, userID string) {
	if c == nil {
		logging.Debug().Str("user_id", userID).Msg("ignoring identification without a connection")
		return
	}

	if c.boundSubject != "" && c.boundSubject != userID {
		metrics.RecordRejectedFrame("identity_mismatch")
		logging.Warn().
			Uint64("client_id", c.id).
			Str("claimed_user_id", userID).
			Msg("identification does not match authenticated subject")
		return
	}

	prev := c.setIdentity(userID)
	if prev != "" && prev != userID {
		// Re-identification as a different user abandons the old binding.
		r.registry.Release(prev, c)
	}
	r.registry.Register(userID, c)

	logging.Info().
		Uint64("client_id", c.id).
		Str("user_id", userID).
		Msg("client identified")
}

func (r *Relay) notify(userID, eventType string) {
	result := r.registry.SendTo(userID, Notification{Type: eventType})
	metrics.RecordNotification(eventType, result.String())

	logging.Debug().
		Str("user_id", userID).
		Str("event_type", eventType).
		Str("result", result.String()).
		Msg("notification dispatched")
}

// dropClient releases the client's registry entry and forgets the
// connection. Armed exactly once per client no matter how many teardown
// paths race to it.
func (r *Relay) dropClient(c *Client) {
	c.dropOnce.Do(func() {
		c.markClosed()

		r.mu.Lock()
		delete(r.clients, c)
		total := len(r.clients)
		r.mu.Unlock()

		if userID := c.UserID(); userID != "" {
			r.registry.Release(userID, c)
		}

		metrics.TrackConnection(false)
		logging.Debug().
			Uint64("client_id", c.id).
			Str("user_id", c.UserID()).
			Int("total_clients", total).
			Msg("websocket client dropped")
	})
}

// RunWithContext blocks until ctx is done, then closes every open
// connection so the process can exit without leaking pump goroutines.
func (r *Relay) RunWithContext(ctx context.Context) error {
	logging.Info().
		Str("server_id", r.serverID).
		Msg("websocket relay running")

	<-ctx.Done()

	r.mu.Lock()
	open := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		open = append(open, c)
	}
	r.mu.Unlock()

	for _, c := range open {
		c.Kill()
	}

	logging.Info().
		Int("closed_clients", len(open)).
		Msg("websocket relay stopped")
	return ctx.Err()
}

// String identifies the relay in supervision logs.
func (r *Relay) String() string {
	return "websocket-relay"
}
