// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/metrics"
)

// ClientState tracks where a connection is in its lifecycle.
type ClientState int

const (
	// StateUnidentified covers the window between upgrade and the first
	// accepted connection/initiated frame.
	StateUnidentified ClientState = iota

	// StateIdentified means the connection is bound to a user in the
	// registry (or was, until superseded).
	StateIdentified

	// StateClosed means the connection is being torn down.
	StateClosed
)

// clientIDCounter generates unique, monotonically increasing IDs for
// clients so log lines can correlate a socket across its lifecycle.
var clientIDCounter atomic.Uint64

// Client is a single WebSocket connection between a user's device and the
// relay. It stays usable while unidentified: inbound frames dispatch either
// way, only targeted delivery requires identification.
type Client struct {
	id    uint64
	relay *Relay
	conn  *websocket.Conn
	send  chan Notification
	done  chan struct{}

	killOnce sync.Once
	dropOnce sync.Once

	// limiter caps inbound frame rate per connection; nil disables.
	limiter *rate.Limiter

	// boundSubject pins the identity this connection may claim. Set from
	// the JWT subject at upgrade time; empty in anonymous mode.
	boundSubject string

	mu          sync.Mutex
	userID      string
	closed      bool
	connectedAt time.Time
}

func newClient(relay *Relay, conn *websocket.Conn, boundSubject string) *Client {
	var limiter *rate.Limiter
	if relay.cfg.FrameRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(relay.cfg.FrameRate), relay.cfg.FrameBurst)
	}
	return &Client{
		id:           clientIDCounter.Add(1),
		relay:        relay,
		conn:         conn,
		send:         make(chan Notification, relay.cfg.SendBuffer),
		done:         make(chan struct{}),
		limiter:      limiter,
		boundSubject: boundSubject,
		connectedAt:  time.Now(),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the identity this connection registered as, or empty while
// unidentified.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// State reports the connection's lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return StateClosed
	case c.userID != "":
		return StateIdentified
	default:
		return StateUnidentified
	}
}

// setIdentity records the user this connection now speaks for and returns
// the previous identity, empty on first identification.
func (c *Client) setIdentity(userID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.userID
	c.userID = userID
	return prev
}

// Enqueue offers a notification without blocking. A full send channel means
// the consumer stopped draining; the caller treats that as a write failure.
func (c *Client) Enqueue(n Notification) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- n:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Kill signals both pumps to shut the connection down. Idempotent.
func (c *Client) Kill() {
	c.killOnce.Do(func() {
		close(c.done)
	})
}

// Start launches the read and write pumps. The caller must not touch the
// underlying connection afterwards.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps frames from the websocket connection into the relay.
// It owns teardown: whatever ends the read loop releases the registry
// entry and closes the socket.
func (c *Client) readPump() {
	defer func() {
		c.Kill()
		c.relay.dropClient(c)
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	c.conn.SetReadLimit(c.relay.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.relay.cfg.PongTimeout)); err != nil {
		logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.relay.cfg.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			metrics.RecordRejectedFrame("rate_limited")
			logging.Warn().
				Uint64("client_id", c.id).
				Str("user_id", c.UserID()).
				Msg("inbound frame rate limit exceeded, dropping frame")
			continue
		}

		c.relay.handleFrame(c, data)
	}
}

// writePump pumps notifications from the send channel to the websocket
// connection and keeps the connection alive with periodic pings.
func (c *Client) writePump() {
	pingPeriod := (c.relay.cfg.PongTimeout * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case n := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.relay.cfg.WriteTimeout)); err != nil {
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to set write deadline")
				return
			}

			payload, err := n.Encode()
			if err != nil {
				logging.Error().Err(err).Str("event_type", n.Type).Msg("failed to encode notification")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write notification")
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.relay.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write close message")
			}
			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.relay.cfg.WriteTimeout)); err != nil {
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// markClosed flips the lifecycle state; called once from the drop path.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
