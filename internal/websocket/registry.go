// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package websocket

import (
	"sync"
	"time"

	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/metrics"
)

// DeliveryResult reports the outcome of a targeted send.
type DeliveryResult int

const (
	// Delivered means the notification was enqueued on a live connection.
	Delivered DeliveryResult = iota

	// NotConnected means no connection is registered for the recipient.
	NotConnected

	// WriteFailed means the recipient's connection could not accept the
	// notification; its registry entry has been purged.
	WriteFailed
)

// String returns the snake_case form used in logs and metric labels.
func (r DeliveryResult) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case NotConnected:
		return "not_connected"
	case WriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// Conn is the registry's view of a live connection: a non-blocking enqueue
// plus a teardown hook for connections caught dead on a failed write.
type Conn interface {
	// Enqueue offers a notification to the connection without blocking.
	// It returns false when the connection cannot accept it.
	Enqueue(n Notification) bool

	// Kill tears the connection down. Safe to call more than once.
	Kill()
}

type registryEntry struct {
	conn        Conn
	connectedAt time.Time
}

// Registry maps each identified user to their single live connection.
// Registration is last-writer-wins: a new connection for an already
// registered user silently supersedes the old one without closing it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
	}
}

// Register binds userID to conn, replacing any previous binding. The
// superseded connection is left open; it simply stops receiving.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	prev, replaced := r.entries[userID]
	r.entries[userID] = registryEntry{conn: conn, connectedAt: time.Now()}
	size := len(r.entries)
	r.mu.Unlock()

	if replaced && prev.conn != conn {
		metrics.RecordEviction("replaced")
		logging.Debug().
			Str("user_id", userID).
			Msg("registration replaced an existing connection")
	}
	metrics.SetRegistrySize(size)
}

// Unregister removes userID from the registry regardless of which
// connection currently holds the entry.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	_, ok := r.entries[userID]
	delete(r.entries, userID)
	size := len(r.entries)
	r.mu.Unlock()

	if ok {
		metrics.RecordEviction("closed")
		metrics.SetRegistrySize(size)
	}
}

// Release removes userID only when conn still owns the entry. A connection
// that was superseded before it closed must not evict its replacement, so
// every close path releases through this compare-and-delete.
func (r *Registry) Release(userID string, conn Conn) bool {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok || entry.conn != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, userID)
	size := len(r.entries)
	r.mu.Unlock()

	metrics.RecordEviction("closed")
	metrics.SetRegistrySize(size)
	return true
}

// SendTo pushes a notification to userID's connection. Delivery is
// best-effort: an unreachable recipient is reported, never queued for. A
// failed write purges the stale entry and kills the connection so the
// registry heals without waiting for the close handshake.
func (r *Registry) SendTo(userID string, n Notification) DeliveryResult {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()

	if !ok {
		return NotConnected
	}
	if entry.conn.Enqueue(n) {
		return Delivered
	}

	// The connection is wedged or closing. Purge it, but only if it still
	// owns the entry; a replacement may have registered meanwhile.
	r.mu.Lock()
	current, still := r.entries[userID]
	if still && current.conn == entry.conn {
		delete(r.entries, userID)
		metrics.RecordEviction("write_failed")
		metrics.SetRegistrySize(len(r.entries))
	}
	r.mu.Unlock()

	entry.conn.Kill()
	logging.Warn().
		Str("user_id", userID).
		Str("event_type", n.Type).
		Msg("write failed, purged stale registry entry")
	return WriteFailed
}

// IsConnected reports whether userID currently has a registered connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[userID]
	return ok
}

// Len returns the number of identified users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ConnectedSince returns when userID's current connection registered, or
// the zero time when the user is not connected.
func (r *Registry) ConnectedSince(userID string) time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[userID].connectedAt
}
