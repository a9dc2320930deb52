// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build nats

package websocket

import (
	"context"
	"sync"

	"github.com/signalmesh/relay/internal/logging"
	"github.com/signalmesh/relay/internal/metrics"
)

// BridgeMessage is one event received from the upstream broker.
type BridgeMessage struct {
	Subject string
	Data    []byte
}

// EventSource abstracts the upstream broker so the bridge can be fed from
// NATS in production and from a plain channel in tests.
type EventSource interface {
	// Subscribe subscribes to a subject pattern and returns a channel of
	// matching messages.
	Subscribe(ctx context.Context, subject string) (<-chan BridgeMessage, error)
	// Close releases resources.
	Close() error
}

// Bridge forwards upstream fan-out events into the relay. Sibling services
// publish the same message/created and user/updated frames clients send,
// so a change made over plain HTTP still wakes the recipient's socket.
type Bridge struct {
	relay   *Relay
	source  EventSource
	subject string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewBridge creates an upstream-to-relay bridge subscribed to
// subjectPrefix followed by ".events.>".
func NewBridge(relay *Relay, source EventSource, subjectPrefix string) *Bridge {
	return &Bridge{
		relay:   relay,
		source:  source,
		subject: subjectPrefix + ".events.>",
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start subscribes to the upstream subject and begins forwarding events.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.mu.Unlock()

	messages, err := b.source.Subscribe(ctx, b.subject)
	if err != nil {
		return err
	}

	go b.processMessages(ctx, messages)

	logging.Info().Str("subject", b.subject).Msg("upstream event bridge started")
	return nil
}

// Stop stops the bridge and waits for the forwarding goroutine to exit.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopCh)
	<-b.doneCh
	logging.Info().Msg("upstream event bridge stopped")
}

func (b *Bridge) processMessages(ctx context.Context, messages <-chan BridgeMessage) {
	defer close(b.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleMessage(msg)
		}
	}
}

// handleMessage forwards one upstream event into the relay. Payloads share
// the client wire format, so the relay's own decode path applies.
func (b *Bridge) handleMessage(msg BridgeMessage) {
	metrics.RecordBridgeEvent(msg.Subject)

	f, err := DecodeFrame(msg.Data)
	if err != nil {
		logging.Warn().
			Err(err).
			Str("subject", msg.Subject).
			Msg("failed to decode upstream event")
		return
	}
	b.relay.Dispatch(f)
}
