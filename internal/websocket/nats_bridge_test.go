// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

//go:build nats

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeEventSource feeds the bridge from a plain channel.
type fakeEventSource struct {
	messages chan BridgeMessage
	subject  string
	err      error
}

func newFakeEventSource() *fakeEventSource {
	return &fakeEventSource{messages: make(chan BridgeMessage, 16)}
}

func (f *fakeEventSource) Subscribe(_ context.Context, subject string) (<-chan BridgeMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subject = subject
	return f.messages, nil
}

func (f *fakeEventSource) Close() error {
	return nil
}

func TestBridge_ForwardsUpstreamEvents(t *testing.T) {
	r := testRelay("srv-1")
	target := newFakeConn()
	r.registry.Register("alice", target)

	source := newFakeEventSource()
	bridge := NewBridge(r, source, "relay")

	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer bridge.Stop()

	if source.subject != "relay.events.>" {
		t.Errorf("subscribed subject = %q, want %q", source.subject, "relay.events.>")
	}

	source.messages <- BridgeMessage{
		Subject: "relay.events.message.created",
		Data:    []byte(`{"type":"message/created","receiverId":"alice"}`),
	}

	select {
	case n := <-target.received:
		if n.Type != EventMessageCreated {
			t.Errorf("notification type = %q, want %q", n.Type, EventMessageCreated)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("upstream event was not forwarded")
	}
}

func TestBridge_AppliesServerIDGuard(t *testing.T) {
	r := testRelay("srv-1")
	target := newFakeConn()
	r.registry.Register("alice", target)

	source := newFakeEventSource()
	bridge := NewBridge(r, source, "relay")
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer bridge.Stop()

	source.messages <- BridgeMessage{
		Subject: "relay.events.user.updated",
		Data:    []byte(`{"type":"user/updated","userId":"alice","serverId":"srv-2"}`),
	}
	source.messages <- BridgeMessage{
		Subject: "relay.events.user.updated",
		Data:    []byte(`{"type":"user/updated","userId":"alice","serverId":"srv-1"}`),
	}

	select {
	case n := <-target.received:
		if n.Type != EventUserUpdated {
			t.Errorf("notification type = %q, want %q", n.Type, EventUserUpdated)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("matching-origin event was not forwarded")
	}

	select {
	case <-target.received:
		t.Error("mismatched-origin event must be suppressed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridge_IgnoresUndecodablePayloads(t *testing.T) {
	r := testRelay("srv-1")
	target := newFakeConn()
	r.registry.Register("alice", target)

	source := newFakeEventSource()
	bridge := NewBridge(r, source, "relay")
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer bridge.Stop()

	source.messages <- BridgeMessage{Subject: "relay.events.junk", Data: []byte(`not json`)}
	source.messages <- BridgeMessage{
		Subject: "relay.events.message.created",
		Data:    []byte(`{"type":"message/created","receiverId":"alice"}`),
	}

	select {
	case n := <-target.received:
		if n.Type != EventMessageCreated {
			t.Errorf("notification type = %q, want %q", n.Type, EventMessageCreated)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge stopped processing after a bad payload")
	}
}

func TestBridge_SubscribeErrorPropagates(t *testing.T) {
	source := newFakeEventSource()
	source.err = errors.New("broker unavailable")

	bridge := NewBridge(testRelay("srv-1"), source, "relay")
	if err := bridge.Start(context.Background()); err == nil {
		t.Fatal("Start should propagate the subscribe error")
	}
}

func TestBridge_StartStopLifecycle(t *testing.T) {
	source := newFakeEventSource()
	bridge := NewBridge(testRelay("srv-1"), source, "relay")

	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Redundant starts and stops are no-ops.
	if err := bridge.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	bridge.Stop()
	bridge.Stop()
}
