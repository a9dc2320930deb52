// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package websocket

import (
	"errors"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Frame
		wantErr bool
	}{
		{
			name:    "identification frame",
			payload: `{"type":"connection/initiated","userId":"alice"}`,
			want:    Frame{Type: EventConnectionInitiated, UserID: "alice"},
		},
		{
			name:    "message created frame",
			payload: `{"type":"message/created","receiverId":"bob"}`,
			want:    Frame{Type: EventMessageCreated, ReceiverID: "bob"},
		},
		{
			name:    "user updated frame",
			payload: `{"type":"user/updated","userId":"alice","serverId":"srv-1"}`,
			want:    Frame{Type: EventUserUpdated, UserID: "alice", ServerID: "srv-1"},
		},
		{
			name:    "extra fields are ignored",
			payload: `{"type":"message/created","receiverId":"bob","body":"hi","ts":123}`,
			want:    Frame{Type: EventMessageCreated, ReceiverID: "bob"},
		},
		{
			name:    "not json",
			payload: `hello`,
			wantErr: true,
		},
		{
			name:    "json but not an object",
			payload: `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "missing type",
			payload: `{"userId":"alice"}`,
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeFrame(%q) expected error, got %+v", tt.payload, got)
				}
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("DecodeFrame(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestFrame_Validate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
		unknown bool
	}{
		{
			name:  "valid identification",
			frame: Frame{Type: EventConnectionInitiated, UserID: "alice"},
		},
		{
			name:    "identification without userId",
			frame:   Frame{Type: EventConnectionInitiated},
			wantErr: true,
		},
		{
			name:  "valid message created",
			frame: Frame{Type: EventMessageCreated, ReceiverID: "bob"},
		},
		{
			name:    "message created without receiverId",
			frame:   Frame{Type: EventMessageCreated, UserID: "alice"},
			wantErr: true,
		},
		{
			name:  "valid user updated",
			frame: Frame{Type: EventUserUpdated, UserID: "alice", ServerID: "srv-1"},
		},
		{
			name:    "user updated without serverId",
			frame:   Frame{Type: EventUserUpdated, UserID: "alice"},
			wantErr: true,
		},
		{
			name:    "user updated without userId",
			frame:   Frame{Type: EventUserUpdated, ServerID: "srv-1"},
			wantErr: true,
		},
		{
			name:    "unknown event type",
			frame:   Frame{Type: "presence/ping"},
			wantErr: true,
			unknown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("Validate(%+v) expected error", tt.frame)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate(%+v) unexpected error: %v", tt.frame, err)
			}
			if tt.unknown && !errors.Is(err, ErrUnknownEvent) {
				t.Errorf("error = %v, want ErrUnknownEvent", err)
			}
		})
	}
}

func TestNotification_Encode(t *testing.T) {
	payload, err := Notification{Type: EventMessageCreated}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := `{"type":"message/created"}`
	if string(payload) != want {
		t.Errorf("Encode() = %s, want %s", payload, want)
	}

	// Outbound frames never carry payload fields beyond the type.
	f, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("notification does not round-trip: %v", err)
	}
	if f != (Frame{Type: EventMessageCreated}) {
		t.Errorf("round-tripped frame = %+v", f)
	}
}
