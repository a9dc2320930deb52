// Signalmesh Relay - Presence-Aware Notification Fan-Out
// Copyright 2026 Signalmesh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalmesh/relay

package websocket

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Event types understood by the relay. Frames with any other type are
// dropped without closing the connection, so older clients can speak a
// superset of this protocol.
const (
	// EventConnectionInitiated binds the sending connection to a userId.
	EventConnectionInitiated = "connection/initiated"

	// EventMessageCreated wakes receiverId to fetch new messages.
	EventMessageCreated = "message/created"

	// EventUserUpdated wakes userId to re-fetch their profile. Carries the
	// serverId of the originating instance; only that instance delivers.
	EventUserUpdated = "user/updated"
)

var (
	// ErrMalformedFrame reports a payload that is not a JSON object with a
	// string type field.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownEvent reports a well-formed frame whose type the relay does
	// not dispatch.
	ErrUnknownEvent = errors.New("unknown event type")
)

// Frame is one inbound JSON message, received either from a client socket or
// from the upstream event bridge. Fields beyond type are populated per event
// type; unknown extra fields are ignored.
type Frame struct {
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	ServerID   string `json:"serverId,omitempty"`
}

// Notification is the outbound frame pushed to a recipient. It carries only
// the event type: a signal to re-fetch, never the content itself.
type Notification struct {
	Type string `json:"type"`
}

// Per-type validation views of a Frame. Only the fields an event type
// requires are checked; a message/created frame with a stray serverId is
// still valid.
type identifyFields struct {
	UserID string `validate:"required,max=128"`
}

type messageCreatedFields struct {
	ReceiverID string `validate:"required,max=128"`
}

type userUpdatedFields struct {
	UserID   string `validate:"required,max=128"`
	ServerID string `validate:"required,max=128"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeFrame parses a raw payload into a Frame. It returns
// ErrMalformedFrame when the payload is not valid JSON or lacks a type.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

// Validate checks that the frame carries the fields its event type requires.
// Unknown event types return ErrUnknownEvent so callers can ignore them
// without tearing the connection down.
func (f Frame) Validate() error {
	switch f.Type {
	case EventConnectionInitiated:
		return validate.Struct(identifyFields{UserID: f.UserID})
	case EventMessageCreated:
		return validate.Struct(messageCreatedFields{ReceiverID: f.ReceiverID})
	case EventUserUpdated:
		return validate.Struct(userUpdatedFields{UserID: f.UserID, ServerID: f.ServerID})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
}

// Encode marshals the notification for the wire.
func (n Notification) Encode() ([]byte, error) {
	return json.Marshal(n)
}
