// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/schema"
)

// LoginRequest is the body of POST /login with the password flow.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// AuthResponse is the body of a successful login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id,omitempty"`
}

// WhoAmIResponse is the body of GET /account/whoami.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// ServerVersionsResponse is the body of GET /_matrix/client/versions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}

// JoinedRoomsResponse is the body of GET /joined_rooms. The ids stay
// raw so that one malformed entry can be skipped on its own.
type JoinedRoomsResponse struct {
	JoinedRooms []string `json:"joined_rooms"`
}

// MessageContent is the content of an m.room.message event.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage returns plain-text message content.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: schema.MsgTypeText, Body: body}
}

// Event is a Matrix event as returned by /state and /messages.
type Event struct {
	EventID        ref.EventID    `json:"event_id"`
	Type           ref.EventType  `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	RoomID         ref.RoomID     `json:"room_id,omitzero"`

	// StateKey is non-nil exactly for state events.
	StateKey *string        `json:"state_key,omitempty"`
	Unsigned *EventUnsigned `json:"unsigned,omitempty"`
}

// IsState reports whether the event is a state event.
func (e Event) IsState() bool { return e.StateKey != nil }

// EventUnsigned is server-added metadata. TransactionID is present only
// on events the requesting device sent.
type EventUnsigned struct {
	Age           int64  `json:"age,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// RoomMessagesOptions selects a page of room history.
type RoomMessagesOptions struct {
	// From is a pagination token from a previous response's End.
	// Empty starts from the most recent event.
	From string

	// Direction is "b" (newest first, the default) or "f".
	Direction string

	// Limit caps the page size. Zero leaves it to the server.
	Limit int
}

// RoomMessagesResponse is one page of room history. With the default
// backward direction, Chunk is newest first and End is the token for
// the next older page (empty when history is exhausted).
type RoomMessagesResponse struct {
	Start string  `json:"start"`
	End   string  `json:"end,omitempty"`
	Chunk []Event `json:"chunk"`
}

// SendEventResponse is the body of a successful send.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// SendResult identifies a sent message. Resending with the same
// TransactionID is deduplicated by the homeserver.
type SendResult struct {
	EventID       ref.EventID
	TransactionID string
}
