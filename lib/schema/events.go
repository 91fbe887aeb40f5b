// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/dailyfix/lib/ref"
)

// Timeline and state event types.
const (
	// EventTypeMessage is a user-visible timeline message. Its content
	// carries msgtype and body.
	EventTypeMessage ref.EventType = "m.room.message"

	// EventTypeRoomName is the room's display name. State key "".
	EventTypeRoomName ref.EventType = "m.room.name"

	// EventTypeRoomTopic is the room's topic line. State key "".
	EventTypeRoomTopic ref.EventType = "m.room.topic"

	// EventTypeRoomMember records one user's membership. State key is
	// the user id.
	EventTypeRoomMember ref.EventType = "m.room.member"

	EventTypeRoomCreate ref.EventType = "m.room.create"
)

// Message subtypes (the msgtype field of m.room.message content).
const (
	MsgTypeText   = "m.text"
	MsgTypeNotice = "m.notice"
	MsgTypeEmote  = "m.emote"
	MsgTypeImage  = "m.image"
	MsgTypeFile   = "m.file"
)

// RoomNameContent is the content of m.room.name.
type RoomNameContent struct {
	Name string `json:"name"`
}

// RoomTopicContent is the content of m.room.topic.
type RoomTopicContent struct {
	Topic string `json:"topic"`
}

// MemberContent is the content of m.room.member.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
}

// DecodeContent re-decodes a generic event content object into target,
// which must be a pointer to one of the content structs.
func DecodeContent(content map[string]any, target any) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("schema: encoding content: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema: decoding content into %T: %w", target, err)
	}
	return nil
}
