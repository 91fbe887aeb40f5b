// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/schema"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// Snapshot is a room's normalized messages as of one fetch.
type Snapshot struct {
	RoomID   ref.RoomID `json:"room_id"`
	RoomName string     `json:"room_name"`

	// Messages are ordered oldest first, non-decreasing by timestamp.
	Messages []Message `json:"messages"`
}

// NewSnapshot normalizes a page of events into a snapshot. An empty
// name falls back to the room id.
func NewSnapshot(roomID ref.RoomID, name string, events []messaging.Event) Snapshot {
	if name == "" {
		name = roomID.String()
	}
	return Snapshot{RoomID: roomID, RoomName: name, Messages: Normalize(events)}
}

// IsEmpty reports whether the snapshot holds no messages.
func (s Snapshot) IsEmpty() bool { return len(s.Messages) == 0 }

// Transcript renders the snapshot as "<sender>: <body>" lines.
func (s Snapshot) Transcript() string { return Transcript(s.Messages) }

// ByEventID returns the message with the given event id.
func (s Snapshot) ByEventID(id ref.EventID) (Message, bool) {
	for _, message := range s.Messages {
		if message.ID == id {
			return message, true
		}
	}
	return Message{}, false
}

// RoomSummary is a room's display metadata.
type RoomSummary struct {
	ID    ref.RoomID `json:"id"`
	Name  string     `json:"name"`
	Topic string     `json:"topic"`
}

// FallbackSummary is the summary used when a room's state is
// unavailable: the id stands in for the name.
func FallbackSummary(roomID ref.RoomID) RoomSummary {
	return RoomSummary{ID: roomID, Name: roomID.String()}
}

// RoomSummaryFromState extracts the name and topic from a room's state
// events. A missing, empty, or malformed m.room.name yields the room
// id as the name; a missing topic yields "".
func RoomSummaryFromState(roomID ref.RoomID, state []messaging.Event) RoomSummary {
	summary := FallbackSummary(roomID)
	for _, event := range state {
		if event.StateKey == nil || *event.StateKey != "" {
			continue
		}
		switch event.Type {
		case schema.EventTypeRoomName:
			var content schema.RoomNameContent
			if schema.DecodeContent(event.Content, &content) == nil && content.Name != "" {
				summary.Name = content.Name
			}
		case schema.EventTypeRoomTopic:
			var content schema.RoomTopicContent
			if schema.DecodeContent(event.Content, &content) == nil {
				summary.Topic = content.Topic
			}
		}
	}
	return summary
}
