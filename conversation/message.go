// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/schema"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// Message is one user-visible message. The JSON form is the shape the
// analysis service accepts and echoes back.
type Message struct {
	ID          ref.EventID `json:"id"`
	Body        string      `json:"body"`
	SenderID    ref.UserID  `json:"user_id"`
	TimestampMs int64       `json:"timestamp"`

	// Kind is the msgtype, "m.text" when the event declared none.
	Kind string `json:"type"`
}

// Time returns the server timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.TimestampMs)
}

// Normalize converts a page of room events into messages ordered
// oldest first. State events and non-message timeline events are
// dropped. When the page repeats an event id, only the first
// occurrence in the result is kept.
func Normalize(events []messaging.Event) []Message {
	messages := make([]Message, 0, len(events))
	for _, event := range events {
		if event.Type != schema.EventTypeMessage || event.IsState() {
			continue
		}
		messages = append(messages, fromEvent(event))
	}

	slices.Reverse(messages)
	slices.SortStableFunc(messages, func(a, b Message) int {
		switch {
		case a.TimestampMs < b.TimestampMs:
			return -1
		case a.TimestampMs > b.TimestampMs:
			return 1
		}
		return 0
	})

	seen := make(map[ref.EventID]bool, len(messages))
	return slices.DeleteFunc(messages, func(message Message) bool {
		if message.ID.IsZero() {
			return false
		}
		if seen[message.ID] {
			return true
		}
		seen[message.ID] = true
		return false
	})
}

func fromEvent(event messaging.Event) Message {
	body, _ := event.Content["body"].(string)
	kind, _ := event.Content["msgtype"].(string)
	if kind == "" {
		kind = schema.MsgTypeText
	}
	return Message{
		ID:          event.EventID,
		Body:        body,
		SenderID:    event.Sender,
		TimestampMs: event.OriginServerTS,
		Kind:        kind,
	}
}

// Transcript renders messages as "<sender>: <body>" lines joined by
// newlines, oldest first.
func Transcript(messages []Message) string {
	var builder strings.Builder
	for index, message := range messages {
		if index > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(message.SenderID.String())
		builder.WriteString(": ")
		builder.WriteString(message.Body)
	}
	return builder.String()
}
