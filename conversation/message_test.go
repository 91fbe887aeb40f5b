// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/messaging"
)

func messageEvent(id, sender string, timestamp int64, content map[string]any) messaging.Event {
	return messaging.Event{
		EventID:        ref.MustParseEventID(id),
		Type:           "m.room.message",
		Sender:         ref.MustParseUserID(sender),
		OriginServerTS: timestamp,
		Content:        content,
	}
}

func textEvent(id, sender string, timestamp int64, body string) messaging.Event {
	return messageEvent(id, sender, timestamp, map[string]any{"msgtype": "m.text", "body": body})
}

func stateEvent(eventType, stateKey string, content map[string]any) messaging.Event {
	return messaging.Event{
		EventID:  ref.MustParseEventID("$state-" + eventType),
		Type:     ref.EventType(eventType),
		Sender:   ref.MustParseUserID("@admin:test.local"),
		StateKey: &stateKey,
		Content:  content,
	}
}

func TestNormalizeMapsFields(t *testing.T) {
	events := []messaging.Event{
		messageEvent("$3", "@carol:test.local", 3000, map[string]any{"msgtype": "m.notice", "body": "deploy finished"}),
		messageEvent("$2", "@bob:test.local", 2000, map[string]any{"body": "no msgtype"}),
		messageEvent("$1", "@alice:test.local", 1000, map[string]any{"msgtype": "m.image"}),
	}

	got := Normalize(events)
	want := []Message{
		{ID: ref.MustParseEventID("$1"), SenderID: ref.MustParseUserID("@alice:test.local"), TimestampMs: 1000, Kind: "m.image"},
		{ID: ref.MustParseEventID("$2"), Body: "no msgtype", SenderID: ref.MustParseUserID("@bob:test.local"), TimestampMs: 2000, Kind: "m.text"},
		{ID: ref.MustParseEventID("$3"), Body: "deploy finished", SenderID: ref.MustParseUserID("@carol:test.local"), TimestampMs: 3000, Kind: "m.notice"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ref.EventID{}, ref.UserID{})); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDropsNonMessages(t *testing.T) {
	events := []messaging.Event{
		textEvent("$2", "@bob:test.local", 2000, "kept"),
		stateEvent("m.room.member", "@bob:test.local", map[string]any{"membership": "join"}),
		stateEvent("m.room.name", "", map[string]any{"name": "Standup"}),
		{EventID: ref.MustParseEventID("$r"), Type: "m.reaction", Sender: ref.MustParseUserID("@bob:test.local"), OriginServerTS: 1500},
		// A state event that claims the message type is still state.
		stateEvent("m.room.message", "", map[string]any{"body": "not a timeline message"}),
		textEvent("$1", "@alice:test.local", 1000, "also kept"),
	}

	got := Normalize(events)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(got), got)
	}
	if got[0].Body != "also kept" || got[1].Body != "kept" {
		t.Errorf("unexpected bodies: %q, %q", got[0].Body, got[1].Body)
	}
}

func TestNormalizeNonStringBody(t *testing.T) {
	got := Normalize([]messaging.Event{
		messageEvent("$1", "@alice:test.local", 1, map[string]any{"body": 42, "msgtype": true}),
	})
	if got[0].Body != "" || got[0].Kind != "m.text" {
		t.Errorf("got %+v, want empty body and m.text kind", got[0])
	}
}

func TestNormalizeNewestFirstPage(t *testing.T) {
	const count = 50
	events := make([]messaging.Event, 0, count)
	for index := count; index >= 1; index-- {
		events = append(events, textEvent(fmt.Sprintf("$%d", index), "@alice:test.local", int64(index)*1000, fmt.Sprintf("message %d", index)))
	}

	got := Normalize(events)
	if len(got) != count {
		t.Fatalf("got %d messages, want %d", len(got), count)
	}
	if got[0].ID.String() != "$1" || got[0].TimestampMs != 1000 {
		t.Errorf("first message = %+v, want the oldest", got[0])
	}
	if got[count-1].ID.String() != "$50" {
		t.Errorf("last message = %+v, want the newest", got[count-1])
	}
}

func TestNormalizeOrderingIsNonDecreasingForAnyInput(t *testing.T) {
	random := rand.New(rand.NewPCG(1, 2))
	for trial := range 200 {
		size := random.IntN(40)
		events := make([]messaging.Event, size)
		for index := range events {
			// A narrow timestamp range forces ties.
			events[index] = textEvent(fmt.Sprintf("$t%d-%d", trial, index), "@alice:test.local", random.Int64N(10), "x")
		}

		got := Normalize(events)
		if len(got) != size {
			t.Fatalf("trial %d: got %d messages, want %d", trial, len(got), size)
		}
		for index := 1; index < len(got); index++ {
			if got[index].TimestampMs < got[index-1].TimestampMs {
				t.Fatalf("trial %d: timestamp decreases at %d: %d after %d",
					trial, index, got[index].TimestampMs, got[index-1].TimestampMs)
			}
		}
	}
}

func TestNormalizeEqualTimestampsKeepReversedPageOrder(t *testing.T) {
	// Newest-first page where both events share a millisecond: the
	// event listed second was sent first.
	got := Normalize([]messaging.Event{
		textEvent("$later", "@bob:test.local", 5000, "reply"),
		textEvent("$earlier", "@alice:test.local", 5000, "question"),
	})
	if got[0].ID.String() != "$earlier" || got[1].ID.String() != "$later" {
		t.Errorf("order = %s, %s; want $earlier, $later", got[0].ID, got[1].ID)
	}
}

func TestNormalizeRepeatedEventAppearsOnce(t *testing.T) {
	// A retried send reflected twice in one page is still one message.
	got := Normalize([]messaging.Event{
		textEvent("$sent", "@alice:test.local", 2000, "hello"),
		textEvent("$sent", "@alice:test.local", 2000, "hello"),
		textEvent("$0", "@bob:test.local", 1000, "hi"),
	})
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("Normalize(nil) = %v", got)
	}
}

func TestTranscript(t *testing.T) {
	messages := Normalize([]messaging.Event{
		textEvent("$2", "@bob:test.local", 2, "on it"),
		textEvent("$1", "@alice:test.local", 1, "can someone review?"),
	})
	want := "@alice:test.local: can someone review?\n@bob:test.local: on it"
	if got := Transcript(messages); got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}
	if Transcript(nil) != "" {
		t.Error("Transcript(nil) is not empty")
	}
}
