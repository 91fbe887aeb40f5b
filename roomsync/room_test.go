// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/testutil"
)

type roomUpdate = Update[conversation.Snapshot]

func watchRoom(t *testing.T, h *harness) (*RoomView, chan roomUpdate) {
	t.Helper()
	updates := make(chan roomUpdate, 16)
	view := h.syncer.WatchRoom(context.Background(), roomA, func(update roomUpdate) { updates <- update })
	t.Cleanup(view.Stop)
	return view, updates
}

func TestRoomViewSnapshot(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.setState(roomA, nameState("Standup"))
	for index := int64(1); index <= 60; index++ {
		protocol.appendMessages(roomA, textEvent(fmt.Sprintf("$%d", index), index*1000, fmt.Sprintf("message %d", index)))
	}
	h := newHarness(t, protocol, nil)

	view, updates := watchRoom(t, h)
	if view.RoomID() != roomA {
		t.Errorf("RoomID() = %s", view.RoomID())
	}
	update := testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")
	snapshot := update.Value
	if snapshot.RoomName != "Standup" || snapshot.RoomID != roomA {
		t.Errorf("snapshot room = %s %q", snapshot.RoomID, snapshot.RoomName)
	}
	if len(snapshot.Messages) != 50 {
		t.Fatalf("got %d messages, want the newest 50", len(snapshot.Messages))
	}
	if first, last := snapshot.Messages[0], snapshot.Messages[49]; first.TimestampMs != 11000 || last.TimestampMs != 60000 {
		t.Errorf("range = %d..%d, want 11000..60000", first.TimestampMs, last.TimestampMs)
	}
	if !slices.IsSortedFunc(snapshot.Messages, func(a, b conversation.Message) int {
		return int(a.TimestampMs - b.TimestampMs)
	}) {
		t.Error("snapshot is not ordered oldest first")
	}
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "first cycle done")

	protocol.appendMessages(roomA, textEvent("$61", 61000, "fresh"))
	h.clock.Advance(3 * time.Second)
	update = testutil.RequireReceive(t, updates, waitTimeout, "second snapshot")
	messages := update.Value.Messages
	if len(messages) != 50 || messages[49].Body != "fresh" {
		t.Errorf("newest message = %+v", messages[len(messages)-1])
	}

	if calls := protocol.stateCallCount(roomA); calls != 1 {
		t.Errorf("room state fetched %d times, want once", calls)
	}
	protocol.mu.Lock()
	limits := slices.Clone(protocol.messageLimits)
	protocol.mu.Unlock()
	if diff := cmp.Diff([]int{50, 50}, limits); diff != "" {
		t.Errorf("message limits (-want +got):\n%s", diff)
	}
}

func TestRoomViewRetriesStateUntilResolved(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.setStateErr(roomA, errUnavailable)
	h := newHarness(t, protocol, nil)

	_, updates := watchRoom(t, h)
	update := testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")
	if update.Err != nil {
		t.Fatalf("state failure failed the cycle: %v", update.Err)
	}
	if update.Value.RoomName != "!a:test.local" {
		t.Errorf("RoomName = %q, want the room id", update.Value.RoomName)
	}
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "first cycle done")

	protocol.setStateErr(roomA, nil)
	protocol.setState(roomA, nameState("Standup"))
	h.clock.Advance(3 * time.Second)
	update = testutil.RequireReceive(t, updates, waitTimeout, "second snapshot")
	if update.Value.RoomName != "Standup" {
		t.Errorf("RoomName = %q after state recovered", update.Value.RoomName)
	}
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "second cycle done")

	h.clock.Advance(3 * time.Second)
	testutil.RequireReceive(t, updates, waitTimeout, "third snapshot")
	if calls := protocol.stateCallCount(roomA); calls != 2 {
		t.Errorf("room state fetched %d times, want 2", calls)
	}
}

func TestRoomViewFailureKeepsPreviousSnapshot(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.appendMessages(roomA, textEvent("$1", 1000, "one"), textEvent("$2", 2000, "two"))
	h := newHarness(t, protocol, nil)

	view, updates := watchRoom(t, h)
	first := testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "first cycle done")

	protocol.setMessagesErr(errUnavailable)
	h.clock.Advance(3 * time.Second)
	failed := testutil.RequireReceive(t, updates, waitTimeout, "failed cycle")
	if !errors.Is(failed.Err, errUnavailable) {
		t.Errorf("Err = %v, want errUnavailable", failed.Err)
	}
	if diff := cmp.Diff(first.Value, failed.Value, equateRefs); diff != "" {
		t.Errorf("failed cycle replaced the snapshot (-previous +got):\n%s", diff)
	}
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "failed cycle done")

	protocol.setMessagesErr(nil)
	h.clock.Advance(3 * time.Second)
	if recovered := testutil.RequireReceive(t, updates, waitTimeout, "recovered"); recovered.Err != nil {
		t.Errorf("recovered Err = %v", recovered.Err)
	}
	if stats := view.Stats(); stats.Failures != 1 || stats.Cycles != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRoomViewSendRunsCycle(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.appendMessages(roomA, textEvent("$1", 1000, "hello"))
	h := newHarness(t, protocol, nil)

	view, updates := watchRoom(t, h)
	testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")
	testutil.RequireReceive(t, h.cycleDone, waitTimeout, "first cycle done")

	body := testutil.UniqueID("standup-note")
	result, err := view.Send(context.Background(), body)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.EventID.String() != "$sent1" || result.TransactionID == "" {
		t.Errorf("SendResult = %+v", result)
	}

	// Visible as soon as Send returns, with no clock movement.
	latest := view.Latest()
	if latest.Cycle != 2 {
		t.Errorf("Latest().Cycle = %d, want 2", latest.Cycle)
	}
	message, found := latest.Value.ByEventID(result.EventID)
	if !found || message.Body != body {
		t.Errorf("sent message not in snapshot: %+v, %v", message, found)
	}
	if update := testutil.RequireReceive(t, updates, waitTimeout, "post-send update"); update.Cycle != 2 {
		t.Errorf("post-send update cycle = %d", update.Cycle)
	}
}

func TestRoomViewSendWaitsForInflightCycle(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.sendSignal = make(chan struct{}, 1)
	g := newGate()
	protocol.setBlock(g.respectful())
	h := newHarness(t, protocol, nil)

	view, _ := watchRoom(t, h)
	testutil.RequireReceive(t, g.entered, waitTimeout, "first cycle fetching")

	type sendOutcome struct {
		err error
	}
	outcome := make(chan sendOutcome, 1)
	go func() {
		_, err := view.Send(context.Background(), "while fetching")
		outcome <- sendOutcome{err: err}
	}()
	testutil.RequireReceive(t, protocol.sendSignal, waitTimeout, "send acknowledged")

	select {
	case <-outcome:
		t.Fatal("Send returned while a cycle was in flight")
	default:
	}
	if cycles := view.Stats().Cycles; cycles != 0 {
		t.Fatalf("cycles = %d before release", cycles)
	}

	close(g.release)
	if result := testutil.RequireReceive(t, outcome, waitTimeout, "Send returned"); result.err != nil {
		t.Fatalf("Send: %v", result.err)
	}
	latest := view.Latest()
	if latest.Cycle != 2 {
		t.Errorf("Latest().Cycle = %d, want the in-flight cycle plus one", latest.Cycle)
	}
	if len(latest.Value.Messages) != 1 || latest.Value.Messages[0].Body != "while fetching" {
		t.Errorf("snapshot after Send = %+v", latest.Value.Messages)
	}
}

func TestRoomViewSendFailure(t *testing.T) {
	protocol := newFakeProtocol()
	protocol.setSendErr(errUnavailable)
	h := newHarness(t, protocol, nil)

	view, updates := watchRoom(t, h)
	testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")

	if _, err := view.Send(context.Background(), "lost"); !errors.Is(err, errUnavailable) {
		t.Fatalf("Send error = %v, want errUnavailable", err)
	}
	if cycles := view.Stats().Cycles; cycles != 1 {
		t.Errorf("failed send ran a cycle: cycles = %d", cycles)
	}
}

func TestRoomViewSendAfterStop(t *testing.T) {
	protocol := newFakeProtocol()
	h := newHarness(t, protocol, nil)

	view, updates := watchRoom(t, h)
	testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")
	view.Stop()

	if _, err := view.Send(context.Background(), "too late"); !errors.Is(err, ErrStopped) {
		t.Errorf("Send after Stop = %v, want ErrStopped", err)
	}
	if sent := protocol.sentBodies(); len(sent) != 0 {
		t.Errorf("stopped view sent %v", sent)
	}
	testutil.RequireClosed(t, view.Done(), waitTimeout, "loop exited")
}

func TestRoomViewSendAfterContextCancel(t *testing.T) {
	protocol := newFakeProtocol()
	h := newHarness(t, protocol, nil)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan roomUpdate, 16)
	view := h.syncer.WatchRoom(ctx, roomA, func(update roomUpdate) { updates <- update })
	t.Cleanup(view.Stop)
	testutil.RequireReceive(t, updates, waitTimeout, "first snapshot")

	cancel()
	if _, err := view.Send(context.Background(), "too late"); !errors.Is(err, ErrStopped) {
		t.Errorf("Send after cancel = %v, want ErrStopped", err)
	}
	if sent := protocol.sentBodies(); len(sent) != 0 {
		t.Errorf("cancelled view sent %v", sent)
	}
	testutil.RequireClosed(t, view.Done(), waitTimeout, "loop exited")
}
