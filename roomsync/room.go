// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// RoomView polls one room's most recent messages.
type RoomView struct {
	syncer *Syncer
	roomID ref.RoomID
	logger *slog.Logger
	task   *task[conversation.Snapshot]

	// summary is resolved on the first cycle whose state request
	// succeeds. Cycles are serialized, so only the running cycle
	// touches it.
	summary  conversation.RoomSummary
	resolved bool
}

// WatchRoom starts polling roomID every RoomInterval. The first cycle
// is already running when WatchRoom returns. onUpdate, which may be
// nil, is called from the view's goroutine after each applied cycle;
// it must not call Stop or Send.
func (s *Syncer) WatchRoom(ctx context.Context, roomID ref.RoomID, onUpdate func(Update[conversation.Snapshot])) *RoomView {
	view := &RoomView{
		syncer:  s,
		roomID:  roomID,
		logger:  s.logger.With("view", "room", "room_id", roomID),
		summary: conversation.FallbackSummary(roomID),
	}
	view.task = startTask(ctx, s.clock, s.roomInterval, view.logger, view.fetch, onUpdate, s.hooks)
	return view
}

// RoomID returns the watched room.
func (v *RoomView) RoomID() ref.RoomID { return v.roomID }

func (v *RoomView) fetch(ctx context.Context) (conversation.Snapshot, error) {
	if !v.resolved {
		state, err := v.syncer.source.GetRoomState(ctx, v.roomID)
		if err != nil {
			v.logger.Debug("room state unavailable, naming room by id", "error", err)
		} else {
			v.summary = conversation.RoomSummaryFromState(v.roomID, state)
			v.resolved = true
		}
	}

	response, err := v.syncer.source.RoomMessages(ctx, v.roomID, messaging.RoomMessagesOptions{
		Direction: "b",
		Limit:     v.syncer.messageLimit,
	})
	if err != nil {
		return conversation.Snapshot{}, fmt.Errorf("roomsync: fetching messages for %s: %w", v.roomID, err)
	}
	return conversation.NewSnapshot(v.roomID, v.summary.Name, response.Chunk), nil
}

// Send posts a text message, waits for the homeserver to acknowledge
// it, and then runs one sync cycle so the returned event is visible
// in Latest before Send returns (unless that cycle fails, which is
// reported through the Update). If a cycle is in flight Send waits
// for it and then runs its own.
func (v *RoomView) Send(ctx context.Context, body string) (*messaging.SendResult, error) {
	if v.task.halted() {
		return nil, ErrStopped
	}
	result, err := v.syncer.source.SendMessage(ctx, v.roomID, body)
	if err != nil {
		return nil, fmt.Errorf("roomsync: sending to %s: %w", v.roomID, err)
	}
	v.logger.Debug("message acknowledged", "event_id", result.EventID)
	if err := v.task.runNow(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// Latest returns the outcome of the most recent applied cycle.
func (v *RoomView) Latest() Update[conversation.Snapshot] {
	return v.task.latestUpdate()
}

// Stats returns the view's cycle counters and current state.
func (v *RoomView) Stats() Stats { return v.task.currentStats() }

// Done is closed when the view's loop has exited.
func (v *RoomView) Done() <-chan struct{} { return v.task.done }

// Stop halts polling and waits for the view's goroutines. It is
// idempotent.
func (v *RoomView) Stop() { v.task.stop() }
