// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomsync

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/dailyfix/conversation"
)

// RoomListView polls the joined room list.
type RoomListView struct {
	syncer *Syncer
	logger *slog.Logger
	task   *task[[]conversation.RoomSummary]
}

// WatchRoomList starts polling the joined rooms every
// RoomListInterval. The first cycle is already running when
// WatchRoomList returns. onUpdate, which may be nil, is called from
// the view's goroutine after each applied cycle; it must not call Stop.
// Cancelling ctx has the same effect on future cycles as Stop.
func (s *Syncer) WatchRoomList(ctx context.Context, onUpdate func(Update[[]conversation.RoomSummary])) *RoomListView {
	view := &RoomListView{syncer: s, logger: s.logger.With("view", "room_list")}
	view.task = startTask(ctx, s.clock, s.roomListInterval, view.logger, view.fetch, onUpdate, s.hooks)
	return view
}

// fetch lists the joined rooms and resolves their names
// concurrently. A room whose state cannot be read is listed under its
// id. The result follows the order of the joined room list.
func (v *RoomListView) fetch(ctx context.Context) ([]conversation.RoomSummary, error) {
	rooms, err := v.syncer.source.JoinedRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("roomsync: listing joined rooms: %w", err)
	}

	summaries := make([]conversation.RoomSummary, len(rooms))
	var group errgroup.Group
	group.SetLimit(v.syncer.stateConcurrency)
	for index, roomID := range rooms {
		group.Go(func() error {
			state, err := v.syncer.source.GetRoomState(ctx, roomID)
			if err != nil {
				v.logger.Debug("room state unavailable, listing room by id",
					"room_id", roomID,
					"error", err,
				)
				summaries[index] = conversation.FallbackSummary(roomID)
				return nil
			}
			summaries[index] = conversation.RoomSummaryFromState(roomID, state)
			return nil
		})
	}
	group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Latest returns the outcome of the most recent applied cycle.
func (v *RoomListView) Latest() Update[[]conversation.RoomSummary] {
	return v.task.latestUpdate()
}

// Stats returns the view's cycle counters and current state.
func (v *RoomListView) Stats() Stats { return v.task.currentStats() }

// Done is closed when the view's loop has exited, after Stop or when
// the context passed to WatchRoomList is cancelled.
func (v *RoomListView) Done() <-chan struct{} { return v.task.done }

// Stop halts polling and waits for the view's goroutines. It is
// idempotent.
func (v *RoomListView) Stop() { v.task.stop() }
