// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets polling loops and transaction-id generators take
// time as a dependency.
//
// Production code holds a [Clock] field populated with [Real]. Tests
// populate it with [Fake] and drive time by hand:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	syncer := roomsync.NewSyncer(roomsync.Config{Clock: fake, ...})
//	view := syncer.WatchRoomList(ctx, onUpdate)
//	fake.WaitForTimers(1)          // the poll loop has armed its ticker
//	fake.Advance(5 * time.Second)  // deliver exactly one tick
//
// WaitForTimers closes the race between a goroutine arming a timer and
// the test advancing past it, so tests never sleep on the wall clock.
package clock
