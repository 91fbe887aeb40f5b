// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package roomsync keeps the user's joined rooms and the open room's
// messages fresh by polling the homeserver.
//
// A [Syncer] starts views. [Syncer.WatchRoomList] refreshes the list
// of joined rooms with their names and topics; [Syncer.WatchRoom]
// refreshes one room's most recent messages as a
// [conversation.Snapshot]. Each view is a scheduled task driven by a
// [clock.Ticker]: the first cycle runs immediately and one cycle
// starts per tick after that.
//
// Cycles within a view never overlap. A tick that arrives while a
// cycle is fetching or applying is skipped and counted in
// [Stats].SkippedTicks; it is not queued. A failed cycle reports its
// error in the [Update] and keeps the previous value, and the next
// tick proceeds normally.
//
// Stop tears a view down. Once Stop returns no cycle starts, and the
// result of a cycle that was in flight is dropped rather than applied
// or delivered.
package roomsync
