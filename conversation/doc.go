// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation turns raw Matrix events into the message model
// the rest of dailyfix works with.
//
// [Normalize] is a pure function. It keeps only m.room.message timeline
// events, maps each to a [Message], and orders the result oldest first.
// The homeserver returns history pages newest first; Normalize reverses
// the page and then stable-sorts by server timestamp, so the result is
// non-decreasing by timestamp whatever order the input was in.
//
// A [Snapshot] is one room's normalized history as of one fetch. It is
// rebuilt wholesale on every fetch and never merged with an earlier
// snapshot. [RoomSummaryFromState] derives a room's display name and
// topic from its state events.
package conversation
