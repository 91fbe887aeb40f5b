// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema names the Matrix event types dailyfix reads and
// writes, and defines the content structures for the state events it
// interprets.
//
// Room state arrives from the homeserver as loosely typed JSON
// objects. [DecodeContent] converts one into a typed struct such as
// [RoomNameContent].
package schema
