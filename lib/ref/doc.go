// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable references for the
// Matrix identifiers dailyfix handles: room IDs, user IDs, event IDs,
// and event types.
//
// Identifiers arrive from the homeserver as raw strings and are parsed
// into these types at the JSON boundary via encoding.TextUnmarshaler.
// A malformed identifier fails its own decode; callers that read lists
// from the homeserver skip the one bad entry. Once constructed, a ref is
// immutable and compares with ==, which makes it usable as a map key.
//
// RoomID, UserID, and EventID reject inputs without the correct sigil
// ('!', '@', '$'). User IDs additionally require a ':server' suffix.
// Room and event IDs are opaque beyond the sigil. EventType is a plain named string: event types are opaque
// and need no validation.
package ref
