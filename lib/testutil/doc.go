// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern used when a test waits on a goroutine
// driven by a fake clock. They are the only place in the test suite
// where real wall-clock timeouts appear.
//
// [UniqueID] generates monotonically increasing identifiers for
// transaction ids and message bodies that must not collide between
// subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
