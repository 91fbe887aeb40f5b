// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials (login passwords and Matrix access
// tokens) in memory that the Go runtime never manages.
//
// [Buffer] allocates an anonymous mmap region, locks it against swap
// with mlock, and excludes it from core dumps with MADV_DONTDUMP. Close
// zeroes, unlocks, and unmaps the region. The garbage collector never
// sees the region, so it cannot leave relocated copies of the secret on
// the heap.
//
// Secrets cross into heap strings only at JSON and HTTP header
// boundaries via [Buffer.String]. [Zero] scrubs caller-owned byte
// slices (file contents, terminal input) once they have been copied in.
package secret
