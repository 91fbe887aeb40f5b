// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kvstore is the durable key-value port the session store
// persists credentials through.
//
// Three backends implement [Store]:
//
//   - [NewMemory] keeps entries in a map. Used by tests and by
//     configurations that want a process-lifetime session.
//   - [OpenFile] keeps entries in one JSON object file written with
//     mode 0600. Every write goes to a temporary file in the same
//     directory and is renamed over the original, so a reader sees
//     either the old or the new set of entries.
//   - [OpenSQLite] keeps entries in a table of a [sqlitepool] database.
//     Multi-key writes run in one transaction.
//
// [Store.Put] and [Store.Delete] are atomic across all keys they name.
// [Open] selects a backend by name, matching the storage.backend
// configuration field.
package kvstore
