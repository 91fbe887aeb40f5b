// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens a small pool of zombiezen.com/go/sqlite
// connections with the pragmas dailyfix expects of a local database.
//
// Callers [Pool.Take] a connection, use it from one goroutine, and
// [Pool.Put] it back. Every connection is prepared with:
//
//   - journal_mode=WAL so a reader never waits on the writer;
//   - synchronous=FULL so a committed credential survives power loss;
//   - busy_timeout=5000 so two dailyfix processes sharing one file wait
//     for the write lock instead of failing with SQLITE_BUSY;
//   - foreign_keys=ON.
//
// [Config].OnConnect runs after the pragmas and is where callers
// create their tables.
package sqlitepool
