// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands implements the dailyfix command tree: session
// management (login, logout, whoami, doctor), conversation access
// (rooms, messages, send), and analysis (summarize, prioritize,
// report, search, intent, index).
//
// Every command builds its dependencies from the loaded configuration
// through [App]. Stdout and Stderr are fields so tests can run the
// full tree against fake servers and capture the output.
package commands
