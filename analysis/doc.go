// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis is the client for the conversation analysis
// service: summaries, priority ranking, intent labels, daily reports,
// and semantic search over indexed rooms.
//
// Every method is one synchronous HTTP request tagged with a fresh
// X-Request-ID. Nothing is cached and nothing is retried. Methods that
// analyze a room's messages return [ErrNoMessages] without contacting
// the service when there is nothing to analyze.
//
// Failures come in two shapes: [*AnalysisError] when the service
// answered with a non-2xx status (Detail carries FastAPI's "detail"
// field), and [*netutil.TransportError] when no response arrived.
package analysis
