// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is dailyfix's typed client for the Matrix
// client-server API (r0 paths).
//
// [Client] is unauthenticated: it holds the homeserver URL and HTTP
// transport, performs password login, and probes /versions. Login and
// [Client.SessionFromToken] produce a [DirectSession], which carries
// the access token in a secret.Buffer and performs the authenticated
// operations dailyfix needs: joined rooms, room state, paginated room
// messages, message send, whoami, and logout.
//
// Every authenticated request carries "Authorization: Bearer <token>".
// A call on a nil or closed DirectSession, or one without a token,
// fails with [*AuthError] before any network access.
//
// Errors are translated uniformly. A non-2xx response becomes
// [*ProtocolError] carrying the endpoint, HTTP status, and the Matrix
// errcode. A request that never produced a response becomes
// [*netutil.TransportError]. Nothing in this package retries.
//
// Sends use PUT with a client-generated transaction id of the form
// "dailyfix-<unix ms>-<counter>". The homeserver applies a given
// transaction id at most once, so a retried send (via
// [DirectSession.SendMessageWithTransaction]) yields the same event.
package messaging
