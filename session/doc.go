// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the user's homeserver credential.
//
// A [Store] logs in through a [messaging.Client], persists the
// resulting access token and user id in a [kvstore.Store] under fixed
// keys, and restores them on the next start. Every authenticated
// protocol call goes through [Store.Protocol], so no caller needs to
// touch the raw token.
//
// The persisted credential is all-or-nothing: Login writes both keys
// in one atomic Put, and Restore treats a token without a user id (or
// the reverse) as corrupt, clearing both keys and reporting that no
// session exists.
package session
