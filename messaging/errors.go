// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// ProtocolError is a non-2xx response from the homeserver. Callers
// inspect it with errors.As:
//
//	var protocolErr *ProtocolError
//	if errors.As(err, &protocolErr) && protocolErr.StatusCode == http.StatusNotFound { ... }
type ProtocolError struct {
	// Endpoint is the request path, e.g. "/_matrix/client/r0/joined_rooms".
	Endpoint string `json:"-"`

	StatusCode int `json:"-"`

	// Code is the Matrix errcode ("M_FORBIDDEN"). Empty when the body
	// was not a Matrix error object.
	Code string `json:"errcode"`

	// Message is the server's description, or the raw body when the
	// response was not JSON.
	Message string `json:"error"`
}

func (e *ProtocolError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("matrix: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("matrix: %s returned %d %s: %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
}

// Standard Matrix error codes dailyfix reacts to.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown       = "M_UNKNOWN"
)

// IsProtocolError reports whether err wraps a *ProtocolError with the
// given errcode. An empty code matches any ProtocolError.
func IsProtocolError(err error, code string) bool {
	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) {
		return false
	}
	return code == "" || protocolErr.Code == code
}

// AuthError reports a missing, closed, or rejected credential.
type AuthError struct {
	// Op names the operation that needed the credential ("login",
	// "joined rooms", ...).
	Op string

	// Reason is set when the failure was detected locally.
	Reason string

	// Err is the underlying ProtocolError or TransportError when the
	// homeserver rejected the credential or could not be reached.
	Err error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("authentication failed for %s: %s: %v", e.Op, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed for %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("authentication required for %s: %s", e.Op, e.Reason)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err wraps an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsUnauthorized reports whether the homeserver rejected the access
// token: a 401, or M_UNKNOWN_TOKEN / M_MISSING_TOKEN under any status.
func IsUnauthorized(err error) bool {
	var protocolErr *ProtocolError
	if !errors.As(err, &protocolErr) {
		return false
	}
	return protocolErr.StatusCode == 401 ||
		protocolErr.Code == ErrCodeUnknownToken ||
		protocolErr.Code == ErrCodeMissingToken
}
