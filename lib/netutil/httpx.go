// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the HTTP plumbing shared by the homeserver
// client and the analysis client: bounded response reads and the
// transport error type both surface when a request never produced an
// HTTP response.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON response reads at 32 MB. Room history
// pages and analysis reports are far smaller.
const MaxResponseSize int64 = 32 << 20

// ReadResponse reads a JSON response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a bounded response body and unmarshals it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody returns an error response body as a string for diagnostics.
// Read failures yield whatever was read.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}

// TransportError reports a request that failed below HTTP: connection
// refused, DNS failure, TLS failure, timeout, or cancellation.
type TransportError struct {
	// Endpoint is the request path, e.g. "/_matrix/client/r0/login".
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}
