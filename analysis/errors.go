// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoMessages is returned, without a request, when the input holds
// no messages to analyze.
var ErrNoMessages = errors.New("analysis: no messages to analyze")

// AnalysisError is a non-2xx response from the analysis service.
type AnalysisError struct {
	// Endpoint is the request path, e.g. "/summarize".
	Endpoint   string
	StatusCode int

	// Detail is the service's explanation: the "detail" field of a
	// FastAPI error body, or the raw body when it is not JSON.
	Detail string
}

func (e *AnalysisError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("analysis service %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("analysis service %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

// IsAnalysisError reports whether err wraps an *AnalysisError.
func IsAnalysisError(err error) bool {
	var analysisErr *AnalysisError
	return errors.As(err, &analysisErr)
}

// errorDetail extracts the detail from an error body. Validation
// failures carry a list of objects rather than a string; those are
// returned as compact JSON.
func errorDetail(body string) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal([]byte(body), &envelope) != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(body)
	}
	var text string
	if json.Unmarshal(envelope.Detail, &text) == nil {
		return text
	}
	return string(envelope.Detail)
}
