// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/dailyfix/analysis"
	"github.com/bureau-foundation/dailyfix/lib/netutil"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// ErrorCategory classifies command errors so scripts can decide
// whether to retry, fix their input, or re-authenticate without
// parsing message text.
type ErrorCategory string

const (
	// CategoryValidation means the caller provided invalid input.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means a referenced room, session, or message
	// set does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden means the credential is missing, rejected, or
	// lacks permission. Log in again.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict means the operation conflicts with existing state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient means a temporary failure: network error,
	// timeout, rate limit, or a 5xx from a service. Retry later.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal is everything else.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error. It wraps the underlying
// error so errors.Is and errors.As still see the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify returns the category for err. An existing *ToolError in the
// chain wins; otherwise the category is derived from the homeserver,
// analysis, and transport error types.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}

	if messaging.IsAuthError(err) || messaging.IsUnauthorized(err) {
		return CategoryForbidden
	}

	var protocolErr *messaging.ProtocolError
	if errors.As(err, &protocolErr) {
		switch {
		case protocolErr.Code == messaging.ErrCodeForbidden || protocolErr.StatusCode == http.StatusForbidden:
			return CategoryForbidden
		case protocolErr.Code == messaging.ErrCodeNotFound || protocolErr.StatusCode == http.StatusNotFound:
			return CategoryNotFound
		case protocolErr.Code == messaging.ErrCodeLimitExceeded || protocolErr.StatusCode == http.StatusTooManyRequests:
			return CategoryTransient
		case protocolErr.StatusCode >= 500:
			return CategoryTransient
		case protocolErr.StatusCode >= 400:
			return CategoryValidation
		}
		return CategoryInternal
	}

	var analysisErr *analysis.AnalysisError
	if errors.As(err, &analysisErr) {
		switch {
		case analysisErr.StatusCode == http.StatusNotFound:
			return CategoryNotFound
		case analysisErr.StatusCode >= 500:
			return CategoryTransient
		case analysisErr.StatusCode >= 400:
			return CategoryValidation
		}
		return CategoryInternal
	}

	if errors.Is(err, analysis.ErrNoMessages) {
		return CategoryNotFound
	}

	if netutil.IsTransportError(err) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	return CategoryInternal
}

// Wrap returns err as a *ToolError with its derived category. A nil
// err stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	return &ToolError{Category: Classify(err), Err: err}
}
