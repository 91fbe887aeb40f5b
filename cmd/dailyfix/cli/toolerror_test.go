// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/dailyfix/analysis"
	"github.com/bureau-foundation/dailyfix/lib/netutil"
	"github.com/bureau-foundation/dailyfix/messaging"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"tool error", Conflict("already there"), CategoryConflict},
		{"wrapped tool error", fmt.Errorf("outer: %w", NotFound("no room")), CategoryNotFound},
		{"auth error", &messaging.AuthError{Op: "joined rooms", Reason: "not logged in"}, CategoryForbidden},
		{"unknown token", fmt.Errorf("sync: %w", &messaging.ProtocolError{StatusCode: 401, Code: messaging.ErrCodeUnknownToken}), CategoryForbidden},
		{"forbidden", &messaging.ProtocolError{StatusCode: 403, Code: messaging.ErrCodeForbidden}, CategoryForbidden},
		{"room not found", &messaging.ProtocolError{StatusCode: 404, Code: messaging.ErrCodeNotFound}, CategoryNotFound},
		{"rate limited", &messaging.ProtocolError{StatusCode: 429, Code: messaging.ErrCodeLimitExceeded}, CategoryTransient},
		{"homeserver 502", &messaging.ProtocolError{StatusCode: 502}, CategoryTransient},
		{"homeserver 400", &messaging.ProtocolError{StatusCode: 400, Code: "M_BAD_JSON"}, CategoryValidation},
		{"analysis 503", &analysis.AnalysisError{Endpoint: "/summarize", StatusCode: 503}, CategoryTransient},
		{"analysis 422", fmt.Errorf("summarize: %w", &analysis.AnalysisError{Endpoint: "/summarize", StatusCode: 422}), CategoryValidation},
		{"analysis 404", &analysis.AnalysisError{Endpoint: "/vector/search", StatusCode: 404}, CategoryNotFound},
		{"no messages", fmt.Errorf("report: %w", analysis.ErrNoMessages), CategoryNotFound},
		{"transport", &netutil.TransportError{Endpoint: "/health", Err: errors.New("connection refused")}, CategoryTransient},
		{"deadline", fmt.Errorf("login: %w", context.DeadlineExceeded), CategoryTransient},
		{"plain", errors.New("boom"), CategoryInternal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.want {
				t.Errorf("Classify(%v) = %q, want %q", test.err, got, test.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) != nil")
	}

	inner := &messaging.ProtocolError{StatusCode: 404, Code: messaging.ErrCodeNotFound}
	wrapped := Wrap(inner)
	var toolErr *ToolError
	if !errors.As(wrapped, &toolErr) || toolErr.Category != CategoryNotFound {
		t.Fatalf("Wrap() = %#v, want a not_found ToolError", wrapped)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("Wrap() lost the inner error")
	}

	existing := Validation("bad")
	if Wrap(existing) != error(existing) {
		t.Error("Wrap() rewrapped an existing ToolError")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"exit error", &ExitError{Code: 1}, 1},
		{"wrapped exit error", fmt.Errorf("doctor: %w", &ExitError{Code: 7}), 7},
		{"canceled", fmt.Errorf("watch: %w", context.Canceled), ExitInterrupted},
		{"validation", Validation("bad"), ExitValidation},
		{"not found", analysis.ErrNoMessages, ExitNotFound},
		{"forbidden", &messaging.AuthError{Op: "send", Reason: "not logged in"}, ExitForbidden},
		{"transient", &netutil.TransportError{Endpoint: "/login", Err: errors.New("refused")}, ExitTransient},
		{"conflict", Conflict("dup"), ExitConflict},
		{"internal", errors.New("boom"), ExitFailure},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestIsSilent(t *testing.T) {
	if !IsSilent(&ExitError{Code: 1}) {
		t.Error("IsSilent(ExitError) = false")
	}
	if IsSilent(Validation("bad")) {
		t.Error("IsSilent(ToolError) = true")
	}
}
