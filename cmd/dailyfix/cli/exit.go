// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit without printing an error message.
// The command has already written its own output (doctor with failed
// checks, for example).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Exit statuses by error category. 130 follows the shell convention
// for SIGINT.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitValidation  = 2
	ExitNotFound    = 3
	ExitForbidden   = 4
	ExitTransient   = 5
	ExitConflict    = 6
	ExitInterrupted = 130
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	switch Classify(err) {
	case CategoryValidation:
		return ExitValidation
	case CategoryNotFound:
		return ExitNotFound
	case CategoryForbidden:
		return ExitForbidden
	case CategoryTransient:
		return ExitTransient
	case CategoryConflict:
		return ExitConflict
	default:
		return ExitFailure
	}
}

// IsSilent reports whether err should exit without printing anything.
func IsSilent(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
