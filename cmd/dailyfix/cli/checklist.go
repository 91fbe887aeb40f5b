// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"strings"
)

// CheckStatus is the outcome of a single health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
	StatusWarn CheckStatus = "warn"
	StatusSkip CheckStatus = "skip"
)

// Check is one line of a doctor checklist.
type Check struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// Pass creates a passing check.
func Pass(name, message string) Check {
	return Check{Name: name, Status: StatusPass, Message: message}
}

// Fail creates a failing check.
func Fail(name, message string) Check {
	return Check{Name: name, Status: StatusFail, Message: message}
}

// Warn creates a warning. Warnings do not fail the checklist.
func Warn(name, message string) Check {
	return Check{Name: name, Status: StatusWarn, Message: message}
}

// Skip creates a check that did not run because a prerequisite failed.
func Skip(name, message string) Check {
	return Check{Name: name, Status: StatusSkip, Message: message}
}

// ChecklistJSON is the --json form of a checklist.
type ChecklistJSON struct {
	Checks []Check `json:"checks"`
	OK     bool    `json:"ok"`
}

// ChecklistOK reports whether no check failed.
func ChecklistOK(checks []Check) bool {
	for _, check := range checks {
		if check.Status == StatusFail {
			return false
		}
	}
	return true
}

// PrintChecklist writes checks as a human-readable checklist and
// returns an *ExitError with code 1 if any check failed.
func PrintChecklist(w io.Writer, checks []Check) error {
	for _, check := range checks {
		prefix := strings.ToUpper(string(check.Status))
		fmt.Fprintf(w, "[%-4s]  %-24s  %s\n", prefix, check.Name, check.Message)
	}
	fmt.Fprintln(w)

	if !ChecklistOK(checks) {
		fmt.Fprintln(w, "Some checks failed.")
		return &ExitError{Code: 1}
	}
	fmt.Fprintln(w, "All checks passed.")
	return nil
}
