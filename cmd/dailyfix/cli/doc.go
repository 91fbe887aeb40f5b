// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the dailyfix binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// each leaf's pflag set, and suggests the closest command or flag on a
// typo. Commands report failures as [*ToolError] values carrying a
// category (validation, not_found, forbidden, transient, internal);
// [Classify] derives the category from the client error types and
// [ExitCode] maps it to the process exit status.
//
// Shared plumbing for leaf commands lives here too: --json output
// ([JSONOutput]), the command logger ([NewCommandLogger]), password
// input ([ReadPassword]), and the health checklist printed by doctor
// ([Check]).
package cli
