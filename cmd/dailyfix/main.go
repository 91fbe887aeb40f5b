// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// dailyfix is a Matrix client that keeps a user's conversations in sync
// and sends them to an analysis service for summaries, priority
// ranking, daily reports, and semantic search.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (doctor) return an
		// ExitError; don't add an "error:" line for those.
		if !cli.IsSilent(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.NewApp().Run(ctx, os.Args[1:])
}
