// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/lib/version"
)

func (a *App) versionCommand() *cli.Command {
	var full bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print the dailyfix version",
		Usage:   "dailyfix version [--full]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&full, "full", false, "include the Go version and platform")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("version takes no arguments")
			}
			if full {
				fmt.Fprintln(a.Stdout, version.Full())
			} else {
				fmt.Fprintln(a.Stdout, version.Info())
			}
			return nil
		},
	}
}
