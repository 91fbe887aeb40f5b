// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/lib/clock"
)

// App holds the process-wide state shared by every command.
type App struct {
	Stdout io.Writer
	Stderr io.Writer

	// Logger replaces the command logger built from --verbose.
	Logger *slog.Logger

	// Clock drives sync loops and the default report date. Nil means
	// the wall clock.
	Clock clock.Clock

	configPath string
	envFile    string
	verbose    bool
}

// NewApp returns an App writing to the process's stdout and stderr.
func NewApp() *App {
	return &App{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) globalFlags() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("dailyfix", pflag.ContinueOnError)
	flagSet.StringVar(&a.configPath, "config", "", "path to dailyfix.yaml (default: $DAILYFIX_CONFIG, then built-in defaults)")
	flagSet.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment; empty disables")
	flagSet.BoolVarP(&a.verbose, "verbose", "v", false, "log each homeserver and analysis request")
	return flagSet
}

// Run parses the global flags, loads the dotenv file, and dispatches
// the remaining arguments to the command tree.
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.Root()

	flagSet := a.globalFlags()
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(io.Discard)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			root.PrintHelp(a.Stderr)
			return nil
		}
		return cli.Validation("%s\n\nRun 'dailyfix --help' for usage.", err)
	}

	if err := a.loadEnvFile(flagSet.Changed("env-file")); err != nil {
		return err
	}
	return root.Execute(ctx, flagSet.Args())
}

// loadEnvFile loads the dotenv file. Variables already set in the
// environment win. A missing default file is not an error; a missing
// file named on the command line is.
func (a *App) loadEnvFile(explicit bool) error {
	if a.envFile == "" {
		return nil
	}
	if _, err := os.Stat(a.envFile); err != nil {
		if explicit {
			return cli.Validation("env file %s: %w", a.envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(a.envFile); err != nil {
		return cli.Validation("loading env file %s: %w", a.envFile, err)
	}
	return nil
}

// Root returns the dailyfix command tree.
func (a *App) Root() *cli.Command {
	return &cli.Command{
		Name:    "dailyfix",
		Summary: "Matrix conversations with summaries, priorities, and daily reports",
		Description: `dailyfix logs into a Matrix homeserver, keeps your joined rooms and
their recent messages in sync, and sends conversations to the analysis
service for summaries, priority ranking, daily reports, and semantic search.`,
		Usage:      "dailyfix [--config path] [--env-file path] [-v] <command> [flags]",
		Flags:      a.globalFlags,
		HelpOutput: a.Stderr,
		Subcommands: []*cli.Command{
			a.loginCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.doctorCommand(),
			a.roomsCommand(),
			a.messagesCommand(),
			a.sendCommand(),
			a.summarizeCommand(),
			a.prioritizeCommand(),
			a.reportCommand(),
			a.searchCommand(),
			a.intentCommand(),
			a.indexCommand(),
			a.versionCommand(),
		},
		Examples: []cli.Example{
			{Description: "Log in and list your rooms", Command: "dailyfix login alice && dailyfix rooms"},
			{Description: "Today's report across every joined room", Command: "dailyfix report"},
		},
	}
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return cli.NewCommandLogger(a.verbose)
}

func (a *App) clock() clock.Clock {
	if a.Clock != nil {
		return a.Clock
	}
	return clock.Real()
}
