// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
)

func (a *App) doctorCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "doctor",
		Summary: "Check configuration, homeserver, session, and analysis service",
		Description: `Run a health checklist: the configuration loads and validates, the
homeserver answers /versions, the stored session is accepted, and the
analysis service reports healthy. Exits 1 if any check fails. A missing
session is a warning.`,
		Usage: "dailyfix doctor [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("doctor takes no arguments")
			}
			checks := a.runDoctor(ctx)

			if output.OutputJSON {
				ok := cli.ChecklistOK(checks)
				if err := cli.WriteJSON(a.Stdout, cli.ChecklistJSON{Checks: checks, OK: ok}); err != nil {
					return err
				}
				if !ok {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}
			return cli.PrintChecklist(a.Stdout, checks)
		},
	}
}

func (a *App) runDoctor(ctx context.Context) []cli.Check {
	cfg, err := a.loadConfig()
	if err != nil {
		return []cli.Check{
			cli.Fail("config", err.Error()),
			cli.Skip("homeserver", "configuration did not load"),
			cli.Skip("session", "configuration did not load"),
			cli.Skip("analysis", "configuration did not load"),
		}
	}
	checks := []cli.Check{
		cli.Pass("config", fmt.Sprintf("%s environment, %s session storage", cfg.Environment, cfg.Storage.Backend)),
	}

	env, err := a.build(cfg)
	if err != nil {
		return append(checks,
			cli.Fail("clients", err.Error()),
			cli.Skip("homeserver", "clients could not be built"),
			cli.Skip("session", "clients could not be built"),
			cli.Skip("analysis", "clients could not be built"),
		)
	}
	defer env.Close()

	homeserverOK := false
	versions, err := env.matrix.ServerVersions(ctx)
	if err != nil {
		checks = append(checks, cli.Fail("homeserver", err.Error()))
	} else {
		homeserverOK = true
		checks = append(checks, cli.Pass("homeserver",
			fmt.Sprintf("%s (%s)", env.matrix.HomeserverURL(), strings.Join(versions.Versions, ", "))))
	}

	current, err := env.sessions.Restore(ctx)
	switch {
	case err != nil:
		checks = append(checks, cli.Fail("session", err.Error()))
	case current == nil:
		checks = append(checks, cli.Warn("session", "not logged in"))
	case !homeserverOK:
		checks = append(checks, cli.Skip("session", "homeserver unreachable"))
	default:
		if verified, err := env.sessions.Verify(ctx); err != nil {
			checks = append(checks, cli.Fail("session", err.Error()))
		} else {
			checks = append(checks, cli.Pass("session", "logged in as "+verified.UserID.String()))
		}
	}

	if err := env.analysis.Health(ctx); err != nil {
		checks = append(checks, cli.Fail("analysis", err.Error()))
	} else {
		checks = append(checks, cli.Pass("analysis", env.analysis.BaseURL()))
	}
	return checks
}
