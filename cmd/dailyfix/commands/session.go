// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/lib/ref"
)

func (a *App) loginCommand() *cli.Command {
	var passwordFile string
	return &cli.Command{
		Name:    "login",
		Summary: "Log in to the homeserver and store the session",
		Description: `Log in with a username and password. The access token is stored in
the configured session storage and reused by every other command until
logout.

The password is prompted for on the terminal unless --password-file
names a file, or "-" to read the first line of stdin.

Logging in again as the stored user replaces the session. Logging in
as a different user fails with exit code 6 until you log out.`,
		Usage: "dailyfix login <username> [--password-file path]",
		Examples: []cli.Example{
			{Description: "Log in interactively", Command: "dailyfix login alice"},
			{Description: "Log in from a script", Command: "printf '%s\\n' \"$PASSWORD\" | dailyfix login alice --password-file -"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
			flagSet.StringVar(&passwordFile, "password-file", "", "file containing the password, or - for stdin (default: prompt)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: dailyfix login <username> [--password-file path]")
			}
			username := args[0]

			env, err := a.open()
			if err != nil {
				return err
			}
			defer env.Close()

			stored, err := env.sessions.Restore(ctx)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if stored != nil && !sameUser(stored.UserID, username) {
				return cli.Conflict("already logged in as %s; run 'dailyfix logout' first", stored.UserID)
			}

			password, err := cli.ReadPassword(passwordFile, a.Stderr)
			if err != nil {
				return err
			}
			defer password.Close()

			current, err := env.sessions.Login(ctx, username, password)
			if err != nil {
				return cli.Wrap(err)
			}
			fmt.Fprintf(a.Stdout, "Logged in as %s\n", current.UserID)
			return nil
		},
	}
}

// sameUser reports whether a login name refers to userID. The name is
// either a full user id or a bare localpart.
func sameUser(userID ref.UserID, name string) bool {
	if strings.HasPrefix(name, "@") {
		return userID.String() == name
	}
	return userID.Localpart() == name
}

func (a *App) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:    "logout",
		Summary: "Invalidate the stored session",
		Description: `Log out on the homeserver, best effort, and delete the stored
credential. The local credential is removed even when the homeserver
cannot be reached.`,
		Usage: "dailyfix logout",
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("logout takes no arguments")
			}
			env, err := a.open()
			if err != nil {
				return err
			}
			defer env.Close()

			current, err := env.sessions.Restore(ctx)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if current == nil {
				fmt.Fprintln(a.Stdout, "Not logged in")
				return nil
			}
			if err := env.sessions.Logout(ctx); err != nil {
				return cli.Internal("%w", err)
			}
			fmt.Fprintf(a.Stdout, "Logged out %s\n", current.UserID)
			return nil
		},
	}
}

type whoamiResult struct {
	UserID     string `json:"user_id"`
	Homeserver string `json:"homeserver"`
}

func (a *App) whoamiCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the logged-in user, verified against the homeserver",
		Description: `Ask the homeserver who the stored token belongs to. A token the
homeserver rejects is deleted, and the command fails with exit code 4.`,
		Usage: "dailyfix whoami [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("whoami", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("whoami takes no arguments")
			}
			env, err := a.open()
			if err != nil {
				return err
			}
			defer env.Close()

			if _, err := env.restore(ctx); err != nil {
				return err
			}
			current, err := env.sessions.Verify(ctx)
			if err != nil {
				return cli.Wrap(err)
			}

			result := whoamiResult{UserID: current.UserID.String(), Homeserver: env.matrix.HomeserverURL()}
			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "%s on %s\n", result.UserID, result.Homeserver)
			return nil
		},
	}
}
