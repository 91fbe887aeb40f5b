// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "dailyfix",
		Subcommands: []*Command{
			{Name: "rooms", Run: func(context.Context, []string) error { called = "rooms"; return nil }},
			{Name: "send", Run: func(context.Context, []string) error { called = "send"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"send"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "send" {
		t.Errorf("dispatched to %q, want %q", called, "send")
	}
}

func TestCommand_Execute_PassesContextAndArgs(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var gotValue any
	var gotArgs []string
	root := &Command{
		Name: "dailyfix",
		Subcommands: []*Command{
			{
				Name: "messages",
				Run: func(ctx context.Context, args []string) error {
					gotValue = ctx.Value(key{})
					gotArgs = args
					return nil
				},
			},
		},
	}

	if err := root.Execute(ctx, []string{"messages", "!a:test.local"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if gotValue != "marker" {
		t.Errorf("context value = %v, want marker", gotValue)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "!a:test.local" {
		t.Errorf("args = %v, want [!a:test.local]", gotArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var limit int
	var watch bool
	var gotArgs []string
	command := &Command{
		Name: "messages",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("messages", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 50, "")
			flagSet.BoolVar(&watch, "watch", false, "")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			gotArgs = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--limit", "10", "!a:test.local", "--watch"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if limit != 10 || !watch {
		t.Errorf("limit = %d, watch = %v; want 10, true", limit, watch)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "!a:test.local" {
		t.Errorf("args = %v, want [!a:test.local]", gotArgs)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name:       "dailyfix",
		HelpOutput: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "rooms", Run: func(context.Context, []string) error { return nil }},
			{Name: "report", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"romos"})
	if err == nil {
		t.Fatal("Execute() succeeded, want error")
	}
	if !strings.Contains(err.Error(), `did you mean "rooms"`) {
		t.Errorf("error = %q, want a suggestion for rooms", err)
	}
	if Classify(err) != CategoryValidation {
		t.Errorf("Classify = %q, want validation", Classify(err))
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	var outputJSON bool
	command := &Command{
		Name: "rooms",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("rooms", pflag.ContinueOnError)
			flagSet.BoolVar(&outputJSON, "json", false, "")
			return flagSet
		},
		Run: func(context.Context, []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--jsn"})
	if err == nil {
		t.Fatal("Execute() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "did you mean --json?") {
		t.Errorf("error = %q, want a suggestion for --json", err)
	}
}

func TestCommand_Execute_HelpWritesUsage(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "dailyfix",
		Summary:    "Matrix conversations with analysis",
		HelpOutput: &help,
		Subcommands: []*Command{
			{Name: "rooms", Summary: "List joined rooms", Run: func(context.Context, []string) error { return nil }},
		},
		Examples: []Example{{Description: "List rooms", Command: "dailyfix rooms"}},
	}

	if err := root.Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	for _, want := range []string{"Matrix conversations with analysis", "rooms", "List joined rooms", "# List rooms", "dailyfix <command> [flags]"} {
		if !strings.Contains(help.String(), want) {
			t.Errorf("help output missing %q:\n%s", want, help.String())
		}
	}
}

func TestCommand_Execute_SubcommandHelpInheritsOutput(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:       "dailyfix",
		HelpOutput: &help,
		Subcommands: []*Command{
			{Name: "send", Usage: "dailyfix send <room> <body>", Run: func(context.Context, []string) error { return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"send", "--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(help.String(), "dailyfix send <room> <body>") {
		t.Errorf("help output = %q, want the send usage line", help.String())
	}
}

func TestCommand_Execute_GroupWithoutCommand(t *testing.T) {
	root := &Command{
		Name:        "dailyfix",
		HelpOutput:  &bytes.Buffer{},
		Subcommands: []*Command{{Name: "rooms", Run: func(context.Context, []string) error { return nil }}},
	}

	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "command required") {
		t.Errorf("Execute() error = %v, want command required", err)
	}
}

func TestCommand_Execute_PropagatesRunError(t *testing.T) {
	want := errors.New("boom")
	command := &Command{Name: "rooms", Run: func(context.Context, []string) error { return want }}

	if err := command.Execute(context.Background(), nil); !errors.Is(err, want) {
		t.Errorf("Execute() error = %v, want %v", err, want)
	}
}
