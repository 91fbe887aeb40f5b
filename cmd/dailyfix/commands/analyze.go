// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/analysis"
	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/ref"
)

// snapshotFor fetches one room's current snapshot for an analysis
// command.
func (a *App) snapshotFor(ctx context.Context, rawRoomID string) (*environment, conversation.Snapshot, func(), error) {
	roomID, err := parseRoomArg(rawRoomID)
	if err != nil {
		return nil, conversation.Snapshot{}, nil, err
	}
	env, syncer, release, err := a.connect(ctx, 0)
	if err != nil {
		return nil, conversation.Snapshot{}, nil, err
	}
	snapshot, err := roomSnapshot(ctx, syncer, roomID)
	if err != nil {
		release()
		return nil, conversation.Snapshot{}, nil, cli.Wrap(err)
	}
	return env, snapshot, release, nil
}

func (a *App) summarizeCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "summarize",
		Summary: "Summarize a room's recent messages",
		Usage:   "dailyfix summarize <room-id> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("summarize", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: dailyfix summarize <room-id>")
			}
			env, snapshot, release, err := a.snapshotFor(ctx, args[0])
			if err != nil {
				return err
			}
			defer release()

			result, err := env.analysis.Summarize(ctx, snapshot)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "%s\n\n%d words -> %d words (ratio %.2f)\n",
				result.Summary, result.OriginalLength, result.SummaryLength, result.CompressionRatio)
			return nil
		},
	}
}

func writeRanked(w io.Writer, ranked []analysis.RankedMessage) {
	for index, entry := range ranked {
		fmt.Fprintf(w, "%2d. [%.2f] %s\n", index+1, entry.Score, formatMessage(entry.Message))
	}
}

func (a *App) prioritizeCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "prioritize",
		Summary: "Rank a room's recent messages by priority",
		Usage:   "dailyfix prioritize <room-id> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("prioritize", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: dailyfix prioritize <room-id>")
			}
			env, snapshot, release, err := a.snapshotFor(ctx, args[0])
			if err != nil {
				return err
			}
			defer release()

			result, err := env.analysis.Prioritize(ctx, snapshot)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, result.Ranked); done {
				return err
			}
			writeRanked(a.Stdout, result.Ranked)
			return nil
		},
	}
}

func (a *App) reportCommand() *cli.Command {
	var (
		output cli.JSONOutput
		date   string
	)
	return &cli.Command{
		Name:    "report",
		Summary: "Generate a daily report across rooms",
		Description: `Fetch the recent messages of the given rooms, or of every joined room
when none are given, and ask the analysis service for a daily report:
a summary, the highest-priority messages, the intent distribution, and
key insights. Rooms that cannot be fetched are skipped with a warning.`,
		Usage: "dailyfix report [room-id...] [--date YYYY-MM-DD] [--json]",
		Examples: []cli.Example{
			{Description: "Today's report for every joined room", Command: "dailyfix report"},
			{Description: "One room, a fixed date", Command: "dailyfix report '!abc:example.org' --date 2026-03-02"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("report", pflag.ContinueOnError)
			flagSet.StringVar(&date, "date", "", "report date (default: today, local time)")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			roomIDs := make([]ref.RoomID, 0, len(args))
			for _, arg := range args {
				roomID, err := parseRoomArg(arg)
				if err != nil {
					return err
				}
				roomIDs = append(roomIDs, roomID)
			}
			if date != "" {
				if _, err := time.Parse(time.DateOnly, date); err != nil {
					return cli.Validation("--date must be YYYY-MM-DD, got %q", date)
				}
			}

			env, syncer, release, err := a.connect(ctx, 0)
			if err != nil {
				return err
			}
			defer release()
			if date == "" {
				date = analysis.ReportDate(env.clock.Now())
			}

			if len(roomIDs) == 0 {
				rooms, err := roomList(ctx, syncer)
				if err != nil {
					return cli.Wrap(err)
				}
				for _, room := range rooms {
					roomIDs = append(roomIDs, room.ID)
				}
			}
			if len(roomIDs) == 0 {
				return cli.NotFound("no joined rooms to report on")
			}

			var snapshots []conversation.Snapshot
			var failures []error
			for _, roomID := range roomIDs {
				snapshot, err := roomSnapshot(ctx, syncer, roomID)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					env.logger.Warn("skipping room", "room_id", roomID, "error", err)
					failures = append(failures, err)
					continue
				}
				snapshots = append(snapshots, snapshot)
			}
			if len(snapshots) == 0 {
				return cli.Wrap(errors.Join(failures...))
			}

			report, err := env.analysis.DailyReport(ctx, env.sessions.Current().UserID, date, snapshots)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, report); done {
				return err
			}
			writeReport(a.Stdout, report)
			return nil
		},
	}
}

func writeReport(w io.Writer, report *analysis.DailyReport) {
	fmt.Fprintf(w, "Daily report for %s on %s\n", report.UserID, report.Date)
	fmt.Fprintf(w, "%d conversations, %d messages\n\n", report.TotalConversations, report.TotalMessages)
	fmt.Fprintf(w, "%s\n", report.Summary)

	if len(report.PriorityMessages) > 0 {
		fmt.Fprintf(w, "\nPriority messages:\n")
		writeRanked(w, report.PriorityMessages)
	}
	if len(report.IntentDistribution) > 0 {
		fmt.Fprintf(w, "\nIntents:\n")
		for _, intent := range slices.Sorted(maps.Keys(report.IntentDistribution)) {
			fmt.Fprintf(w, "  %-16s %d\n", intent, report.IntentDistribution[intent])
		}
	}
	if len(report.Insights) > 0 {
		fmt.Fprintf(w, "\nKey insights:\n")
		for _, insight := range report.Insights {
			fmt.Fprintf(w, "  - %s\n", insight)
		}
	}
}

func (a *App) searchCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "search",
		Summary: "Semantic search over indexed conversations",
		Description: `Search messages previously indexed with 'dailyfix index'. The five
closest messages are printed with their relevance, highest first.`,
		Usage: "dailyfix search <query...> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("search", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return cli.Validation("usage: dailyfix search <query...>")
			}
			env, err := a.open()
			if err != nil {
				return err
			}
			defer env.Close()

			hits, err := env.analysis.VectorSearch(ctx, query)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, hits); done {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(a.Stdout, "No matches.")
				return nil
			}
			for _, hit := range hits {
				fmt.Fprintf(a.Stdout, "[%.3f] %s  %s: %s\n", hit.Relevance, hit.ConversationID, hit.Message.SenderID, hit.Message.Body)
			}
			return nil
		},
	}
}

func (a *App) intentCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "intent",
		Summary: "Classify the intent of a message",
		Usage:   "dailyfix intent <message...> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("intent", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			message := strings.Join(args, " ")
			if strings.TrimSpace(message) == "" {
				return cli.Validation("usage: dailyfix intent <message...>")
			}
			env, err := a.open()
			if err != nil {
				return err
			}
			defer env.Close()

			result, err := env.analysis.ParseIntent(ctx, message)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "%s (confidence %.2f)\n", result.Intent, result.Confidence)
			for _, entity := range result.Entities {
				fmt.Fprintf(a.Stdout, "  %v: %v\n", entity["label"], entity["text"])
			}
			return nil
		},
	}
}

func (a *App) indexCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "index",
		Summary: "Index a room's recent messages for semantic search",
		Usage:   "dailyfix index <room-id> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("index", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: dailyfix index <room-id>")
			}
			env, snapshot, release, err := a.snapshotFor(ctx, args[0])
			if err != nil {
				return err
			}
			defer release()

			result, err := env.analysis.StoreConversation(ctx, snapshot)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "Indexed %d messages from %s\n", result.MessagesStored, snapshot.RoomID)
			return nil
		},
	}
}
