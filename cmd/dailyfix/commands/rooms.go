// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/roomsync"
)

// stopper is the part of a view the one-shot helpers need.
type stopper interface{ Stop() }

// first starts a view, waits for its first applied cycle, and stops
// it.
func first[T any](ctx context.Context, start func(onUpdate func(roomsync.Update[T])) stopper) (T, error) {
	updates := make(chan roomsync.Update[T], 1)
	view := start(func(update roomsync.Update[T]) {
		select {
		case updates <- update:
		default:
		}
	})
	defer view.Stop()

	select {
	case update := <-updates:
		return update.Value, update.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func roomList(ctx context.Context, syncer *roomsync.Syncer) ([]conversation.RoomSummary, error) {
	return first(ctx, func(onUpdate func(roomsync.Update[[]conversation.RoomSummary])) stopper {
		return syncer.WatchRoomList(ctx, onUpdate)
	})
}

func roomSnapshot(ctx context.Context, syncer *roomsync.Syncer, roomID ref.RoomID) (conversation.Snapshot, error) {
	return first(ctx, func(onUpdate func(roomsync.Update[conversation.Snapshot])) stopper {
		return syncer.WatchRoom(ctx, roomID, onUpdate)
	})
}

func parseRoomArg(raw string) (ref.RoomID, error) {
	roomID, err := ref.ParseRoomID(raw)
	if err != nil {
		return ref.RoomID{}, cli.Validation("room: %w", err)
	}
	return roomID, nil
}

// watchKey identifies a message across watch cycles. A message without
// an event id is identified by its content instead.
type watchKey struct {
	id        ref.EventID
	sender    ref.UserID
	timestamp int64
	body      string
}

func watchKeyOf(message conversation.Message) watchKey {
	if !message.ID.IsZero() {
		return watchKey{id: message.ID}
	}
	return watchKey{sender: message.SenderID, timestamp: message.TimestampMs, body: message.Body}
}

// lockedWriter serializes writes from view callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (a *App) roomsCommand() *cli.Command {
	var (
		output cli.JSONOutput
		watch  bool
	)
	return &cli.Command{
		Name:    "rooms",
		Summary: "List joined rooms with their names and topics",
		Description: `List the rooms the logged-in user has joined. With --watch the list
is refreshed on the configured room list interval (5s by default) and
reprinted after each cycle until interrupted.`,
		Usage: "dailyfix rooms [--watch] [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("rooms", pflag.ContinueOnError)
			flagSet.BoolVar(&watch, "watch", false, "keep polling and print each refresh")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return cli.Validation("rooms takes no arguments")
			}
			env, syncer, release, err := a.connect(ctx, 0)
			if err != nil {
				return err
			}
			defer release()

			if watch {
				stdout := &lockedWriter{w: a.Stdout}
				view := syncer.WatchRoomList(ctx, func(update roomsync.Update[[]conversation.RoomSummary]) {
					if update.Err != nil {
						env.logger.Warn("room list refresh failed", "cycle", update.Cycle, "error", update.Err)
						return
					}
					if done, err := output.EmitJSON(stdout, update.Value); done {
						if err != nil {
							env.logger.Error("writing room list", "error", err)
						}
						return
					}
					fmt.Fprintf(stdout, "-- %s (cycle %d)\n", update.At.Format(time.TimeOnly), update.Cycle)
					writeRooms(stdout, update.Value)
				})
				<-ctx.Done()
				view.Stop()
				return nil
			}

			rooms, err := roomList(ctx, syncer)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, rooms); done {
				return err
			}
			writeRooms(a.Stdout, rooms)
			return nil
		},
	}
}

func writeRooms(w io.Writer, rooms []conversation.RoomSummary) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "No joined rooms.")
		return
	}
	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "ROOM\tNAME\tTOPIC")
	for _, room := range rooms {
		fmt.Fprintf(table, "%s\t%s\t%s\n", room.ID, room.Name, room.Topic)
	}
	table.Flush()
}

func formatMessage(message conversation.Message) string {
	return fmt.Sprintf("%s  %s: %s", message.Time().Local().Format(time.DateTime), message.SenderID, message.Body)
}

func writeSnapshot(w io.Writer, snapshot conversation.Snapshot) {
	fmt.Fprintf(w, "%s (%s)\n", snapshot.RoomName, snapshot.RoomID)
	if snapshot.IsEmpty() {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for _, message := range snapshot.Messages {
		fmt.Fprintln(w, formatMessage(message))
	}
}

func (a *App) messagesCommand() *cli.Command {
	var (
		output cli.JSONOutput
		watch  bool
		limit  int
	)
	return &cli.Command{
		Name:    "messages",
		Summary: "Show the most recent messages of a room, oldest first",
		Description: `Print the newest messages of a room (the configured message limit,
50 by default), oldest first. With --watch the room is polled on the
configured room interval (3s by default) and new messages are printed
as they arrive until interrupted.`,
		Usage: "dailyfix messages <room-id> [--limit n] [--watch] [--json]",
		Examples: []cli.Example{
			{Description: "Follow a room", Command: "dailyfix messages '!abc:example.org' --watch"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("messages", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 0, "number of recent messages to fetch (default: sync.message_limit)")
			flagSet.BoolVar(&watch, "watch", false, "keep polling and print new messages")
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: dailyfix messages <room-id> [--limit n] [--watch] [--json]")
			}
			if limit < 0 {
				return cli.Validation("--limit must not be negative")
			}
			roomID, err := parseRoomArg(args[0])
			if err != nil {
				return err
			}
			env, syncer, release, err := a.connect(ctx, limit)
			if err != nil {
				return err
			}
			defer release()

			if watch {
				stdout := &lockedWriter{w: a.Stdout}
				seen := make(map[watchKey]bool)
				view := syncer.WatchRoom(ctx, roomID, func(update roomsync.Update[conversation.Snapshot]) {
					if update.Err != nil {
						env.logger.Warn("room refresh failed", "room_id", roomID, "cycle", update.Cycle, "error", update.Err)
						return
					}
					if update.Cycle == 1 && !output.OutputJSON {
						fmt.Fprintf(stdout, "%s (%s)\n", update.Value.RoomName, roomID)
					}
					for _, message := range update.Value.Messages {
						key := watchKeyOf(message)
						if seen[key] {
							continue
						}
						seen[key] = true
						if output.OutputJSON {
							cli.WriteJSON(stdout, message)
							continue
						}
						fmt.Fprintln(stdout, formatMessage(message))
					}
				})
				<-ctx.Done()
				view.Stop()
				return nil
			}

			snapshot, err := roomSnapshot(ctx, syncer, roomID)
			if err != nil {
				return cli.Wrap(err)
			}
			if done, err := output.EmitJSON(a.Stdout, snapshot); done {
				return err
			}
			writeSnapshot(a.Stdout, snapshot)
			return nil
		},
	}
}

type sendResult struct {
	RoomID        string `json:"room_id"`
	EventID       string `json:"event_id"`
	TransactionID string `json:"transaction_id"`
}

func (a *App) sendCommand() *cli.Command {
	var output cli.JSONOutput
	return &cli.Command{
		Name:    "send",
		Summary: "Send a text message to a room",
		Description: `Send a plain-text message. The remaining arguments are joined with
spaces to form the body. The command returns after the homeserver
acknowledges the event and the room has been refreshed once.`,
		Usage: "dailyfix send <room-id> <message...> [--json]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 2 {
				return cli.Validation("usage: dailyfix send <room-id> <message...>")
			}
			roomID, err := parseRoomArg(args[0])
			if err != nil {
				return err
			}
			body := strings.Join(args[1:], " ")
			if strings.TrimSpace(body) == "" {
				return cli.Validation("message body is empty")
			}

			env, syncer, release, err := a.connect(ctx, 0)
			if err != nil {
				return err
			}
			defer release()

			view := syncer.WatchRoom(ctx, roomID, nil)
			defer view.Stop()
			sent, sendErr := view.Send(ctx, body)
			if sent == nil {
				return cli.Wrap(sendErr)
			}
			if sendErr != nil {
				env.logger.Warn("message sent but the room refresh failed", "room_id", roomID, "error", sendErr)
			}

			result := sendResult{RoomID: roomID.String(), EventID: sent.EventID.String(), TransactionID: sent.TransactionID}
			if done, err := output.EmitJSON(a.Stdout, result); done {
				return err
			}
			fmt.Fprintf(a.Stdout, "Sent %s to %s\n", result.EventID, result.RoomID)
			if sendErr == nil {
				if message, ok := view.Latest().Value.ByEventID(sent.EventID); ok {
					fmt.Fprintln(a.Stdout, formatMessage(message))
				}
			}
			return nil
		},
	}
}
