// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/dailyfix/lib/clock"
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// Protocol is the subset of the homeserver API the views poll.
// *messaging.DirectSession satisfies it.
type Protocol interface {
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)
	GetRoomState(ctx context.Context, roomID ref.RoomID) ([]messaging.Event, error)
	RoomMessages(ctx context.Context, roomID ref.RoomID, options messaging.RoomMessagesOptions) (*messaging.RoomMessagesResponse, error)
	SendMessage(ctx context.Context, roomID ref.RoomID, body string) (*messaging.SendResult, error)
}

var _ Protocol = (*messaging.DirectSession)(nil)

// Defaults applied by NewSyncer to zero Config fields.
const (
	DefaultRoomListInterval = 5 * time.Second
	DefaultRoomInterval     = 3 * time.Second
	DefaultMessageLimit     = 50
	DefaultStateConcurrency = 8
)

// ErrStopped is returned by operations on a stopped view.
var ErrStopped = errors.New("roomsync: view is stopped")

// Config configures a Syncer.
type Config struct {
	// Source is polled for rooms and messages. Required.
	Source Protocol

	// Clock drives the tickers. Nil means the wall clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// RoomListInterval is the period of room list refreshes.
	RoomListInterval time.Duration

	// RoomInterval is the period of message refreshes for an open
	// room.
	RoomInterval time.Duration

	// MessageLimit is how many of the newest messages each room cycle
	// fetches.
	MessageLimit int

	// StateConcurrency bounds the parallel room state requests in one
	// room list cycle.
	StateConcurrency int
}

// Syncer starts polling views over one protocol session.
type Syncer struct {
	source           Protocol
	clock            clock.Clock
	logger           *slog.Logger
	roomListInterval time.Duration
	roomInterval     time.Duration
	messageLimit     int
	stateConcurrency int

	hooks hooks
}

// hooks let tests observe a view's scheduling.
type hooks struct {
	// tick is called by a view's loop after each tick with whether the
	// tick started a cycle.
	tick func(started bool)

	// cycleDone is called after a ticker-started cycle has finished
	// and released the view for the next one.
	cycleDone func()
}

// NewSyncer validates the configuration and applies defaults.
func NewSyncer(config Config) (*Syncer, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("roomsync: Source is required")
	}
	if config.RoomListInterval < 0 || config.RoomInterval < 0 {
		return nil, fmt.Errorf("roomsync: intervals must not be negative")
	}
	if config.MessageLimit < 0 || config.StateConcurrency < 0 {
		return nil, fmt.Errorf("roomsync: MessageLimit and StateConcurrency must not be negative")
	}

	syncer := &Syncer{
		source:           config.Source,
		clock:            config.Clock,
		logger:           config.Logger,
		roomListInterval: config.RoomListInterval,
		roomInterval:     config.RoomInterval,
		messageLimit:     config.MessageLimit,
		stateConcurrency: config.StateConcurrency,
	}
	if syncer.clock == nil {
		syncer.clock = clock.Real()
	}
	if syncer.logger == nil {
		syncer.logger = slog.Default()
	}
	if syncer.roomListInterval == 0 {
		syncer.roomListInterval = DefaultRoomListInterval
	}
	if syncer.roomInterval == 0 {
		syncer.roomInterval = DefaultRoomInterval
	}
	if syncer.messageLimit == 0 {
		syncer.messageLimit = DefaultMessageLimit
	}
	if syncer.stateConcurrency == 0 {
		syncer.stateConcurrency = DefaultStateConcurrency
	}
	return syncer, nil
}
