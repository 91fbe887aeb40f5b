// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/bureau-foundation/dailyfix/analysis"
	"github.com/bureau-foundation/dailyfix/cmd/dailyfix/cli"
	"github.com/bureau-foundation/dailyfix/lib/clock"
	"github.com/bureau-foundation/dailyfix/lib/config"
	"github.com/bureau-foundation/dailyfix/lib/kvstore"
	"github.com/bureau-foundation/dailyfix/messaging"
	"github.com/bureau-foundation/dailyfix/roomsync"
	"github.com/bureau-foundation/dailyfix/session"
)

// environment is everything a command needs, built from one
// configuration.
type environment struct {
	config   *config.Config
	logger   *slog.Logger
	clock    clock.Clock
	storage  kvstore.Store
	matrix   *messaging.Client
	sessions *session.Store
	analysis *analysis.Client
}

// loadConfig resolves the configuration: --config, then
// DAILYFIX_CONFIG, then the built-in defaults with environment
// overrides.
func (a *App) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case a.configPath != "":
		cfg, err = config.LoadFile(a.configPath)
	case os.Getenv(config.EnvConfigPath) != "":
		cfg, err = config.Load()
	default:
		cfg = config.FromEnvironment()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}

// open loads the configuration and builds the clients. The caller
// must Close the environment.
func (a *App) open() (*environment, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return a.build(cfg)
}

func (a *App) build(cfg *config.Config) (*environment, error) {
	logger := a.logger()
	clk := a.clock()

	storage, err := kvstore.Open(cfg.Storage.Backend, cfg.Storage.Path, logger)
	if err != nil {
		return nil, cli.Internal("opening session storage: %w", err)
	}

	matrix, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		HTTPClient:    &http.Client{Timeout: cfg.Homeserver.Timeout},
		Logger:        logger,
		Clock:         clk,
	})
	if err != nil {
		storage.Close()
		return nil, cli.Validation("homeserver client: %w", err)
	}

	sessions, err := session.New(session.Config{Storage: storage, Client: matrix, Logger: logger})
	if err != nil {
		storage.Close()
		return nil, cli.Internal("session store: %w", err)
	}

	analysisClient, err := analysis.NewClient(analysis.ClientConfig{
		BaseURL:    cfg.Analysis.URL,
		HTTPClient: &http.Client{Timeout: cfg.Analysis.Timeout},
		Logger:     logger,
		Clock:      clk,
	})
	if err != nil {
		storage.Close()
		return nil, cli.Validation("analysis client: %w", err)
	}

	return &environment{
		config:   cfg,
		logger:   logger,
		clock:    clk,
		storage:  storage,
		matrix:   matrix,
		sessions: sessions,
		analysis: analysisClient,
	}, nil
}

func (e *environment) Close() error {
	return e.storage.Close()
}

// restore loads the stored credential, failing with a forbidden error
// when there is none.
func (e *environment) restore(ctx context.Context) (*session.Session, error) {
	current, err := e.sessions.Restore(ctx)
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	if current == nil {
		return nil, cli.Forbidden("not logged in; run 'dailyfix login <user>' first")
	}
	return current, nil
}

// protocol restores the session and returns an authenticated protocol
// session. The caller must Close it.
func (e *environment) protocol(ctx context.Context) (*messaging.DirectSession, error) {
	if _, err := e.restore(ctx); err != nil {
		return nil, err
	}
	direct, err := e.sessions.Protocol()
	if err != nil {
		return nil, cli.Wrap(err)
	}
	return direct, nil
}

// syncer builds a Syncer over source. A positive messageLimit
// overrides the configured one.
func (e *environment) syncer(source roomsync.Protocol, messageLimit int) (*roomsync.Syncer, error) {
	if messageLimit <= 0 {
		messageLimit = e.config.Sync.MessageLimit
	}
	syncer, err := roomsync.NewSyncer(roomsync.Config{
		Source:           source,
		Clock:            e.clock,
		Logger:           e.logger,
		RoomListInterval: e.config.Sync.RoomListInterval,
		RoomInterval:     e.config.Sync.RoomInterval,
		MessageLimit:     messageLimit,
		StateConcurrency: e.config.Sync.StateConcurrency,
	})
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	return syncer, nil
}

// connect opens the environment, restores the session, and builds a
// syncer over it. The returned release closes everything.
func (a *App) connect(ctx context.Context, messageLimit int) (*environment, *roomsync.Syncer, func(), error) {
	env, err := a.open()
	if err != nil {
		return nil, nil, nil, err
	}
	direct, err := env.protocol(ctx)
	if err != nil {
		env.Close()
		return nil, nil, nil, err
	}
	syncer, err := env.syncer(direct, messageLimit)
	if err != nil {
		direct.Close()
		env.Close()
		return nil, nil, nil, err
	}
	release := func() {
		direct.Close()
		env.Close()
	}
	return env, syncer, release, nil
}
