// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/dailyfix/lib/kvstore"
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/secret"
	"github.com/bureau-foundation/dailyfix/messaging"
)

// Keys under which the credential is persisted.
const (
	KeyAccessToken = "matrix_access_token"
	KeyUserID      = "matrix_user_id"
)

// Session is an authenticated identity. AccessToken is non-empty only
// together with UserID.
type Session struct {
	UserID      ref.UserID
	AccessToken string
}

// LogValue keeps the token out of structured logs.
func (s Session) LogValue() slog.Value {
	return slog.GroupValue(slog.String("user_id", s.UserID.String()))
}

// Config holds the collaborators of a Store.
type Config struct {
	// Storage is the durable key-value port. Required.
	Storage kvstore.Store

	// Client performs login and builds authenticated sessions.
	// Required.
	Client *messaging.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store manages the login lifecycle. It is safe for concurrent use.
type Store struct {
	storage kvstore.Store
	client  *messaging.Client
	logger  *slog.Logger

	mu      sync.Mutex
	current *Session
}

// New creates a Store with no session loaded. Call Restore to pick up
// a persisted credential.
func New(config Config) (*Store, error) {
	if config.Storage == nil {
		return nil, errors.New("session: storage is required")
	}
	if config.Client == nil {
		return nil, errors.New("session: protocol client is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: config.Storage, client: config.Client, logger: logger}, nil
}

// Login authenticates with a password and persists the credential
// before returning. Any login failure, including an unreachable
// homeserver, is returned as *messaging.AuthError wrapping the
// underlying ProtocolError or TransportError. The password buffer is
// read but not closed.
func (s *Store) Login(ctx context.Context, username string, password *secret.Buffer) (*Session, error) {
	direct, err := s.client.Login(ctx, username, password)
	if err != nil {
		var authErr *messaging.AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, &messaging.AuthError{Op: "login", Err: err}
	}
	defer direct.Close()

	session := &Session{UserID: direct.UserID(), AccessToken: direct.AccessToken()}
	if err := s.storage.Put(ctx, map[string]string{
		KeyAccessToken: session.AccessToken,
		KeyUserID:      session.UserID.String(),
	}); err != nil {
		return nil, fmt.Errorf("session: persisting credential for %s: %w", session.UserID, err)
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.logger.Info("session stored", "user_id", session.UserID)
	copied := *session
	return &copied, nil
}

// Restore loads the persisted credential. It returns (nil, nil) when
// none is stored. A storage failure is an error. A partial or
// malformed credential is cleared and reported as absent.
func (s *Store) Restore(ctx context.Context) (*Session, error) {
	token, hasToken, err := s.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("session: reading access token: %w", err)
	}
	rawUserID, hasUserID, err := s.storage.Get(ctx, KeyUserID)
	if err != nil {
		return nil, fmt.Errorf("session: reading user id: %w", err)
	}

	if !hasToken && !hasUserID {
		s.setCurrent(nil)
		return nil, nil
	}

	userID, parseErr := ref.ParseUserID(rawUserID)
	if token == "" || parseErr != nil {
		s.logger.Warn("discarding incomplete stored credential",
			"has_token", token != "",
			"has_user_id", hasUserID,
		)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	session := &Session{UserID: userID, AccessToken: token}
	s.setCurrent(session)
	s.logger.Debug("session restored", "user_id", userID)
	copied := *session
	return &copied, nil
}

// Clear removes the persisted credential and the in-memory session.
// Clearing an absent session succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, KeyAccessToken, KeyUserID); err != nil {
		return fmt.Errorf("session: deleting stored credential: %w", err)
	}
	s.mu.Lock()
	previous := s.current
	s.current = nil
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("session cleared", "user_id", previous.UserID)
	}
	return nil
}

// Current returns a copy of the in-memory session, or nil.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Protocol builds an authenticated protocol session from the current
// credential. The caller must Close it.
func (s *Store) Protocol() (*messaging.DirectSession, error) {
	current := s.Current()
	if current == nil {
		return nil, &messaging.AuthError{Op: "protocol session", Reason: "not logged in"}
	}
	return s.client.SessionFromToken(current.UserID, current.AccessToken)
}

// Verify asks the homeserver whether the current token is still
// valid. A rejected token is cleared and returned as
// *messaging.AuthError. Transport failures leave the session intact.
func (s *Store) Verify(ctx context.Context) (*Session, error) {
	direct, err := s.Protocol()
	if err != nil {
		return nil, err
	}
	defer direct.Close()

	userID, err := direct.WhoAmI(ctx)
	if err != nil {
		if messaging.IsUnauthorized(err) {
			if clearErr := s.Clear(ctx); clearErr != nil {
				return nil, errors.Join(&messaging.AuthError{Op: "verify session", Err: err}, clearErr)
			}
			return nil, &messaging.AuthError{Op: "verify session", Reason: "token rejected", Err: err}
		}
		return nil, fmt.Errorf("session: verifying token: %w", err)
	}
	if userID != direct.UserID() {
		s.logger.Warn("homeserver reports a different user for the stored token",
			"user_id", direct.UserID(),
			"whoami", userID,
		)
	}
	return s.Current(), nil
}

// Logout invalidates the token on the homeserver, best effort, and
// then clears the local credential. Only a local failure is returned.
func (s *Store) Logout(ctx context.Context) error {
	if direct, err := s.Protocol(); err == nil {
		if logoutErr := direct.Logout(ctx); logoutErr != nil {
			s.logger.Warn("homeserver logout failed, clearing local session anyway",
				"user_id", direct.UserID(),
				"error", logoutErr,
			)
		}
		direct.Close()
	}
	return s.Clear(ctx)
}

func (s *Store) setCurrent(session *Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
}
