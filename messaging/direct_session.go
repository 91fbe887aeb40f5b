// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/schema"
	"github.com/bureau-foundation/dailyfix/lib/secret"
)

// DirectSession is an authenticated Matrix session. The access token
// lives in a secret.Buffer; Close releases it, after which every
// method fails with *AuthError. A DirectSession is safe for concurrent
// use.
type DirectSession struct {
	client *Client
	userID ref.UserID

	mu          sync.RWMutex
	accessToken *secret.Buffer

	transactionCounter atomic.Int64
}

// UserID returns the session's Matrix user id.
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// AccessToken returns a heap copy of the token for persistence. It
// returns "" once the session is closed.
func (s *DirectSession) AccessToken() string {
	token, err := s.bearer("access token")
	if err != nil {
		return ""
	}
	return token
}

// Close releases the token memory. Close is idempotent.
func (s *DirectSession) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken == nil {
		return nil
	}
	err := s.accessToken.Close()
	s.accessToken = nil
	return err
}

// bearer returns the token for one request, or *AuthError when the
// session cannot authenticate.
func (s *DirectSession) bearer(op string) (string, error) {
	if s == nil || s.client == nil {
		return "", &AuthError{Op: op, Reason: "no session"}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == nil || s.accessToken.Closed() {
		return "", &AuthError{Op: op, Reason: "session is closed"}
	}
	return s.accessToken.String(), nil
}

// do runs an authenticated request.
func (s *DirectSession) do(ctx context.Context, op, method, path string, body any, query url.Values) ([]byte, error) {
	token, err := s.bearer(op)
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, token, body, query)
}

func roomPath(roomID ref.RoomID, suffix string) string {
	return clientPrefix + "/rooms/" + url.PathEscape(roomID.String()) + suffix
}

// WhoAmI returns the user id the homeserver associates with the token.
func (s *DirectSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	body, err := s.do(ctx, "whoami", http.MethodGet, clientPrefix+"/account/whoami", nil, nil)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: parsing whoami response: %w", err)
	}
	return response.UserID, nil
}

// Logout invalidates the access token on the homeserver. The session
// stays open locally; callers Close it afterwards.
func (s *DirectSession) Logout(ctx context.Context) error {
	if _, err := s.do(ctx, "logout", http.MethodPost, clientPrefix+"/logout", struct{}{}, nil); err != nil {
		return fmt.Errorf("messaging: logout: %w", err)
	}
	s.client.logger.Info("logged out of homeserver", "user_id", s.userID)
	return nil
}

// JoinedRooms returns the ids of every room the user has joined, in
// server order.
func (s *DirectSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.do(ctx, "joined rooms", http.MethodGet, clientPrefix+"/joined_rooms", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: parsing joined rooms response: %w", err)
	}
	rooms := make([]ref.RoomID, 0, len(response.JoinedRooms))
	for _, raw := range response.JoinedRooms {
		roomID, err := ref.ParseRoomID(raw)
		if err != nil {
			s.client.logger.Warn("skipping malformed joined room", "room_id", raw, "error", err)
			continue
		}
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

// GetRoomState returns every current state event of a room. A room
// without a name or topic simply has no such event.
func (s *DirectSession) GetRoomState(ctx context.Context, roomID ref.RoomID) ([]Event, error) {
	body, err := s.do(ctx, "room state", http.MethodGet, roomPath(roomID, "/state"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: room state for %s: %w", roomID, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("messaging: parsing room state response: %w", err)
	}
	return s.decodeEvents(roomID, raw), nil
}

// RoomMessages fetches one page of room history. The default
// direction is backward, so Chunk is newest first; reordering is the
// caller's job.
func (s *DirectSession) RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	query := url.Values{}
	direction := options.Direction
	if direction == "" {
		direction = "b"
	}
	query.Set("dir", direction)
	if options.From != "" {
		query.Set("from", options.From)
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	body, err := s.do(ctx, "room messages", http.MethodGet, roomPath(roomID, "/messages"), nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: room messages for %s: %w", roomID, err)
	}

	var page struct {
		Start string            `json:"start"`
		End   string            `json:"end"`
		Chunk []json.RawMessage `json:"chunk"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("messaging: parsing messages response: %w", err)
	}
	return &RoomMessagesResponse{
		Start: page.Start,
		End:   page.End,
		Chunk: s.decodeEvents(roomID, page.Chunk),
	}, nil
}

// decodeEvents decodes events one at a time. An event that does not
// decode, such as one whose sender is not a valid user id, is logged
// and skipped; the rest of the list survives.
func (s *DirectSession) decodeEvents(roomID ref.RoomID, raw []json.RawMessage) []Event {
	events := make([]Event, 0, len(raw))
	for index, data := range raw {
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.client.logger.Warn("skipping undecodable event",
				"room_id", roomID,
				"index", index,
				"error", err,
			)
			continue
		}
		events = append(events, event)
	}
	return events
}

// SendMessage sends a plain-text message under a fresh transaction id.
func (s *DirectSession) SendMessage(ctx context.Context, roomID ref.RoomID, body string) (*SendResult, error) {
	if _, err := s.bearer("send message"); err != nil {
		return nil, err
	}
	return s.SendMessageWithTransaction(ctx, roomID, body, s.nextTransactionID())
}

// SendMessageWithTransaction sends under a caller-chosen transaction
// id. Reusing the id of an earlier attempt makes the homeserver return
// the original event instead of creating a second one.
func (s *DirectSession) SendMessageWithTransaction(ctx context.Context, roomID ref.RoomID, body, transactionID string) (*SendResult, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("messaging: transaction id is required")
	}
	path := roomPath(roomID, "/send/"+url.PathEscape(schema.EventTypeMessage.String())+"/"+url.PathEscape(transactionID))

	responseBody, err := s.do(ctx, "send message", http.MethodPut, path, NewTextMessage(body), nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: send message to %s: %w", roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("messaging: parsing send response: %w", err)
	}
	s.client.logger.Debug("message sent",
		"room_id", roomID,
		"event_id", response.EventID,
		"transaction_id", transactionID,
	)
	return &SendResult{EventID: response.EventID, TransactionID: transactionID}, nil
}

// nextTransactionID returns "dailyfix-<unix ms>-<counter>". The
// counter keeps ids distinct within one millisecond and across clock
// steps backward.
func (s *DirectSession) nextTransactionID() string {
	counter := s.transactionCounter.Add(1)
	return fmt.Sprintf("dailyfix-%d-%d", s.client.clock.Now().UnixMilli(), counter)
}
