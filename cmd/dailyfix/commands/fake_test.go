// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/dailyfix/lib/config"
	"github.com/bureau-foundation/dailyfix/messaging"
)

const (
	aliceID    = "@alice:test.local"
	aliceToken = "syt_alice_token"
	roomA      = "!a:test.local"
	roomB      = "!b:test.local"
)

type fakeRoom struct {
	name   string
	topic  string
	events []map[string]any
}

// homeserver is an in-memory Matrix homeserver with two rooms. It
// accepts the password "hunter2" for user "alice".
type homeserver struct {
	server *httptest.Server

	mu    sync.Mutex
	rooms map[string]*fakeRoom
	order []string
	sent  []string

	messagesServed chan string
	logouts        atomic.Int32
}

func newHomeserver(t *testing.T) *homeserver {
	t.Helper()
	fake := &homeserver{
		rooms: map[string]*fakeRoom{
			roomA: {name: "General", topic: "Team chat"},
			roomB: {name: "Ops"},
		},
		order:          []string{roomA, roomB},
		messagesServed: make(chan string, 1024),
	}
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).UnixMilli()
	fake.addMessage(roomA, "@bob:test.local", "Standup moved to 10am", base)
	fake.addMessage(roomA, "@carol:test.local", "Can someone review the deploy PR?", base+60_000)
	fake.addMessage(roomA, aliceID, "On it", base+120_000)
	fake.addMessage(roomB, "@dave:test.local", "Disk alert on db-2", base+30_000)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /_matrix/client/versions", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]any{"versions": []string{"r0.6.1", "v1.1"}})
	})
	mux.HandleFunc("POST /_matrix/client/r0/login", func(writer http.ResponseWriter, request *http.Request) {
		var login messaging.LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&login); err != nil {
			writeError(writer, http.StatusBadRequest, "M_NOT_JSON", err.Error())
			return
		}
		if (login.User != "alice" && login.User != aliceID) || login.Password != "hunter2" {
			writeError(writer, http.StatusForbidden, messaging.ErrCodeForbidden, "Invalid password")
			return
		}
		writeJSON(writer, map[string]string{"user_id": aliceID, "access_token": aliceToken, "device_id": "DEVICE"})
	})
	mux.HandleFunc("GET /_matrix/client/r0/account/whoami", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]string{"user_id": aliceID})
	}))
	mux.HandleFunc("POST /_matrix/client/r0/logout", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		fake.logouts.Add(1)
		writeJSON(writer, map[string]string{})
	}))
	mux.HandleFunc("GET /_matrix/client/r0/joined_rooms", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		fake.mu.Lock()
		rooms := append([]string(nil), fake.order...)
		fake.mu.Unlock()
		writeJSON(writer, map[string]any{"joined_rooms": rooms})
	}))
	mux.HandleFunc("GET /_matrix/client/r0/rooms/{roomID}/state", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		room, ok := fake.room(request.PathValue("roomID"))
		if !ok {
			writeError(writer, http.StatusForbidden, messaging.ErrCodeForbidden, "not in room")
			return
		}
		state := []map[string]any{
			{"event_id": "$create", "type": "m.room.create", "sender": aliceID, "state_key": "", "content": map[string]any{}},
			{"event_id": "$name", "type": "m.room.name", "sender": aliceID, "state_key": "", "content": map[string]any{"name": room.name}},
		}
		if room.topic != "" {
			state = append(state, map[string]any{"event_id": "$topic", "type": "m.room.topic", "sender": aliceID, "state_key": "", "content": map[string]any{"topic": room.topic}})
		}
		writeJSON(writer, state)
	}))
	mux.HandleFunc("GET /_matrix/client/r0/rooms/{roomID}/messages", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		roomID := request.PathValue("roomID")
		fake.mu.Lock()
		room, ok := fake.rooms[roomID]
		var chunk []map[string]any
		if ok {
			limit, _ := strconv.Atoi(request.URL.Query().Get("limit"))
			for index := len(room.events) - 1; index >= 0; index-- {
				if limit > 0 && len(chunk) == limit {
					break
				}
				chunk = append(chunk, room.events[index])
			}
		}
		fake.mu.Unlock()
		if !ok {
			writeError(writer, http.StatusForbidden, messaging.ErrCodeForbidden, "not in room")
			return
		}
		writeJSON(writer, map[string]any{"start": "t1", "end": "t0", "chunk": chunk})
		select {
		case fake.messagesServed <- roomID:
		default:
		}
	}))
	mux.HandleFunc("PUT /_matrix/client/r0/rooms/{roomID}/send/m.room.message/{txnID}", fake.authenticated(func(writer http.ResponseWriter, request *http.Request) {
		var content messaging.MessageContent
		if err := json.NewDecoder(request.Body).Decode(&content); err != nil {
			writeError(writer, http.StatusBadRequest, "M_NOT_JSON", err.Error())
			return
		}
		roomID := request.PathValue("roomID")
		if _, ok := fake.room(roomID); !ok {
			writeError(writer, http.StatusForbidden, messaging.ErrCodeForbidden, "not in room")
			return
		}
		eventID := fake.addMessage(roomID, aliceID, content.Body, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC).UnixMilli())
		fake.mu.Lock()
		fake.sent = append(fake.sent, content.Body)
		fake.mu.Unlock()
		writeJSON(writer, map[string]string{"event_id": eventID})
	}))

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func (h *homeserver) authenticated(handler http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer "+aliceToken {
			writeError(writer, http.StatusUnauthorized, messaging.ErrCodeUnknownToken, "Unrecognised access token")
			return
		}
		handler(writer, request)
	}
}

func (h *homeserver) room(roomID string) (fakeRoom, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return fakeRoom{}, false
	}
	return *room, true
}

func (h *homeserver) addMessage(roomID, sender, body string, timestamp int64) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	eventID := fmt.Sprintf("$%s-%d", roomID[1:2], len(room.events)+1)
	room.events = append(room.events, map[string]any{
		"event_id":         eventID,
		"type":             "m.room.message",
		"sender":           sender,
		"origin_server_ts": timestamp,
		"content":          map[string]any{"msgtype": "m.text", "body": body},
	})
	return eventID
}

// addMessageWithoutID appends a message event that carries no
// event_id, as some bridges produce.
func (h *homeserver) addMessageWithoutID(roomID, sender, body string, timestamp int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	room.events = append(room.events, map[string]any{
		"type":             "m.room.message",
		"sender":           sender,
		"origin_server_ts": timestamp,
		"content":          map[string]any{"msgtype": "m.text", "body": body},
	})
}

func (h *homeserver) sentBodies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sent...)
}

// analysisService is a scripted analysis service that records every
// request body by path.
type analysisService struct {
	server *httptest.Server

	mu       sync.Mutex
	requests map[string][]map[string]any
	healthy  atomic.Bool
}

func newAnalysisService(t *testing.T) *analysisService {
	t.Helper()
	fake := &analysisService{requests: make(map[string][]map[string]any)}
	fake.healthy.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(writer http.ResponseWriter, request *http.Request) {
		if !fake.healthy.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(writer, map[string]string{"detail": "model not loaded"})
			return
		}
		writeJSON(writer, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("POST /summarize", fake.recording(func(body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{
			"summary": "Standup moved; deploy PR needs review.", "original_length": 14,
			"summary_length": 6, "compression_ratio": 0.43,
		}
	}))
	mux.HandleFunc("POST /priority", fake.recording(func(body map[string]any) (int, any) {
		messages, _ := body["messages"].([]any)
		ranked := make([]map[string]any, 0, len(messages))
		for index := len(messages) - 1; index >= 0; index-- {
			entry := messages[index].(map[string]any)
			entry["priority_score"] = float64(index+1) / 10
			ranked = append(ranked, entry)
		}
		return http.StatusOK, map[string]any{"ranked_messages": ranked}
	}))
	mux.HandleFunc("POST /daily-report", fake.recording(func(body map[string]any) (int, any) {
		conversations, _ := body["conversations"].([]any)
		return http.StatusOK, map[string]any{
			"user_id": body["user_id"], "date": body["date"],
			"total_conversations": len(conversations), "total_messages": 4,
			"summary":             "A quiet Monday.",
			"priority_messages": []map[string]any{
				{"id": "$b-1", "body": "Disk alert on db-2", "user_id": "@dave:test.local", "timestamp": nil, "priority_score": 0.9},
			},
			"intent_distribution": map[string]int{"question": 1, "statement": 3},
			"key_insights":        []string{"One open review request"},
		}
	}))
	mux.HandleFunc("POST /vector/store", fake.recording(func(body map[string]any) (int, any) {
		messages, _ := body["messages"].([]any)
		return http.StatusOK, map[string]any{"status": "success", "conversation_id": body["conversation_id"], "messages_stored": len(messages)}
	}))
	mux.HandleFunc("POST /vector/search", fake.recording(func(body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"results": []map[string]any{
			{"conversation_id": roomA, "message_id": "msg_1", "body": "Can someone review the deploy PR?",
				"user_id": "@carol:test.local", "timestamp": nil, "similarity_score": 0.8, "distance": 0.25},
		}}
	}))
	mux.HandleFunc("POST /intent", fake.recording(func(body map[string]any) (int, any) {
		return http.StatusOK, map[string]any{
			"intent": "question", "confidence": 0.92,
			"entities": []map[string]any{{"text": "Friday", "label": "DATE"}},
		}
	}))

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func (a *analysisService) recording(respond func(body map[string]any) (int, any)) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			writer.WriteHeader(http.StatusUnprocessableEntity)
			writeJSON(writer, map[string]any{"detail": []map[string]any{{"msg": err.Error()}}})
			return
		}
		a.mu.Lock()
		a.requests[request.URL.Path] = append(a.requests[request.URL.Path], body)
		a.mu.Unlock()

		status, response := respond(body)
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		json.NewEncoder(writer).Encode(response)
	}
}

func (a *analysisService) received(path string) []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[path]
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"errcode": code, "error": message})
}

// harness runs the command tree against a fake homeserver and analysis
// service, with the session stored in a file under a temp directory.
type harness struct {
	t          *testing.T
	homeserver *homeserver
	analysis   *analysisService
	dir        string
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvHomeserver, "")
	t.Setenv(config.EnvAnalysisURL, "")

	h := &harness{
		t:          t,
		homeserver: newHomeserver(t),
		analysis:   newAnalysisService(t),
		dir:        t.TempDir(),
	}
	h.configPath = filepath.Join(h.dir, "dailyfix.yaml")
	h.writeConfig(h.homeserver.server.URL, h.analysis.server.URL)
	return h
}

func (h *harness) writeConfig(homeserverURL, analysisURL string) {
	h.t.Helper()
	contents := fmt.Sprintf(`environment: development
homeserver:
  url: %s
  timeout: 5s
analysis:
  url: %s
  timeout: 5s
sync:
  room_list_interval: 20ms
  room_interval: 20ms
  message_limit: 50
  state_concurrency: 4
storage:
  backend: file
  path: %s
`, homeserverURL, analysisURL, filepath.Join(h.dir, "state", "session.json"))
	if err := os.WriteFile(h.configPath, []byte(contents), 0o600); err != nil {
		h.t.Fatal(err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (h *harness) app() (*App, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &App{Stdout: stdout, Stderr: stderr, Logger: quietLogger()}, stdout, stderr
}

// run executes one command line with the harness's config and no
// dotenv file.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	app, stdout, _ := h.app()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := app.Run(ctx, h.args(args...))
	return stdout.String(), err
}

func (h *harness) args(args ...string) []string {
	return append([]string{"--config", h.configPath, "--env-file="}, args...)
}

// login stores a session for alice.
func (h *harness) login() {
	h.t.Helper()
	passwordFile := filepath.Join(h.dir, "password")
	if err := os.WriteFile(passwordFile, []byte("hunter2\n"), 0o600); err != nil {
		h.t.Fatal(err)
	}
	if _, err := h.run("login", "alice", "--password-file", passwordFile); err != nil {
		h.t.Fatalf("login: %v", err)
	}
}
