// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid simple", input: "!abc123:example.org"},
		{name: "valid with port in server", input: "!opaque:localhost:8008"},
		{name: "empty string", input: "", wantErr: "empty room ID"},
		{name: "missing bang prefix", input: "abc123:example.org", wantErr: "must start with '!'"},
		{name: "alias sigil", input: "#room:example.org", wantErr: "must start with '!'"},
		{name: "no server part", input: "!abc123"},
		{name: "single character body", input: "!a"},
		{name: "sigil only", input: "!", wantErr: "no content after '!'"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			roomID, err := ParseRoomID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Errorf("ParseRoomID(%q) error = %q, want substring %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q): %v", test.input, err)
			}
			if roomID.String() != test.input {
				t.Errorf("String() = %q, want %q", roomID.String(), test.input)
			}
		})
	}
}

func TestRoomIDJSON(t *testing.T) {
	var response struct {
		JoinedRooms []RoomID `json:"joined_rooms"`
	}
	if err := json.Unmarshal([]byte(`{"joined_rooms":["!a:test.local","!b:test.local"]}`), &response); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(response.JoinedRooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(response.JoinedRooms))
	}
	if response.JoinedRooms[1] != MustParseRoomID("!b:test.local") {
		t.Errorf("second room = %q", response.JoinedRooms[1])
	}

	encoded, err := json.Marshal(response.JoinedRooms)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != `["!a:test.local","!b:test.local"]` {
		t.Errorf("Marshal = %s", encoded)
	}

	var bad RoomID
	if err := json.Unmarshal([]byte(`"not-a-room"`), &bad); err == nil {
		t.Error("expected error decoding malformed room ID")
	}
}

func TestRoomIDZero(t *testing.T) {
	var roomID RoomID
	if !roomID.IsZero() {
		t.Error("zero RoomID should report IsZero")
	}
	if err := roomID.UnmarshalText(nil); err != nil {
		t.Errorf("UnmarshalText(empty): %v", err)
	}
	if !roomID.IsZero() {
		t.Error("empty UnmarshalText should leave the zero value")
	}
}
