// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/ref"
)

// SummaryResult is the response of /summarize. Lengths are in words.
type SummaryResult struct {
	Summary          string  `json:"summary"`
	OriginalLength   int     `json:"original_length"`
	SummaryLength    int     `json:"summary_length"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// IntentResult is the response of /intent.
type IntentResult struct {
	Intent     string           `json:"intent"`
	Confidence float64          `json:"confidence"`
	Entities   []map[string]any `json:"entities"`
}

// RankedMessage is a message with the score the service assigned.
// Scores are reported as received.
type RankedMessage struct {
	Message conversation.Message `json:"message"`
	Score   float64              `json:"priority_score"`
}

// PriorityResult is the response of /priority, highest score first.
type PriorityResult struct {
	Ranked []RankedMessage `json:"ranked_messages"`
}

// DailyReport is the response of /daily-report.
type DailyReport struct {
	UserID             string          `json:"user_id"`
	Date               string          `json:"date"`
	TotalConversations int             `json:"total_conversations"`
	TotalMessages      int             `json:"total_messages"`
	Summary            string          `json:"summary"`
	PriorityMessages   []RankedMessage `json:"priority_messages"`
	IntentDistribution map[string]int  `json:"intent_distribution"`
	Insights           []string        `json:"key_insights"`
}

// SearchHit is one result of a semantic search.
type SearchHit struct {
	Message        conversation.Message `json:"message"`
	ConversationID string               `json:"conversation_id"`

	// Relevance is 1/(1+Distance): higher is closer.
	Relevance float64 `json:"relevance"`
	Distance  float64 `json:"distance"`
}

// StoreResult is the response of /vector/store.
type StoreResult struct {
	ConversationID string `json:"conversation_id"`
	MessagesStored int    `json:"messages_stored"`
}

// wireMessage is a message as the service echoes it back. Ids that
// the service made up (for example "msg_3" for a message indexed
// without one) are not valid event ids, so fields are decoded as
// plain strings and converted leniently.
type wireMessage struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
	UserID    string `json:"user_id"`
	Timestamp *int64 `json:"timestamp"`
	Type      string `json:"type"`
}

func (w wireMessage) message() conversation.Message {
	message := conversation.Message{Body: w.Body, Kind: w.Type}
	id := w.ID
	if id == "" {
		id = w.MessageID
	}
	if eventID, err := ref.ParseEventID(id); err == nil {
		message.ID = eventID
	}
	if userID, err := ref.ParseUserID(w.UserID); err == nil {
		message.SenderID = userID
	}
	if w.Timestamp != nil {
		message.TimestampMs = *w.Timestamp
	}
	return message
}

type wireRanked struct {
	wireMessage
	PriorityScore float64 `json:"priority_score"`
}

func rankedMessages(wire []wireRanked) []RankedMessage {
	ranked := make([]RankedMessage, len(wire))
	for index, entry := range wire {
		ranked[index] = RankedMessage{Message: entry.message(), Score: entry.PriorityScore}
	}
	return ranked
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type intentRequest struct {
	Message string `json:"message"`
}

type priorityRequest struct {
	Messages []conversation.Message `json:"messages"`
}

type priorityResponse struct {
	RankedMessages []wireRanked `json:"ranked_messages"`
}

type reportConversation struct {
	ID       ref.RoomID             `json:"id"`
	Messages []conversation.Message `json:"messages"`
}

type dailyReportRequest struct {
	UserID        ref.UserID           `json:"user_id"`
	Date          string               `json:"date"`
	Conversations []reportConversation `json:"conversations"`
}

type dailyReportResponse struct {
	UserID             string         `json:"user_id"`
	Date               string         `json:"date"`
	TotalConversations int            `json:"total_conversations"`
	TotalMessages      int            `json:"total_messages"`
	Summary            string         `json:"summary"`
	PriorityMessages   []wireRanked   `json:"priority_messages"`
	IntentDistribution map[string]int `json:"intent_distribution"`
	KeyInsights        []string       `json:"key_insights"`
}

type storeRequest struct {
	ConversationID ref.RoomID             `json:"conversation_id"`
	Messages       []conversation.Message `json:"messages"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []wireHit `json:"results"`
}

type wireHit struct {
	wireMessage
	ConversationID  string  `json:"conversation_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Distance        float64 `json:"distance"`
}

type healthResponse struct {
	Status string `json:"status"`
}
