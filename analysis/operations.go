// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/dailyfix/conversation"
	"github.com/bureau-foundation/dailyfix/lib/ref"
)

// DefaultTopK is the number of hits VectorSearch asks for.
const DefaultTopK = 5

// Summarize asks for a summary of the snapshot's transcript.
func (c *Client) Summarize(ctx context.Context, snapshot conversation.Snapshot) (*SummaryResult, error) {
	if snapshot.IsEmpty() {
		return nil, ErrNoMessages
	}
	var result SummaryResult
	if err := c.do(ctx, http.MethodPost, "/summarize", summarizeRequest{Text: snapshot.Transcript()}, &result); err != nil {
		return nil, fmt.Errorf("analysis: summarizing %s: %w", snapshot.RoomID, err)
	}
	c.logger.Info("conversation summarized",
		"room_id", snapshot.RoomID,
		"messages", len(snapshot.Messages),
		"compression_ratio", result.CompressionRatio,
	)
	return &result, nil
}

// Prioritize ranks the snapshot's messages, highest priority first.
func (c *Client) Prioritize(ctx context.Context, snapshot conversation.Snapshot) (*PriorityResult, error) {
	if snapshot.IsEmpty() {
		return nil, ErrNoMessages
	}
	var response priorityResponse
	if err := c.do(ctx, http.MethodPost, "/priority", priorityRequest{Messages: snapshot.Messages}, &response); err != nil {
		return nil, fmt.Errorf("analysis: prioritizing %s: %w", snapshot.RoomID, err)
	}
	return &PriorityResult{Ranked: rankedMessages(response.RankedMessages)}, nil
}

// ReportDate formats the local calendar day of t as YYYY-MM-DD, the
// date format /daily-report expects.
func ReportDate(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}

// DailyReport asks for a digest of the given rooms for one day. date
// is YYYY-MM-DD (see ReportDate). It returns ErrNoMessages when no
// snapshot holds a message.
func (c *Client) DailyReport(ctx context.Context, userID ref.UserID, date string, snapshots []conversation.Snapshot) (*DailyReport, error) {
	if userID.IsZero() {
		return nil, errors.New("analysis: daily report needs a user id")
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("analysis: daily report date %q is not YYYY-MM-DD", date)
	}

	request := dailyReportRequest{UserID: userID, Date: date}
	total := 0
	for _, snapshot := range snapshots {
		total += len(snapshot.Messages)
		messages := snapshot.Messages
		if messages == nil {
			messages = []conversation.Message{}
		}
		request.Conversations = append(request.Conversations, reportConversation{
			ID:       snapshot.RoomID,
			Messages: messages,
		})
	}
	if total == 0 {
		return nil, ErrNoMessages
	}

	var response dailyReportResponse
	if err := c.do(ctx, http.MethodPost, "/daily-report", request, &response); err != nil {
		return nil, fmt.Errorf("analysis: daily report for %s on %s: %w", userID, date, err)
	}
	c.logger.Info("daily report generated",
		"user_id", userID,
		"date", date,
		"conversations", len(request.Conversations),
		"messages", total,
	)
	return &DailyReport{
		UserID:             response.UserID,
		Date:               response.Date,
		TotalConversations: response.TotalConversations,
		TotalMessages:      response.TotalMessages,
		Summary:            response.Summary,
		PriorityMessages:   rankedMessages(response.PriorityMessages),
		IntentDistribution: response.IntentDistribution,
		Insights:           response.KeyInsights,
	}, nil
}

// VectorSearch finds the DefaultTopK indexed messages closest to
// query.
func (c *Client) VectorSearch(ctx context.Context, query string) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("analysis: search query is empty")
	}
	var response searchResponse
	if err := c.do(ctx, http.MethodPost, "/vector/search", searchRequest{Query: query, TopK: DefaultTopK}, &response); err != nil {
		return nil, fmt.Errorf("analysis: searching: %w", err)
	}
	hits := make([]SearchHit, len(response.Results))
	for index, result := range response.Results {
		hits[index] = SearchHit{
			Message:        result.message(),
			ConversationID: result.ConversationID,
			Relevance:      result.SimilarityScore,
			Distance:       result.Distance,
		}
	}
	return hits, nil
}

// ParseIntent classifies a single message.
func (c *Client) ParseIntent(ctx context.Context, message string) (*IntentResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrNoMessages
	}
	var result IntentResult
	if err := c.do(ctx, http.MethodPost, "/intent", intentRequest{Message: message}, &result); err != nil {
		return nil, fmt.Errorf("analysis: parsing intent: %w", err)
	}
	return &result, nil
}

// StoreConversation indexes the snapshot's messages for VectorSearch.
func (c *Client) StoreConversation(ctx context.Context, snapshot conversation.Snapshot) (*StoreResult, error) {
	if snapshot.IsEmpty() {
		return nil, ErrNoMessages
	}
	request := storeRequest{
		ConversationID: snapshot.RoomID,
		Messages:       snapshot.Messages,
		Metadata:       map[string]any{"room_name": snapshot.RoomName},
	}
	var result StoreResult
	if err := c.do(ctx, http.MethodPost, "/vector/store", request, &result); err != nil {
		return nil, fmt.Errorf("analysis: indexing %s: %w", snapshot.RoomID, err)
	}
	c.logger.Info("conversation indexed", "room_id", snapshot.RoomID, "messages", result.MessagesStored)
	return &result, nil
}

// Health checks that the service is up and reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	var response healthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &response); err != nil {
		return fmt.Errorf("analysis: health check: %w", err)
	}
	if response.Status != "healthy" {
		return fmt.Errorf("analysis: service reports status %q", response.Status)
	}
	return nil
}
