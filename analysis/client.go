// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/dailyfix/lib/clock"
	"github.com/bureau-foundation/dailyfix/lib/netutil"
	"github.com/bureau-foundation/dailyfix/lib/version"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the service root, e.g. "http://localhost:8000".
	BaseURL string

	// HTTPClient carries every request. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock times requests for logging. Nil means the wall clock.
	Clock clock.Clock
}

// Client talks to the analysis service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock
}

// NewClient validates the configuration and returns a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("analysis: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("analysis: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("analysis: BaseURL %q must be http or https", config.BaseURL)
	}

	client := &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: config.HTTPClient,
		logger:     config.Logger,
		clock:      config.Clock,
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	if client.clock == nil {
		client.clock = clock.Real()
	}
	return client, nil
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends one request and decodes a 2xx JSON response into result
// (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, requestBody, result any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", path, err)
	}
	requestID := uuid.NewString()
	request.Header.Set(RequestIDHeader, requestID)
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	start := c.clock.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Debug("analysis request failed",
			"endpoint", path,
			"request_id", requestID,
			"error", err,
		)
		return &netutil.TransportError{Endpoint: path, Err: err}
	}
	defer response.Body.Close()

	c.logger.Debug("analysis request",
		"endpoint", path,
		"status", response.StatusCode,
		"request_id", requestID,
		"duration", c.clock.Now().Sub(start),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &AnalysisError{
			Endpoint:   path,
			StatusCode: response.StatusCode,
			Detail:     errorDetail(netutil.ErrorBody(response.Body)),
		}
	}
	if result == nil {
		return nil
	}
	if err := netutil.DecodeResponse(response.Body, result); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
