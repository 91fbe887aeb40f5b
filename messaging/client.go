// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

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

	"github.com/bureau-foundation/dailyfix/lib/clock"
	"github.com/bureau-foundation/dailyfix/lib/netutil"
	"github.com/bureau-foundation/dailyfix/lib/ref"
	"github.com/bureau-foundation/dailyfix/lib/secret"
	"github.com/bureau-foundation/dailyfix/lib/version"
)

const clientPrefix = "/_matrix/client/r0"

// ClientConfig configures a Client.
type ClientConfig struct {
	// HomeserverURL is the homeserver base URL, e.g. "http://localhost:8008".
	HomeserverURL string

	// HTTPClient carries every request. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock stamps transaction ids. Nil means the wall clock.
	Clock clock.Clock
}

// Client is an unauthenticated Matrix client shared by the sessions
// derived from it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock
}

// NewClient validates the configuration and returns a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must be http or https", config.HomeserverURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	// Request URLs are built by concatenation so that escaped path
	// segments (room ids contain '!' and ':') are sent exactly as
	// escaped.
	return &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		clock:      clk,
	}, nil
}

// HomeserverURL returns the base URL without a trailing slash.
func (c *Client) HomeserverURL() string { return c.baseURL }

// ServerVersions calls the unauthenticated /versions endpoint. It is
// the cheapest reachability probe a homeserver offers.
func (c *Client) ServerVersions(ctx context.Context) (*ServerVersionsResponse, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/_matrix/client/versions", "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: server versions: %w", err)
	}

	var response ServerVersionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: parsing versions response: %w", err)
	}
	return &response, nil
}

// Login performs password login and returns an authenticated session.
// The password buffer is read but not closed. The caller must Close
// the returned session.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*DirectSession, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == nil || password.Closed() {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	request := LoginRequest{
		Type:                     "m.login.password",
		User:                     username,
		Password:                 password.String(),
		InitialDeviceDisplayName: version.UserAgent(),
	}
	body, err := c.doRequest(ctx, http.MethodPost, clientPrefix+"/login", "", request, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: login: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: parsing login response: %w", err)
	}
	if response.AccessToken == "" || response.UserID.IsZero() {
		return nil, fmt.Errorf("messaging: login response missing access_token or user_id")
	}

	c.logger.Info("logged in to homeserver",
		"user_id", response.UserID,
		"device_id", response.DeviceID,
	)
	return c.SessionFromToken(response.UserID, response.AccessToken)
}

// SessionFromToken wraps a stored access token in a session without
// contacting the homeserver. Use WhoAmI to check that the token is
// still valid. The caller must Close the returned session.
func (c *Client) SessionFromToken(userID ref.UserID, accessToken string) (*DirectSession, error) {
	if userID.IsZero() {
		return nil, &AuthError{Op: "restore session", Reason: "no user id"}
	}
	if accessToken == "" {
		return nil, &AuthError{Op: "restore session", Reason: "no access token"}
	}
	token, err := secret.NewFromString(accessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{client: c, accessToken: token, userID: userID}, nil
}

// doRequest sends one request and returns the 2xx response body.
// token is empty for unauthenticated endpoints. A non-2xx response
// becomes *ProtocolError; a failure before any response becomes
// *netutil.TransportError.
func (c *Client) doRequest(ctx context.Context, method, path, token string, requestBody any, query url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("User-Agent", version.UserAgent())
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &netutil.TransportError{Endpoint: path, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &netutil.TransportError{Endpoint: path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	protocolErr := &ProtocolError{}
	if json.Unmarshal(responseBody, protocolErr) != nil || (protocolErr.Code == "" && protocolErr.Message == "") {
		protocolErr = &ProtocolError{Message: strings.TrimSpace(string(responseBody))}
	}
	protocolErr.Endpoint = path
	protocolErr.StatusCode = response.StatusCode

	c.logger.Debug("homeserver request failed",
		"method", method,
		"endpoint", path,
		"status", response.StatusCode,
		"errcode", protocolErr.Code,
	)
	return nil, protocolErr
}
