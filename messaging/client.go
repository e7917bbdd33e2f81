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

	"github.com/bureau-foundation/chatsync/lib/netutil"
	"github.com/bureau-foundation/chatsync/lib/secret"
)

// DefaultPageSize is the history page size when ClientConfig leaves it
// unset.
const DefaultPageSize = 50

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// URL is the base URL of the chat API (e.g., "https://chat.example").
	URL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Token authenticates every request. The Client does not close it.
	Token *secret.Token
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// PageSize is the number of messages requested per history page.
	PageSize int
}

// Client is an authenticated chat API client. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      *secret.Token
	logger     *slog.Logger
	pageSize   int
}

// NewClient creates a client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("messaging: URL is required")
	}
	// Request URLs are built by concatenation; parsing here only
	// rejects malformed input early.
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid URL %q: %w", config.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: URL %q must be http or https", config.URL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Client{
		baseURL:    strings.TrimRight(config.URL, "/"),
		httpClient: httpClient,
		token:      config.Token,
		logger:     logger,
		pageSize:   pageSize,
	}, nil
}

// CloseIdleConnections drops pooled connections, for use after a
// network change.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// doJSON performs a request and decodes a 2xx JSON response into
// response (which may be nil). Non-2xx responses become *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, requestBody, response any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("messaging: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("messaging: failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		request.Header.Set("Authorization", "Bearer "+c.token.Reveal())
	}

	httpResponse, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("messaging: request to %s %s failed: %w", method, path, err)
	}
	defer httpResponse.Body.Close()

	body, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("messaging: failed to read response body: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		var apiErr APIError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr != nil || apiErr.Code == "" {
			return fmt.Errorf("messaging: unexpected %d response from %s %s: %s",
				httpResponse.StatusCode, method, path, string(body))
		}
		apiErr.StatusCode = httpResponse.StatusCode
		return &apiErr
	}

	if response == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("messaging: failed to parse %s %s response: %w", method, path, err)
	}
	return nil
}
