// Package api talks to the analytics backend: dashboard stats and the chat
// endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

const DefaultHistoryLimit = 50

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 4 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL is the resolved backend address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is a non-2xx answer. Body holds the server's error text.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	detail := e.Body
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("failed to %s: %s", e.Op, detail)
}

func (c *Client) SendMessage(ctx context.Context, message, sessionID string, mode ChatMode) (*ChatMessageResponse, error) {
	if mode == "" {
		mode = ModeNormal
	}
	body, err := json.Marshal(ChatMessageRequest{Message: message, SessionID: sessionID, Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	var resp ChatMessageResponse
	if err := c.do(ctx, "send message", http.MethodPost, "/api/chat/message", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetHistory fetches up to limit messages; limit <= 0 means DefaultHistoryLimit.
func (c *Client) GetHistory(ctx context.Context, sessionID string, limit int) (*ChatHistoryResponse, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	path := "/api/chat/history/" + url.PathEscape(sessionID) + "?limit=" + strconv.Itoa(limit)

	var resp ChatHistoryResponse
	if err := c.do(ctx, "fetch history", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	path := "/api/chat/history/" + url.PathEscape(sessionID)
	return c.do(ctx, "clear history", http.MethodDelete, path, nil, nil)
}

func (c *Client) GetDashboardStats(ctx context.Context) (*stats.Snapshot, error) {
	var snap stats.Snapshot
	if err := c.do(ctx, "fetch dashboard stats", http.MethodGet, "/api/stats/dashboard", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Backend request failed", "op", op, "url", req.URL.String(), "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	logger.Debug("Backend responded", "op", op, "status", resp.StatusCode, "took", time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to %s: decode response: %w", op, err)
	}
	return nil
}
