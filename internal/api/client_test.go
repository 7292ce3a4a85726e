package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/message", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ChatMessageRequest{Message: "hello", SessionID: "sid", Mode: ModeAdmin}, req)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"hi there","session_id":"sid","sql_query":"SELECT 1"}`))
	})

	resp, err := client.SendMessage(context.Background(), "hello", "sid", ModeAdmin)
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Response)
	require.NotNil(t, resp.SQLQuery)
	assert.Equal(t, "SELECT 1", *resp.SQLQuery)
}

func TestSendMessageDefaultsToNormalMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ModeNormal, req.Mode)
		w.Write([]byte(`{"response":"ok","session_id":"sid","sql_query":null}`))
	})

	resp, err := client.SendMessage(context.Background(), "hello", "sid", "")
	require.NoError(t, err)
	assert.Nil(t, resp.SQLQuery)
}

func TestGetHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/chat/history/a b", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"session_id":"a b","messages":[
			{"role":"user","content":"q","sql_query":null},
			{"role":"assistant","content":"a","sql_query":"SELECT 2"}]}`))
	})

	resp, err := client.GetHistory(context.Background(), "a b", 0)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, RoleUser, resp.Messages[0].Role)
	assert.Nil(t, resp.Messages[0].SQLQuery)
	assert.Equal(t, "SELECT 2", *resp.Messages[1].SQLQuery)
}

func TestClearHistory(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/chat/history/sid", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.ClearHistory(context.Background(), "sid"))
	assert.True(t, called)
}

func TestNon2xxCarriesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})

	_, err := client.SendMessage(context.Background(), "hello", "sid", ModeNormal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "failed to send message")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)

	_, err = client.GetHistory(context.Background(), "sid", 10)
	assert.ErrorAs(t, err, &se)
	assert.ErrorAs(t, client.ClearHistory(context.Background(), "sid"), &se)
	_, err = client.GetDashboardStats(context.Background())
	assert.ErrorAs(t, err, &se)
}

func TestEmptyErrorBodyUsesStatusText(t *testing.T) {
	err := (&StatusError{Op: "fetch history", StatusCode: http.StatusBadGateway}).Error()
	assert.Equal(t, "failed to fetch history: Bad Gateway", err)
}

func TestGetDashboardStats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats/dashboard", r.URL.Path)
		w.Write([]byte(`{
			"overview":{"total_users":100,"active_users_7d":14,"active_users_30d":30,
				"total_messages":1000,"messages_7d":70,"messages_30d":300},
			"users":{"premium_count":10,"premium_percentage":10.0,"regular_count":90,
				"by_language":{"ru":60,"en":40}},
			"messages":{"avg_length":42.5,"first_message_date":"2024-01-01T00:00:00Z",
				"last_message_date":"2025-01-01T00:00:00Z","user_to_assistant_ratio":1.02},
			"metadata":{"generated_at":"2025-01-02T03:04:05Z","is_mock":true}}`))
	})

	snap, err := client.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Overview.TotalUsers)
	assert.Equal(t, 40, snap.Users.ByLanguage["en"])
	assert.InDelta(t, 42.5, snap.Messages.AvgLength, 1e-9)
	assert.True(t, snap.Metadata.IsMock)
	assert.Equal(t, 2025, snap.Metadata.GeneratedAt.Year())
}

func TestGetDashboardStatsNaiveTimestamps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"overview":{"total_users":1},
			"users":{"by_language":{}},
			"messages":{"first_message_date":"2025-10-11T12:34:56.123456",
				"last_message_date":"2025-10-12T08:00:00","user_to_assistant_ratio":1},
			"metadata":{"generated_at":"2025-10-12T09:30:00.5","is_mock":false}}`))
	})

	snap, err := client.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 11, 12, 34, 56, 123456000, time.UTC), snap.Messages.FirstMessageDate.Time)
	assert.Equal(t, time.Date(2025, 10, 12, 8, 0, 0, 0, time.UTC), snap.Messages.LastMessageDate.Time)
	assert.Equal(t, 30, snap.Metadata.GeneratedAt.Minute())
}

func TestBaseURLTrimsSlash(t *testing.T) {
	assert.Equal(t, "http://backend:8000", NewClient("http://backend:8000///", time.Second).BaseURL())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).GetHistory(context.Background(), "sid", 1)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestParseChatMode(t *testing.T) {
	m, err := ParseChatMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, m)

	m, err = ParseChatMode("admin")
	require.NoError(t, err)
	assert.Equal(t, ModeAdmin, m)

	_, err = ParseChatMode("root")
	assert.Error(t, err)
}
