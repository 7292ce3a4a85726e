package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

type fakeBackend struct {
	mu      sync.Mutex
	snap    *stats.Snapshot
	err     error
	sent    []api.ChatMessageRequest
	limit   int
	cleared []string
}

func (f *fakeBackend) GetDashboardStats(context.Context) (*stats.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeBackend) SendMessage(_ context.Context, message, sessionID string, mode api.ChatMode) (*api.ChatMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, api.ChatMessageRequest{Message: message, SessionID: sessionID, Mode: mode})
	sql := "SELECT 1"
	return &api.ChatMessageResponse{Response: "answer", SessionID: sessionID, SQLQuery: &sql}, nil
}

func (f *fakeBackend) GetHistory(_ context.Context, sessionID string, limit int) (*api.ChatHistoryResponse, error) {
	f.mu.Lock()
	f.limit = limit
	f.mu.Unlock()
	return &api.ChatHistoryResponse{
		SessionID: sessionID,
		Messages:  []api.ChatHistoryMessage{{Role: api.RoleUser, Content: "hi"}},
	}, nil
}

func (f *fakeBackend) ClearHistory(_ context.Context, sessionID string) error {
	f.mu.Lock()
	f.cleared = append(f.cleared, sessionID)
	f.mu.Unlock()
	return f.err
}

func (f *fakeBackend) seen() ([]api.ChatMessageRequest, int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ChatMessageRequest(nil), f.sent...), f.limit, append([]string(nil), f.cleared...)
}

func snapshot() *stats.Snapshot {
	return &stats.Snapshot{
		Overview: stats.OverviewStats{TotalUsers: 12500, ActiveUsers7d: 300, ActiveUsers30d: 1000,
			TotalMessages: 98000, Messages7d: 900, Messages30d: 4000},
		Users: stats.UserStats{PremiumCount: 2500, PremiumPercentage: 20, RegularCount: 10000,
			ByLanguage: map[string]int{"ru": 9000, "en": 3500}},
		Messages: stats.MessageStats{AvgLength: 58, UserToAssistantRatio: 1.23},
		Metadata: stats.MetadataStats{GeneratedAt: stats.Timestamp{Time: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}},
	}
}

func newTestServer(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()
	srv := NewServer(service.NewDashboardService(b, time.Minute), report.NewGenerator(""), b, b)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestDashboardPage(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snap: snapshot()})

	resp, body := get(t, ts.URL+"/?period=7d")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := string(body)
	assert.Contains(t, page, "12,500")
	assert.Contains(t, page, "Русский")
	assert.Contains(t, page, "/charts/activity.png?period=7d")
	assert.Contains(t, page, `href="/?period=7d" class="active"`)
}

func TestDashboardBadPeriod(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snap: snapshot()})
	resp, _ := get(t, ts.URL+"/?period=1y")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBackendErrors(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{err: &api.StatusError{Op: "get dashboard stats", StatusCode: http.StatusServiceUnavailable}})
	resp, _ := get(t, ts.URL+"/api/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ts = newTestServer(t, &fakeBackend{err: errors.New("connection refused")})
	resp, _ = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAPIStatsAndDashboard(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snap: snapshot()})

	resp, body := get(t, ts.URL+"/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 12500, snap.Overview.TotalUsers)

	resp, body = get(t, ts.URL+"/api/dashboard?period=90d")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var d service.Dashboard
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, stats.Period90d, d.Period)
	assert.Len(t, d.Activity, 90)
	assert.Len(t, d.Cards, 4)
}

func TestCharts(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snap: snapshot()})

	for _, path := range []string{"/charts/activity.png?period=30d", "/charts/languages.png", "/charts/premium.png"} {
		resp, body := get(t, ts.URL+path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")), path)
	}

	resp, _ := get(t, ts.URL+"/charts/radar.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChartWithoutData(t *testing.T) {
	snap := snapshot()
	snap.Users.ByLanguage = nil
	ts := newTestServer(t, &fakeBackend{snap: snap})

	resp, _ := get(t, ts.URL+"/charts/languages.png")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReport(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snap: snapshot()})

	resp, body := get(t, ts.URL+"/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestChatProxy(t *testing.T) {
	b := &fakeBackend{snap: snapshot()}
	ts := newTestServer(t, b)

	resp, err := http.Post(ts.URL+"/api/chat/message", "application/json",
		strings.NewReader(`{"message":"how many users?","session_id":"s-1","mode":"admin"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ChatMessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "answer", out.Response)
	sent, _, _ := b.seen()
	require.Len(t, sent, 1)
	assert.Equal(t, api.ModeAdmin, sent[0].Mode)

	resp2, body := get(t, ts.URL+"/api/chat/history/s-1?limit=5")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	_, limit, _ := b.seen()
	assert.Equal(t, 5, limit)
	assert.Contains(t, string(body), `"session_id":"s-1"`)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/chat/history/s-1", nil)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp3.StatusCode)
	_, _, cleared := b.seen()
	assert.Equal(t, []string{"s-1"}, cleared)
}

func TestChatProxyValidation(t *testing.T) {
	b := &fakeBackend{snap: snapshot()}
	ts := newTestServer(t, b)

	for _, body := range []string{
		`not json`,
		`{"message":"","session_id":"s-1"}`,
		`{"message":"hi","session_id":"s-1","mode":"root"}`,
	} {
		resp, err := http.Post(ts.URL+"/api/chat/message", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	sent, _, _ := b.seen()
	assert.Empty(t, sent)

	resp, _ := get(t, ts.URL+"/api/chat/history/s-1?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{})
	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
