package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/session"
)

type sendResult struct {
	resp *api.ChatMessageResponse
	err  error
}

// fakeTransport answers from canned values. When gate is set, SendMessage
// blocks until a result is pushed into it.
type fakeTransport struct {
	mu      sync.Mutex
	history []api.ChatHistoryMessage
	histErr error
	reply   sendResult
	gate    chan sendResult
	clrErr  error

	sent     []string
	modes    []api.ChatMode
	limits   []int
	cleared  []string
	sessions []string
}

func (f *fakeTransport) SendMessage(ctx context.Context, message, sessionID string, mode api.ChatMode) (*api.ChatMessageResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, message)
	f.modes = append(f.modes, mode)
	f.sessions = append(f.sessions, sessionID)
	gate, reply := f.gate, f.reply
	f.mu.Unlock()

	if gate != nil {
		r := <-gate
		return r.resp, r.err
	}
	return reply.resp, reply.err
}

func (f *fakeTransport) GetHistory(ctx context.Context, sessionID string, limit int) (*api.ChatHistoryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	if f.histErr != nil {
		return nil, f.histErr
	}
	return &api.ChatHistoryResponse{Messages: f.history}, nil
}

func (f *fakeTransport) ClearHistory(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	return f.clrErr
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func newTestManager(t *testing.T, ft *fakeTransport, opts ...ManagerOption) (*Manager, *session.Store) {
	t.Helper()
	ids := []string{"s-1", "s-2", "s-3"}
	var n int
	store := session.NewStore(session.NewMemoryStorage(), session.WithGenerator(func() string {
		id := ids[n%len(ids)]
		n++
		return id
	}))
	m := NewManager(ft, store, append([]ManagerOption{WithClock(fixedClock())}, opts...)...)
	t.Cleanup(m.Close)
	return m, store
}

func TestManagerFreshSessionWithFailingHistory(t *testing.T) {
	ft := &fakeTransport{histErr: errors.New("connection refused")}
	m, store := newTestManager(t, ft)

	m.Open()
	m.Wait()

	st := m.State()
	assert.Equal(t, Ready, st.Status)
	assert.Empty(t, st.Messages)
	assert.Equal(t, "s-1", st.SessionID)
	assert.True(t, st.InputEnabled())

	id, ok := store.GetSessionID()
	require.True(t, ok)
	assert.Equal(t, "s-1", id)
}

func TestManagerRoundTrip(t *testing.T) {
	ft := &fakeTransport{reply: sendResult{resp: &api.ChatMessageResponse{Response: "hi there", SessionID: "s-1"}}}
	m, _ := newTestManager(t, ft)

	m.Open()
	m.Wait()
	require.True(t, m.Send("hello"))
	m.Wait()

	st := m.State()
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "hello", st.Messages[0].Content)
	assert.Equal(t, api.RoleUser, st.Messages[0].Role)
	assert.Equal(t, "hi there", st.Messages[1].Content)
	assert.Equal(t, api.RoleAssistant, st.Messages[1].Role)
	assert.Empty(t, st.Messages[1].SQLQuery)
	assert.Equal(t, []string{"s-1"}, ft.sessions)
	assert.Equal(t, []api.ChatMode{api.ModeNormal}, ft.modes)
}

func TestManagerHistoryLimit(t *testing.T) {
	ft := &fakeTransport{}
	m, _ := newTestManager(t, ft, WithHistoryLimit(10))
	m.Open()
	m.Wait()
	assert.Equal(t, []int{10}, ft.limits)
}

func TestManagerSendFailure(t *testing.T) {
	ft := &fakeTransport{reply: sendResult{err: errors.New("failed to send message: boom")}}
	m, _ := newTestManager(t, ft, WithMode(api.ModeAdmin))

	m.Open()
	m.Wait()
	m.Send("hello")
	m.Wait()

	st := m.State()
	require.Len(t, st.Messages, 2)
	assert.Contains(t, st.Messages[1].Content, "boom")
	assert.Equal(t, api.ModeAdmin, st.Mode)
	assert.Equal(t, "s-1", st.SessionID)
	assert.Equal(t, Ready, st.Status)
}

func TestManagerModeLockedWhileSending(t *testing.T) {
	gate := make(chan sendResult)
	ft := &fakeTransport{gate: gate}
	m, _ := newTestManager(t, ft)

	m.Open()
	m.Wait()
	require.True(t, m.Send("q"))

	assert.False(t, m.SetMode(api.ModeAdmin))
	assert.False(t, m.Send("second"))
	assert.Equal(t, api.ModeNormal, m.State().Mode)

	gate <- sendResult{resp: &api.ChatMessageResponse{Response: "a"}}
	m.Wait()

	assert.True(t, m.SetMode(api.ModeAdmin))
	assert.Equal(t, []string{"q"}, ft.sent)
}

func TestManagerCloseDropsLateResult(t *testing.T) {
	gate := make(chan sendResult)
	ft := &fakeTransport{gate: gate}
	m, _ := newTestManager(t, ft)

	m.Open()
	m.Wait()

	var calls int
	var mu sync.Mutex
	m.Subscribe(func(State) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.True(t, m.Send("q"))
	m.Close()
	gate <- sendResult{resp: &api.ChatMessageResponse{Response: "late"}}
	m.Wait()

	assert.Len(t, m.State().Messages, 1)
	mu.Lock()
	assert.Equal(t, 1, calls, "only the submit was observed")
	mu.Unlock()
}

func TestManagerSubscribeOrder(t *testing.T) {
	ft := &fakeTransport{reply: sendResult{resp: &api.ChatMessageResponse{Response: "a"}}}
	m, _ := newTestManager(t, ft)

	var mu sync.Mutex
	var seen []Status
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	m.Open()
	m.Wait()
	m.Send("q")
	m.Wait()
	unsubscribe()
	m.Send("r")
	m.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{LoadingHistory, Ready, Sending, Ready}, seen)
}

func TestManagerClearHistory(t *testing.T) {
	ft := &fakeTransport{
		history: []api.ChatHistoryMessage{{Role: api.RoleUser, Content: "old"}},
	}
	m, _ := newTestManager(t, ft)

	m.Open()
	m.Wait()
	require.Len(t, m.State().Messages, 1)

	require.True(t, m.ClearHistory())
	m.Wait()

	assert.Empty(t, m.State().Messages)
	assert.Equal(t, []string{"s-1"}, ft.cleared)
}

func TestManagerResetSession(t *testing.T) {
	ft := &fakeTransport{}
	m, store := newTestManager(t, ft)

	m.Open()
	m.Wait()
	require.True(t, m.ResetSession())
	m.Wait()

	st := m.State()
	assert.Equal(t, "s-2", st.SessionID)
	assert.Equal(t, Ready, st.Status)
	id, _ := store.GetSessionID()
	assert.Equal(t, "s-2", id)
}

func TestManagerWithoutStorage(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, session.NewStore(nil))
	defer m.Close()

	m.Open()
	m.Wait()

	st := m.State()
	assert.Equal(t, Ready, st.Status)
	assert.False(t, st.InputEnabled())
	assert.False(t, m.Send("hello"))
	assert.Empty(t, ft.limits)
}
