package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/session"
)

// Transport is the part of api.Client the transcript needs.
type Transport interface {
	SendMessage(ctx context.Context, message, sessionID string, mode api.ChatMode) (*api.ChatMessageResponse, error)
	GetHistory(ctx context.Context, sessionID string, limit int) (*api.ChatHistoryResponse, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// Execute performs one effect and returns the event that reports its
// outcome, or nil for effects without one.
func Execute(ctx context.Context, t Transport, eff Effect, now func() time.Time) Event {
	switch eff := eff.(type) {
	case LoadHistory:
		resp, err := t.GetHistory(ctx, eff.SessionID, eff.Limit)
		if err != nil {
			return HistoryFailed{SessionID: eff.SessionID, Err: err}
		}
		return HistoryLoaded{SessionID: eff.SessionID, Messages: resp.Messages, At: now()}

	case SendMessage:
		resp, err := t.SendMessage(ctx, eff.Text, eff.SessionID, eff.Mode)
		if err != nil {
			return SendFailed{Turn: eff.Turn, Err: err, At: now()}
		}
		return Replied{Turn: eff.Turn, Response: resp.Response, SQLQuery: resp.SQLQuery, At: now()}

	case ClearHistory:
		if err := t.ClearHistory(ctx, eff.SessionID); err != nil {
			return ClearFailed{SessionID: eff.SessionID, Err: err, At: now()}
		}
		return HistoryCleared{SessionID: eff.SessionID}

	case LogError:
		logger.Error(eff.Msg, "error", eff.Err)
	}
	return nil
}

// Manager drives Reduce for one chat surface. Transitions are serialised;
// effects run on their own goroutines and report back through Dispatch.
// After Close, results of requests still in flight are dropped.
type Manager struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	closed   bool

	transport Transport
	sessions  *session.Store
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	nextSub   int
	listeners map[int]func(State)
}

type ManagerOption func(*Manager)

func WithMode(mode api.ChatMode) ManagerOption {
	return func(m *Manager) { m.state.Mode = mode }
}

func WithHistoryLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.state.HistoryLimit = limit
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(t Transport, sessions *session.Store, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		state:     NewState(api.ModeNormal, api.DefaultHistoryLimit),
		transport: t,
		sessions:  sessions,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open obtains the session identifier and starts loading history. Calling
// it again after the first open does nothing.
func (m *Manager) Open() {
	if m.State().Status != Idle {
		return
	}
	m.Dispatch(Opened{SessionID: m.sessions.GetOrCreateSessionID()})
}

// Send submits text. It reports false when the submit was ignored: blank
// text, no session, or another turn still running.
func (m *Manager) Send(text string) bool {
	before := m.State().Turn
	m.Dispatch(Submitted{Text: text, At: m.now()})
	return m.State().Turn != before
}

// SetMode reports false while a send is in flight.
func (m *Manager) SetMode(mode api.ChatMode) bool {
	if m.State().ModeLocked() {
		return false
	}
	m.Dispatch(ModeToggled{Mode: mode})
	return m.State().Mode == mode
}

func (m *Manager) ClearHistory() bool {
	m.Dispatch(ClearRequested{})
	return m.State().Status == Clearing
}

// ResetSession forgets the stored identifier and continues under a new one.
func (m *Manager) ResetSession() bool {
	st := m.State()
	if st.Status == Sending || st.Status == Clearing {
		return false
	}
	m.sessions.ClearSessionID()
	m.Dispatch(SessionReset{SessionID: m.sessions.GetOrCreateSessionID()})
	return true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Subscribe registers fn to receive every new State. fn runs on the
// dispatching goroutine and must not call back into the Manager.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) Dispatch(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Debug("Dropping event after close", "event", ev)
		return
	}

	prev := m.state
	next, effects := Reduce(prev, ev)
	m.state = next
	changed := next.Status != prev.Status || next.Mode != prev.Mode ||
		next.SessionID != prev.SessionID || next.Turn != prev.Turn ||
		len(next.Messages) != len(prev.Messages)

	var listeners []func(State)
	if changed {
		for _, fn := range m.listeners {
			listeners = append(listeners, fn)
		}
	}
	snapshot := next.Clone()

	// notifyMu is taken before mu is released so subscribers see states in
	// transition order.
	m.notifyMu.Lock()
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
	m.notifyMu.Unlock()

	for _, eff := range effects {
		m.run(eff)
	}
}

func (m *Manager) run(eff Effect) {
	if _, ok := eff.(LogError); ok {
		Execute(m.ctx, m.transport, eff, m.now)
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if ev := Execute(m.ctx, m.transport, eff, m.now); ev != nil {
			m.Dispatch(ev)
		}
	}()
}

// Wait blocks until every effect started so far has reported back.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close detaches the Manager from its surface. In-flight requests are
// cancelled and their results discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.listeners = map[int]func(State){}
	m.mu.Unlock()
	m.cancel()
}
