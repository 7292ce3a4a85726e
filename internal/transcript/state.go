// Package transcript owns a chat surface's message log.
//
// The core is Reduce, a pure transition function from (State, Event) to
// (State, []Effect). Effects are outbound calls to the chat backend; their
// results come back as Events. Manager runs that loop on goroutines for
// surfaces that are not already event driven; the terminal widget feeds
// Reduce from its own update loop instead.
package transcript

import (
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/api"
)

type Status int

const (
	Idle Status = iota
	LoadingHistory
	Ready
	Sending
	Clearing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingHistory:
		return "loadingHistory"
	case Ready:
		return "ready"
	case Sending:
		return "sending"
	case Clearing:
		return "clearing"
	default:
		return "unknown"
	}
}

type Message struct {
	ID        string
	Role      api.Role
	Content   string
	Timestamp time.Time
	// SQLQuery is set only for admin-mode answers that carried a query.
	SQLQuery string
}

type State struct {
	Status    Status
	SessionID string
	Mode      api.ChatMode
	Messages  []Message
	// Turn numbers submits so a late reply cannot land on a newer turn.
	Turn         int
	HistoryLimit int
}

func NewState(mode api.ChatMode, historyLimit int) State {
	if mode == "" {
		mode = api.ModeNormal
	}
	if historyLimit <= 0 {
		historyLimit = api.DefaultHistoryLimit
	}
	return State{Status: Idle, Mode: mode, HistoryLimit: historyLimit}
}

// InputEnabled reports whether the surface should accept a new message.
func (s State) InputEnabled() bool {
	return s.Status == Ready && s.SessionID != ""
}

// ModeLocked is true while a send is in flight.
func (s State) ModeLocked() bool {
	return s.Status == Sending
}

// Clone returns a State that shares nothing mutable with s.
func (s State) Clone() State {
	c := s
	c.Messages = append([]Message(nil), s.Messages...)
	return c
}
