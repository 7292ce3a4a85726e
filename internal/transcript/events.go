package transcript

import (
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/api"
)

type Event interface{ event() }

// Opened is the first open of the surface. An empty SessionID means no
// persistence medium was available.
type Opened struct{ SessionID string }

type HistoryLoaded struct {
	SessionID string
	Messages  []api.ChatHistoryMessage
	At        time.Time
}

type HistoryFailed struct {
	SessionID string
	Err       error
}

type Submitted struct {
	Text string
	At   time.Time
}

type Replied struct {
	Turn     int
	Response string
	SQLQuery *string
	At       time.Time
}

type SendFailed struct {
	Turn int
	Err  error
	At   time.Time
}

type ModeToggled struct{ Mode api.ChatMode }

type ClearRequested struct{}

type HistoryCleared struct{ SessionID string }

type ClearFailed struct {
	SessionID string
	Err       error
	At        time.Time
}

// SessionReset switches to a new identifier after the old one was dropped.
type SessionReset struct{ SessionID string }

func (Opened) event()         {}
func (HistoryLoaded) event()  {}
func (HistoryFailed) event()  {}
func (Submitted) event()      {}
func (Replied) event()        {}
func (SendFailed) event()     {}
func (ModeToggled) event()    {}
func (ClearRequested) event() {}
func (HistoryCleared) event() {}
func (ClearFailed) event()    {}
func (SessionReset) event()   {}

type Effect interface{ effect() }

type LoadHistory struct {
	SessionID string
	Limit     int
}

type SendMessage struct {
	SessionID string
	Text      string
	Mode      api.ChatMode
	Turn      int
}

type ClearHistory struct{ SessionID string }

// LogError reports a failure that is not shown in the transcript.
type LogError struct {
	Msg string
	Err error
}

func (LoadHistory) effect()  {}
func (SendMessage) effect()  {}
func (ClearHistory) effect() {}
func (LogError) effect()     {}
