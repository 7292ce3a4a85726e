package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/api"
)

// ErrorPrefix starts the inline notice shown when a turn fails.
const ErrorPrefix = "Ошибка: "

// Reduce applies ev to s. It never mutates s; events that do not fit the
// current status are ignored and return s unchanged with no effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Opened:
		if s.Status != Idle {
			return s, nil
		}
		s.SessionID = ev.SessionID
		if ev.SessionID == "" {
			s.Status = Ready
			return s, nil
		}
		s.Status = LoadingHistory
		return s, []Effect{LoadHistory{SessionID: ev.SessionID, Limit: s.HistoryLimit}}

	case SessionReset:
		if s.Status == Sending || s.Status == Clearing {
			return s, nil
		}
		s.SessionID = ev.SessionID
		s.Messages = nil
		if ev.SessionID == "" {
			s.Status = Ready
			return s, nil
		}
		s.Status = LoadingHistory
		return s, []Effect{LoadHistory{SessionID: ev.SessionID, Limit: s.HistoryLimit}}

	case HistoryLoaded:
		if s.Status != LoadingHistory || ev.SessionID != s.SessionID {
			return s, nil
		}
		s.Messages = historyMessages(ev.SessionID, ev.Messages, ev.At)
		s.Status = Ready
		return s, nil

	case HistoryFailed:
		if s.Status != LoadingHistory || ev.SessionID != s.SessionID {
			return s, nil
		}
		s.Status = Ready
		return s, []Effect{LogError{Msg: "Failed to load history", Err: ev.Err}}

	case Submitted:
		text := ev.Text
		if strings.TrimSpace(text) == "" || !s.InputEnabled() {
			return s, nil
		}
		s.Turn++
		s.Messages = appendMessage(s.Messages, Message{
			ID:        fmt.Sprintf("%s-%d-user", s.SessionID, ev.At.UnixNano()),
			Role:      api.RoleUser,
			Content:   text,
			Timestamp: ev.At,
		})
		s.Status = Sending
		return s, []Effect{SendMessage{SessionID: s.SessionID, Text: text, Mode: s.Mode, Turn: s.Turn}}

	case Replied:
		if s.Status != Sending || ev.Turn != s.Turn {
			return s, nil
		}
		msg := Message{
			ID:        fmt.Sprintf("%s-%d-assistant", s.SessionID, ev.At.UnixNano()),
			Role:      api.RoleAssistant,
			Content:   ev.Response,
			Timestamp: ev.At,
		}
		if ev.SQLQuery != nil {
			msg.SQLQuery = *ev.SQLQuery
		}
		s.Messages = appendMessage(s.Messages, msg)
		s.Status = Ready
		return s, nil

	case SendFailed:
		if s.Status != Sending || ev.Turn != s.Turn {
			return s, nil
		}
		s.Messages = appendMessage(s.Messages, errorMessage(s.SessionID, ev.Err, ev.At))
		s.Status = Ready
		return s, []Effect{LogError{Msg: "Failed to send message", Err: ev.Err}}

	case ModeToggled:
		if s.ModeLocked() || (ev.Mode != api.ModeNormal && ev.Mode != api.ModeAdmin) {
			return s, nil
		}
		s.Mode = ev.Mode
		return s, nil

	case ClearRequested:
		if !s.InputEnabled() {
			return s, nil
		}
		s.Status = Clearing
		return s, []Effect{ClearHistory{SessionID: s.SessionID}}

	case HistoryCleared:
		if s.Status != Clearing || ev.SessionID != s.SessionID {
			return s, nil
		}
		s.Messages = nil
		s.Status = Ready
		return s, nil

	case ClearFailed:
		if s.Status != Clearing || ev.SessionID != s.SessionID {
			return s, nil
		}
		s.Messages = appendMessage(s.Messages, errorMessage(s.SessionID, ev.Err, ev.At))
		s.Status = Ready
		return s, []Effect{LogError{Msg: "Failed to clear history", Err: ev.Err}}
	}
	return s, nil
}

func historyMessages(sessionID string, history []api.ChatHistoryMessage, at time.Time) []Message {
	msgs := make([]Message, 0, len(history))
	for idx, h := range history {
		m := Message{
			ID:        fmt.Sprintf("%s-%d", sessionID, idx),
			Role:      h.Role,
			Content:   h.Content,
			Timestamp: at,
		}
		if h.SQLQuery != nil {
			m.SQLQuery = *h.SQLQuery
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func errorMessage(sessionID string, err error, at time.Time) Message {
	detail := "не удалось отправить сообщение"
	if err != nil {
		detail = err.Error()
	}
	return Message{
		ID:        fmt.Sprintf("%s-%d-error", sessionID, at.UnixNano()),
		Role:      api.RoleAssistant,
		Content:   ErrorPrefix + detail,
		Timestamp: at,
	}
}

// appendMessage copies so the previous State's slice is never written to.
func appendMessage(msgs []Message, m Message) []Message {
	out := make([]Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}
