// Package tui is the terminal chat widget. It feeds transcript.Reduce from
// the bubbletea update loop and runs effects as tea.Cmds.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/session"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

// eventMsg carries a transcript event into Update.
type eventMsg struct{ ev transcript.Event }

type Model struct {
	ctx       context.Context
	transport transcript.Transport
	sessions  *session.Store
	now       func() time.Time

	state transcript.State

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int

	// resetting is set from ctrl+n until SessionReset comes back. The stored
	// id is already replaced by then, so nothing may be sent meanwhile.
	resetting bool
}

func New(ctx context.Context, t transcript.Transport, sessions *session.Store, mode api.ChatMode, historyLimit int) Model {
	in := textinput.New()
	in.Placeholder = "Спросите что-нибудь о пользователях бота…"
	in.CharLimit = 2000
	in.Prompt = "› "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:       ctx,
		transport: t,
		sessions:  sessions,
		now:       time.Now,
		state:     transcript.NewState(mode, historyLimit),
		input:     in,
		spinner:   sp,
	}
}

// State exposes the transcript, e.g. for printing it after the program ends.
func (m Model) State() transcript.State { return m.state }

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.open())
}

// open reads the session id off the update loop since the store may hit disk.
func (m Model) open() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		return eventMsg{transcript.Opened{SessionID: sessions.GetOrCreateSessionID()}}
	}
}

func (m Model) resetSession() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		sessions.ClearSessionID()
		return eventMsg{transcript.SessionReset{SessionID: sessions.GetOrCreateSessionID()}}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.resetting {
				return m, nil
			}
			before := m.state.Turn
			cmd := m.dispatch(transcript.Submitted{Text: m.input.Value(), At: m.now()})
			if m.state.Turn != before {
				m.input.Reset()
			}
			return m, cmd
		case "ctrl+t":
			if m.resetting {
				return m, nil
			}
			next := api.ModeAdmin
			if m.state.Mode == api.ModeAdmin {
				next = api.ModeNormal
			}
			return m, m.dispatch(transcript.ModeToggled{Mode: next})
		case "ctrl+l":
			if m.resetting {
				return m, nil
			}
			return m, m.dispatch(transcript.ClearRequested{})
		case "ctrl+n":
			if m.state.Status != transcript.Ready || m.resetting {
				return m, nil
			}
			m.resetting = true
			return m, m.resetSession()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case eventMsg:
		if _, ok := msg.ev.(transcript.SessionReset); ok {
			m.resetting = false
		}
		return m, m.dispatch(msg.ev)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		h := msg.Height - headerHeight - footerHeight
		if h < 3 {
			h = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state.InputEnabled() && !m.resetting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// dispatch applies ev and turns the resulting effects into commands.
func (m *Model) dispatch(ev transcript.Event) tea.Cmd {
	next, effects := transcript.Reduce(m.state, ev)
	m.state = next

	var cmds []tea.Cmd
	for _, eff := range effects {
		if _, ok := eff.(transcript.LogError); ok {
			transcript.Execute(m.ctx, m.transport, eff, m.now)
			continue
		}
		cmds = append(cmds, m.execute(eff))
	}
	m.refresh()
	return tea.Batch(cmds...)
}

func (m Model) execute(eff transcript.Effect) tea.Cmd {
	ctx, t, now := m.ctx, m.transport, m.now
	return func() tea.Msg {
		ev := transcript.Execute(ctx, t, eff, now)
		if ev == nil {
			return nil
		}
		return eventMsg{ev}
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.state, m.width))
	m.viewport.GotoBottom()
}
