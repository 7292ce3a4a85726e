package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

const (
	headerHeight = 2
	footerHeight = 3
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	normalBadge    = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#3C3C3C")).Foreground(lipgloss.Color("#FAFAFA"))
	adminBadge     = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#ED7D31")).Foreground(lipgloss.Color("#1A1A1A"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5A9BD5"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43BF6D"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	sqlStyle       = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#ED7D31")).
			Padding(0, 1)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

func (m Model) View() string {
	if !m.ready {
		return "Загрузка…"
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	badge := normalBadge.Render("обычный")
	if m.state.Mode == api.ModeAdmin {
		badge = adminBadge.Render("админ · SQL")
	}
	sid := m.state.SessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	if sid == "" {
		sid = "нет сессии"
	}
	return fmt.Sprintf("%s %s %s", titleStyle.Render("AI-ассистент"), badge, dimStyle.Render(sid))
}

func (m Model) footer() string {
	line := m.statusLine()
	if m.resetting {
		line = m.spinner.View() + " новая сессия…"
	}
	help := "enter отправить · ctrl+t режим · ctrl+l очистить · ctrl+n новая сессия · esc выход"
	if m.state.ModeLocked() {
		help = "enter отправить · ctrl+t недоступно · esc выход"
	}
	return line + "\n" + dimStyle.Render(help)
}

func (m Model) statusLine() string {
	var line string
	switch m.state.Status {
	case transcript.Idle, transcript.LoadingHistory:
		line = m.spinner.View() + " загрузка истории…"
	case transcript.Sending:
		line = m.spinner.View() + " ассистент думает…"
	case transcript.Clearing:
		line = m.spinner.View() + " очистка истории…"
	default:
		if m.state.SessionID == "" {
			line = errorStyle.Render("хранилище сессий недоступно, отправка отключена")
		} else {
			line = m.input.View()
		}
	}
	return line
}

func renderTranscript(s transcript.State, width int) string {
	if len(s.Messages) == 0 {
		return dimStyle.Render("Начните диалог: задайте вопрос о статистике.")
	}

	wrap := lipgloss.NewStyle()
	if width > 4 {
		wrap = wrap.Width(width - 2)
	}

	var b strings.Builder
	for i, msg := range s.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case msg.Role == api.RoleUser:
			b.WriteString(userStyle.Render("Вы") + "\n")
			b.WriteString(wrap.Render(msg.Content))
		case strings.HasPrefix(msg.Content, transcript.ErrorPrefix):
			b.WriteString(errorStyle.Render(msg.Content))
		default:
			b.WriteString(assistantStyle.Render("Ассистент") + "\n")
			b.WriteString(wrap.Render(msg.Content))
			if msg.SQLQuery != "" {
				b.WriteString("\n" + sqlStyle.Render(msg.SQLQuery))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
