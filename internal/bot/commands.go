package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

const welcomeMsg = `👋 <b>Привет! Я помощник администратора.</b>

📊 <i>Что я умею:</i>
• /stats — сводка по пользователям и сообщениям
• /chart [7d|30d|90d] — графики активности
• /report — PDF-отчёт
• /mode — режим ответа (обычный или SQL)
• /history — последние сообщения диалога
• /clear — очистить историю
• /newsession — начать новую сессию

Просто напишите вопрос, и я передам его аналитику.`

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	username := ""
	if m.From != nil {
		username = m.From.UserName
	}
	logger.LogCommand(username, m.Text)

	if !b.allowed(chatID) {
		logger.Warn("Rejected chat", "chat_id", chatID, "user", username)
		b.sendText(chatID, "⛔ Доступ запрещён")
		return
	}

	if !m.IsCommand() {
		b.handleChatText(chatID, m.Text)
		return
	}

	switch m.Command() {
	case "start":
		cs := b.chat(chatID)
		b.sendText(chatID, welcomeMsg)
		b.sendModeMenu(chatID, cs.manager.State().Mode)
	case "stats":
		b.handleStats(ctx, chatID)
	case "chart":
		b.handleChart(ctx, chatID, m.CommandArguments())
	case "report":
		b.handleReport(ctx, chatID)
	case "mode":
		b.sendModeMenu(chatID, b.chat(chatID).manager.State().Mode)
	case "history":
		b.handleHistory(chatID)
	case "clear":
		if !b.chat(chatID).manager.ClearHistory() {
			b.sendText(chatID, "⏳ Дождитесь ответа на предыдущий вопрос")
		}
	case "newsession":
		if !b.chat(chatID).manager.ResetSession() {
			b.sendText(chatID, "⏳ Дождитесь ответа на предыдущий вопрос")
		}
	default:
		b.sendText(chatID, "🤔 Неизвестная команда. Список команд: /start")
	}
}

func (b *Bot) handleChatText(chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	cs := b.chat(chatID)

	if cs.manager.State().Status == transcript.LoadingHistory {
		cs.manager.Wait()
	}
	st := cs.manager.State()
	if st.SessionID == "" {
		b.sendText(chatID, "⚠️ Хранилище сессий недоступно, чат отключён")
		return
	}
	if !st.InputEnabled() {
		b.sendText(chatID, "⏳ Дождитесь ответа на предыдущий вопрос")
		return
	}
	if !cs.limiter.Allow() {
		b.sendText(chatID, "🐢 Слишком много сообщений, попробуйте через пару секунд")
		return
	}

	if cs.manager.Send(text) {
		if _, err := b.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			logger.Debug("Typing action failed", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	if b.deps.Dashboard == nil {
		b.sendText(chatID, "📊 Статистика недоступна")
		return
	}
	d, err := b.deps.Dashboard.Dashboard(ctx, stats.Period30d)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendText(chatID, formatDashboard(d))
}

func (b *Bot) handleChart(ctx context.Context, chatID int64, arg string) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		msg := tgbotapi.NewMessage(chatID, "📈 Выберите период:")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("7 дней", CallbackChartTo+string(stats.Period7d)),
				tgbotapi.NewInlineKeyboardButtonData("30 дней", CallbackChartTo+string(stats.Period30d)),
				tgbotapi.NewInlineKeyboardButtonData("3 месяца", CallbackChartTo+string(stats.Period90d)),
			),
		)
		b.send(chatID, msg)
		return
	}

	p, err := stats.ParsePeriod(arg)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.sendCharts(ctx, chatID, p)
}

func (b *Bot) sendCharts(ctx context.Context, chatID int64, p stats.Period) {
	if b.deps.Dashboard == nil {
		b.sendText(chatID, "📊 Статистика недоступна")
		return
	}
	d, err := b.deps.Dashboard.Dashboard(ctx, p)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	charts := []struct {
		name    string
		caption string
		render  func() ([]byte, error)
	}{
		{"activity.png", "📈 " + d.PeriodTitle, func() ([]byte, error) { return report.ActivityChart(d.Activity, d.PeriodTitle) }},
		{"languages.png", "🌍 Языки пользователей", func() ([]byte, error) { return report.LanguageChart(d.Languages) }},
		{"premium.png", "⭐ Premium / Regular", func() ([]byte, error) { return report.PremiumChart(d.Premium) }},
	}
	for _, c := range charts {
		img, err := c.render()
		if err != nil {
			logger.Warn("Chart skipped", "chart", c.name, "error", err)
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: c.name, Bytes: img})
		photo.Caption = c.caption
		b.send(chatID, photo)
	}
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) {
	if b.deps.Dashboard == nil || b.deps.Reports == nil {
		b.sendText(chatID, "📄 Отчёты недоступны")
		return
	}
	d, err := b.deps.Dashboard.Dashboard(ctx, stats.Period30d)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	pdf, err := b.deps.Reports.DashboardPDF(d)
	if err != nil {
		b.sendError(chatID, fmt.Errorf("ошибка генерации PDF: %w", err))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "dashboard.pdf", Bytes: pdf})
	doc.Caption = "📄 Отчёт по статистике"
	b.send(chatID, doc)
}

func (b *Bot) handleHistory(chatID int64) {
	st := b.chat(chatID).manager.State()
	if len(st.Messages) == 0 {
		b.sendText(chatID, "📭 История пуста")
		return
	}
	b.sendText(chatID, formatHistory(st, historyPreview))
}
