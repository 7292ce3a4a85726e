package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID
	data := q.Data
	username := ""
	if q.From != nil {
		username = q.From.UserName
	}
	logger.LogButtonClick(username, data)

	if !b.allowed(chatID) {
		b.answer(q.ID, "⛔ Доступ запрещён")
		return
	}

	switch {
	case data == CallbackModeNormal || data == CallbackModeAdmin:
		mode := api.ModeNormal
		if data == CallbackModeAdmin {
			mode = api.ModeAdmin
		}
		if !b.chat(chatID).manager.SetMode(mode) {
			b.answer(q.ID, "⏳ Режим нельзя менять, пока идёт ответ")
			return
		}
		b.answer(q.ID, "Режим: "+modeTitle(mode))
		edit := tgbotapi.NewEditMessageText(chatID, q.Message.MessageID, "Текущий режим: <b>"+modeTitle(mode)+"</b>")
		edit.ParseMode = tgbotapi.ModeHTML
		b.send(chatID, edit)

	case strings.HasPrefix(data, CallbackChartTo):
		p, err := stats.ParsePeriod(strings.TrimPrefix(data, CallbackChartTo))
		if err != nil {
			b.answer(q.ID, err.Error())
			return
		}
		b.answer(q.ID, "")
		b.sendCharts(ctx, chatID, p)

	default:
		b.answer(q.ID, "")
		logger.Warn("Unknown callback", "data", data)
	}
}

func (b *Bot) answer(queryID, text string) {
	if _, err := b.bot.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		logger.Debug("Callback answer failed", "error", err)
	}
}
