// Package bot is the Telegram surface: dashboard commands plus a chat with
// the analytics assistant, one transcript per Telegram chat.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/session"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

const (
	CallbackModeNormal = "mode_normal"
	CallbackModeAdmin  = "mode_admin"
	CallbackChartTo    = "chart_"
)

// TelegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Deps struct {
	Chat      transcript.Transport
	Storage   session.Storage
	Dashboard *service.DashboardService
	Reports   *report.Generator
}

type Options struct {
	HistoryLimit int
	// Admins restricts the bot to these chats. Empty allows everyone.
	Admins []int64
	// SendEvery and SendBurst throttle chat submits per Telegram chat.
	SendEvery time.Duration
	SendBurst int
}

type Bot struct {
	bot  TelegramAPI
	deps Deps
	opts Options

	admins map[int64]bool

	mu    sync.Mutex
	chats map[int64]*chatSession
}

type chatSession struct {
	manager     *transcript.Manager
	limiter     *rate.Limiter
	unsubscribe func()
}

func NewBot(tg TelegramAPI, deps Deps, opts Options) *Bot {
	if opts.SendEvery <= 0 {
		opts.SendEvery = 2 * time.Second
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 3
	}
	admins := make(map[int64]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = true
	}
	return &Bot{
		bot:    tg,
		deps:   deps,
		opts:   opts,
		admins: admins,
		chats:  make(map[int64]*chatSession),
	}
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context, username string) {
	log.Printf("🤖 Бот %s успешно запущен!", username)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

// Stop closes every chat transcript. Replies still in flight are dropped.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, cs := range b.chats {
		cs.unsubscribe()
		cs.manager.Close()
		delete(b.chats, id)
	}
}

func (b *Bot) allowed(chatID int64) bool {
	return len(b.admins) == 0 || b.admins[chatID]
}

// chat returns the transcript for chatID, opening it on first use.
func (b *Bot) chat(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cs, ok := b.chats[chatID]; ok {
		return cs
	}

	store := session.NewStore(b.deps.Storage, session.WithKey(fmt.Sprintf("%s:%d", session.DefaultKey, chatID)))
	m := transcript.NewManager(b.deps.Chat, store, transcript.WithHistoryLimit(b.opts.HistoryLimit))
	cs := &chatSession{
		manager: m,
		limiter: rate.NewLimiter(rate.Every(b.opts.SendEvery), b.opts.SendBurst),
	}
	cs.unsubscribe = m.Subscribe(b.relay(chatID))
	b.chats[chatID] = cs

	m.Open()
	logger.Info("Chat transcript opened", "chat_id", chatID, "session_id", m.State().SessionID)
	return cs
}

// relay forwards what a transition added to the transcript. It runs on the
// dispatching goroutine, so it only talks to Telegram.
func (b *Bot) relay(chatID int64) func(transcript.State) {
	prev := transcript.Idle
	return func(s transcript.State) {
		from := prev
		prev = s.Status
		if s.Status != transcript.Ready {
			return
		}

		switch from {
		case transcript.Sending:
			if n := len(s.Messages); n > 0 && s.Messages[n-1].Role == api.RoleAssistant {
				b.sendChatMessage(chatID, s.Messages[n-1])
			}
		case transcript.Clearing:
			if len(s.Messages) == 0 {
				b.sendText(chatID, "🧹 История очищена")
			} else {
				b.sendChatMessage(chatID, s.Messages[len(s.Messages)-1])
			}
		case transcript.LoadingHistory:
			b.sendText(chatID, fmt.Sprintf("💬 Сессия <code>%s</code>, сообщений в истории: %d", s.SessionID, len(s.Messages)))
		}
	}
}

func (b *Bot) send(chatID int64, c tgbotapi.Chattable) {
	if _, err := b.bot.Send(c); err != nil {
		logger.Error("Error sending message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		b.send(chatID, msg)
	}
}

func (b *Bot) sendError(chatID int64, err error) {
	logger.Warn("Sending error to user", "chat_id", chatID, "error", err)
	b.sendText(chatID, fmt.Sprintf("⚠️ Ошибка: %s", escape(err.Error())))
}

func (b *Bot) sendChatMessage(chatID int64, m transcript.Message) {
	b.sendText(chatID, formatMessage(m))
}

func (b *Bot) sendModeMenu(chatID int64, current api.ChatMode) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Текущий режим: <b>%s</b>", modeTitle(current)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Обычный", CallbackModeNormal),
			tgbotapi.NewInlineKeyboardButtonData("🛠 Админ (SQL)", CallbackModeAdmin),
		),
	)
	b.send(chatID, msg)
}
