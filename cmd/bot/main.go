package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/bot"
	"github.com/IlyaMakar/aidd_admin/internal/config"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/repository"
	"github.com/IlyaMakar/aidd_admin/internal/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %s", err.Error())
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, ToFile: cfg.LogToFile, Prefix: "bot"}); err != nil {
		log.Fatalf("failed to init logger: %s", err.Error())
	}
	defer logger.Close()

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is not set")
	}

	repo, err := repository.Open(cfg.StateDB)
	if err != nil {
		log.Fatalf("failed to initialize db: %s", err.Error())
	}
	defer repo.Close()

	client := api.NewClient(cfg.ResolveBaseURL(config.RenderServer), cfg.APITimeout)
	logger.Info("Backend resolved", "url", client.BaseURL())

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("failed to create bot: %s", err.Error())
	}

	botInstance := bot.NewBot(botAPI, bot.Deps{
		Chat:      client,
		Storage:   repo,
		Dashboard: service.NewDashboardService(client, cfg.StatsCacheTTL),
		Reports:   report.NewGenerator(cfg.FontPath),
	}, bot.Options{
		HistoryLimit: cfg.HistoryLimit,
		Admins:       cfg.AdminChatIDs,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go botInstance.Start(ctx, botAPI.Self.UserName)

	<-ctx.Done()
	log.Println("🛑 Shutting down bot")
	botInstance.Stop()
}
