package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/admin"
	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/config"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %s", err.Error())
	}

	if err := logger.Init(logger.Options{Level: cfg.LogLevel, ToFile: cfg.LogToFile, Prefix: "admin"}); err != nil {
		log.Fatalf("failed to init logger: %s", err.Error())
	}
	defer logger.Close()

	client := api.NewClient(cfg.ResolveBaseURL(config.RenderServer), cfg.APITimeout)
	log.Printf("🔗 Backend: %s", client.BaseURL())

	srv := admin.NewServer(
		service.NewDashboardService(client, cfg.StatsCacheTTL),
		report.NewGenerator(cfg.FontPath),
		client,
		client,
	)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.AdminPort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Printf("🚀 Admin panel starting on http://localhost:%d", cfg.AdminPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Admin panel failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down admin panel")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
