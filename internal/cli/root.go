// Package cli defines the aiddctl commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/config"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/repository"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/session"
)

var version = "dev" // set via ldflags at build time

// app holds global flags and the lazily opened state database.
type app struct {
	cfgPath   string
	apiURL    string
	statePath string
	logLevel  string

	cfg  *config.Config
	repo *repository.SQLiteRepository
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "aiddctl",
		Short: "Admin tools for the AI bot analytics backend",
		Long: `aiddctl talks to the analytics backend: dashboard statistics,
charts and PDF reports, and a terminal chat with the analytics assistant.

The chat session id is kept in a local sqlite file (--state), so
consecutive runs continue the same conversation.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Config file (.toml or .yaml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Backend base URL (overrides API_URL and PUBLIC_API_URL)")
	root.PersistentFlags().StringVar(&a.statePath, "state", "", "Path to the local state database")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		newStatsCmd(a),
		newChartCmd(a),
		newReportCmd(a),
		newChatCmd(a),
		newHistoryCmd(a),
		newClearCmd(a),
		newSessionCmd(a),
	)
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(console io.Writer) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.InternalAPIURL = a.apiURL
		cfg.PublicAPIURL = a.apiURL
	}
	if a.statePath != "" {
		cfg.StateDB = a.statePath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "WARN"
	}
	a.cfg = cfg

	return logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		ToFile:  cfg.LogToFile,
		Prefix:  "aiddctl",
		Console: console,
	})
}

func (a *app) close() {
	if a.repo != nil {
		a.repo.Close()
		a.repo = nil
	}
	logger.Close()
}

func (a *app) client() *api.Client {
	c := api.NewClient(a.cfg.ResolveBaseURL(config.RenderBrowser), a.cfg.APITimeout)
	logger.Debug("Backend resolved", "url", c.BaseURL())
	return c
}

func (a *app) dashboard() *service.DashboardService {
	return service.NewDashboardService(a.client(), a.cfg.StatsCacheTTL)
}

// sessions opens the state database. If it cannot be opened the store runs
// without a medium and chat commands are disabled.
func (a *app) sessions() *session.Store {
	if a.repo == nil {
		repo, err := repository.Open(a.cfg.StateDB)
		if err != nil {
			logger.Error("Failed to open state database", "path", a.cfg.StateDB, "error", err)
			return session.NewStore(nil)
		}
		a.repo = repo
	}
	return session.NewStore(a.repo)
}
