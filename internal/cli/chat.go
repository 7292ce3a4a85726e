package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/repository"
	"github.com/IlyaMakar/aidd_admin/internal/session"
	"github.com/IlyaMakar/aidd_admin/internal/tui"
)

var errNoSession = errors.New("no chat session yet; start one with: aiddctl chat")

func newChatCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the analytics assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := api.ParseChatMode(mode)
			if err != nil {
				return err
			}
			// Console logging would draw over the widget.
			if !a.cfg.LogToFile {
				logger.SetOutput(io.Discard, logger.ERROR)
			}

			model := tui.New(cmd.Context(), a.client(), a.sessions(), m, a.cfg.HistoryLimit)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(api.ModeNormal), "normal or admin")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored chat history",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, ok := a.sessions().GetSessionID()
			if !ok {
				return errNoSession
			}
			resp, err := a.client().GetHistory(cmd.Context(), sid, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Сессия"), sid)
			if len(resp.Messages) == 0 {
				fmt.Fprintln(w, labelStyle.Render("История пуста"))
				return nil
			}
			for _, m := range resp.Messages {
				who := "Ассистент"
				if m.Role == api.RoleUser {
					who = "Вы"
				}
				fmt.Fprintf(w, "\n%s\n%s\n", valueStyle.Render(who), m.Content)
				if m.SQLQuery != nil && *m.SQLQuery != "" {
					fmt.Fprintf(w, "%s\n", labelStyle.Render(*m.SQLQuery))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", api.DefaultHistoryLimit, "Number of messages to fetch")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the server-side history of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, ok := a.sessions().GetSessionID()
			if !ok {
				return errNoSession
			}
			if err := a.client().ClearHistory(cmd.Context(), sid); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🧹 История очищена")
			return nil
		},
	}
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the stored chat session",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current session id",
			RunE: func(cmd *cobra.Command, args []string) error {
				sid, ok := a.sessions().GetSessionID()
				if !ok {
					return errNoSession
				}
				fmt.Fprintln(cmd.OutOrStdout(), sid)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the session id; the next chat starts a new conversation",
			RunE: func(cmd *cobra.Command, args []string) error {
				a.sessions().ClearSessionID()
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Сессия сброшена")
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every session id in the state database, including bot chats",
			RunE: func(cmd *cobra.Command, args []string) error {
				a.sessions()
				if a.repo == nil {
					return session.ErrUnavailable
				}
				entries, err := a.repo.List(session.DefaultKey)
				if err != nil {
					return err
				}
				printSessions(cmd.OutOrStdout(), entries)
				return nil
			},
		},
	)
	return cmd
}

func printSessions(w io.Writer, entries []repository.StateEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, labelStyle.Render("Сессий нет"))
		return
	}
	for _, e := range entries {
		owner := "cli"
		if i := strings.IndexByte(e.Key, ':'); i >= 0 {
			owner = "chat " + e.Key[i+1:]
		}
		updated := "n/a"
		if !e.UpdatedAt.IsZero() {
			updated = humanize.Time(e.UpdatedAt)
		}
		fmt.Fprintf(w, "%-18s %s  %s\n", owner, e.Value, labelStyle.Render(updated))
	}
}
