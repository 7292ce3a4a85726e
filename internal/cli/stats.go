package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#43BF6D"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			d, err := a.dashboard().Dashboard(cmd.Context(), p)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			printDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the dashboard view model as JSON")
	cmd.Flags().StringVar(&period, "period", "30d", "Activity period: 7d, 30d or 90d")
	return cmd
}

func printDashboard(w io.Writer, d *service.Dashboard) {
	fmt.Fprintln(w, headerStyle.Render("Статистика бота"))
	if d.IsMock {
		fmt.Fprintln(w, labelStyle.Render("(демонстрационные данные)"))
	}
	fmt.Fprintln(w)

	for _, c := range append(append([]service.Card{}, d.Cards...), d.Details...) {
		line := fmt.Sprintf("  %-22s %s", labelStyle.Render(c.Title), valueStyle.Render(c.Value))
		if c.ShowChange() {
			style, arrow := upStyle, "↑"
			if c.Trend == stats.TrendDown {
				style, arrow = downStyle, "↓"
			}
			line += "  " + style.Render(arrow+" "+c.ChangeText) + " " + labelStyle.Render(c.Description)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Языки"))
	total := 0
	for _, l := range d.Languages {
		total += l.Count
	}
	for _, l := range d.Languages {
		width := 0
		if total > 0 {
			width = l.Count * 30 / total
		}
		fmt.Fprintf(w, "  %-10s %s %d\n", l.Label, strings.Repeat("█", width), l.Count)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Premium %.1f%%  Regular %.1f%%\n", d.Premium[0].Percentage, d.Premium[1].Percentage)
	fmt.Fprintf(w, "  Первое сообщение: %s, последнее: %s\n", d.FirstSeen, d.LastSeen)
}

func newChartCmd(a *app) *cobra.Command {
	var kind, period, out string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a dashboard chart to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			d, err := a.dashboard().Dashboard(cmd.Context(), p)
			if err != nil {
				return err
			}

			var img []byte
			switch kind {
			case "activity":
				img, err = report.ActivityChart(d.Activity, d.PeriodTitle)
			case "languages":
				img, err = report.LanguageChart(d.Languages)
			case "premium":
				img, err = report.PremiumChart(d.Premium)
			default:
				return fmt.Errorf("unknown chart %q (want activity, languages or premium)", kind)
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = kind + ".png"
			}
			if err := os.WriteFile(out, img, 0644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "activity", "activity, languages or premium")
	cmd.Flags().StringVar(&period, "period", "30d", "Activity period: 7d, 30d or 90d")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <kind>.png)")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the dashboard as a PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dashboard().Dashboard(cmd.Context(), stats.Period30d)
			if err != nil {
				return err
			}
			pdf, err := report.NewGenerator(a.cfg.FontPath).DashboardPDF(d)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, pdf, 0644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dashboard.pdf", "Output file")
	return cmd
}
