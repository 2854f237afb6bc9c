package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/ui/view"
)

var summaryJSON bool

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(16)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

const summaryBarWidth = 30

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard metrics and revenue views to the terminal",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}
	cmd.Flags().BoolVar(&summaryJSON, "json", false, "output the report as JSON")
	return cmd
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Keep logs off stdout so the summary can be piped.
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
	analytics, _ := newAnalytics(cfg, logger, nil)

	report, err := analytics.Report(cmd.Context())
	if err != nil {
		return err
	}

	if summaryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeSummary(cmd.OutOrStdout(), report)
}

func writeSummary(w io.Writer, report *models.Report) error {
	page := view.Build(report)
	var b strings.Builder

	b.WriteString(titleStyle.Render(page.Title))
	b.WriteString("\n")
	if page.Source != "" {
		b.WriteString(labelStyle.Render("Source"))
		b.WriteString(page.Source)
		b.WriteString("\n")
	}

	for _, c := range page.Cards {
		b.WriteString(labelStyle.Render(c.Label))
		if c.Empty {
			b.WriteString(emptyStyle.Render(c.Value))
		} else {
			b.WriteString(valueStyle.Render(c.Value))
		}
		b.WriteString("\n")
	}

	writeSection(&b, page.Products.Title, len(report.ByProduct), func() {
		peak := 0.0
		for _, p := range report.ByProduct {
			peak = max(peak, p.Total.InexactFloat64())
		}
		for _, p := range report.ByProduct {
			writeRow(&b, p.Product, view.Currency(p.Total), bar(p.Total.InexactFloat64(), peak))
		}
	})

	writeSection(&b, page.Monthly.Title, len(report.ByMonth), func() {
		for _, m := range report.ByMonth {
			writeRow(&b, m.Month, view.Currency(m.Total), "")
		}
	})

	writeSection(&b, page.Regions.Title, len(page.Regions.Slices), func() {
		for _, s := range page.Regions.Slices {
			writeRow(&b, s.Label, s.Value, s.Percent)
		}
	})

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSection(b *strings.Builder, title string, n int, body func()) {
	b.WriteString(headingStyle.Render(title))
	b.WriteString("\n")
	if n == 0 {
		b.WriteString(emptyStyle.Render(view.NoData))
		b.WriteString("\n")
		return
	}
	body()
}

func writeRow(b *strings.Builder, label, value, extra string) {
	fmt.Fprintf(b, "%s%s", labelStyle.Render(label), valueStyle.Render(fmt.Sprintf("%12s", value)))
	if extra != "" {
		b.WriteString("  ")
		b.WriteString(extra)
	}
	b.WriteString("\n")
}

func bar(v, peak float64) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	n := max(int(v/peak*summaryBarWidth), 1)
	return barStyle.Render(strings.Repeat("█", n))
}
