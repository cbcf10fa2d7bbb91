package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/repack/internal/journal"
	"github.com/mattjoyce/repack/internal/run"
)

// Styles for the end-of-run summary printed to stdout.
type summaryTheme struct {
	Header lipgloss.Style
	OK     lipgloss.Style
	Failed lipgloss.Style
	Dim    lipgloss.Style
}

func newSummaryTheme() summaryTheme {
	return summaryTheme{
		Header: lipgloss.NewStyle().Bold(true),
		OK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Failed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// renderSummary formats the per-item outcomes of a run.
func renderSummary(reports []run.ItemReport) string {
	if len(reports) == 0 {
		return ""
	}

	theme := newSummaryTheme()
	var b strings.Builder

	b.WriteString(theme.Header.Render("Conversion summary"))
	b.WriteString("\n")

	ok := 0
	for _, r := range reports {
		status := theme.Failed.Render("FAIL")
		if r.OK {
			status = theme.OK.Render("OK  ")
			ok++
		}

		line := fmt.Sprintf("%s  %-10s %s", status, r.Format, r.Input)
		b.WriteString(line)
		if r.OK && r.Output != "" && r.Output != r.Input {
			b.WriteString(theme.Dim.Render(" -> " + r.Output))
		}
		b.WriteString(theme.Dim.Render(fmt.Sprintf("  [%s, %s]", r.Retention.String(), r.Duration.Round(time.Millisecond))))
		b.WriteString("\n")

		if r.Err != nil {
			b.WriteString(theme.Dim.Render("      " + r.Err.Error()))
			b.WriteString("\n")
		}
	}

	b.WriteString(theme.Dim.Render(fmt.Sprintf("%d of %d converted", ok, len(reports))))
	b.WriteString("\n")
	return b.String()
}

// renderHistory formats journal entries for `repack history`.
func renderHistory(entries []journal.Entry) string {
	theme := newSummaryTheme()
	var b strings.Builder

	if len(entries) == 0 {
		b.WriteString(theme.Dim.Render("No recorded conversions."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(theme.Header.Render("Recent conversions"))
	b.WriteString("\n")

	for _, e := range entries {
		status := theme.Failed.Render("FAIL")
		if e.Status == "ok" {
			status = theme.OK.Render("OK  ")
		}
		b.WriteString(fmt.Sprintf("%s  %s  %-10s %s",
			status,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Format,
			e.Input,
		))
		if e.Output != "" && e.Output != e.Input {
			b.WriteString(theme.Dim.Render(" -> " + e.Output))
		}
		b.WriteString(theme.Dim.Render("  [" + e.Retention + "]"))
		b.WriteString("\n")
	}
	return b.String()
}
