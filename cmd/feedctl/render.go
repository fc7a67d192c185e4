package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/store/sqlite"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5C07B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6370"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E06C75"))
	forcedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD"))
	itemStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3E4451")).
			Padding(0, 1).
			Width(22)
)

// renderFeed prints each row as a header followed by its items laid out
// horizontally. width caps the items shown per row; 0 shows all.
func renderFeed(rows []domain.CategoryRow, stats feed.Stats, width int) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(rowHeader(row))
		b.WriteString("\n")

		items := row.Items
		if width > 0 && len(items) > width {
			items = items[:width]
		}
		cards := make([]string, len(items))
		for i, item := range items {
			cards[i] = itemStyle.Render(itemLabel(item))
		}
		if len(cards) > 0 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
			b.WriteString("\n")
		}
		if hidden := len(row.Items) - len(items); hidden > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  … %d more", hidden)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf(
		"%d rows · %d of %d items assigned · %d pages · state %s",
		stats.Rows, stats.Committed, stats.Fetched, stats.PagesFetched, stats.State)))
	b.WriteString("\n")
	return b.String()
}

func rowHeader(row domain.CategoryRow) string {
	header := titleStyle.Render(row.Title) + " " +
		mutedStyle.Render(fmt.Sprintf("(%s, %d items)", row.CategoryID, len(row.Items)))
	if row.Forced {
		header += " " + forcedStyle.Render("forced")
	}
	if row.HasMore {
		header += " " + mutedStyle.Render("→")
	}
	return header
}

func itemLabel(item domain.CatalogItem) string {
	label := item.Title
	if item.Year > 0 {
		label += fmt.Sprintf(" (%d)", item.Year)
	}
	if item.Rating != nil {
		label += fmt.Sprintf("\n★ %.1f", *item.Rating)
	}
	return label
}

func renderCacheStats(stats sqlite.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", titleStyle.Render("pages:"), stats.Pages)
	fmt.Fprintf(&b, "%s %d\n", titleStyle.Render("items:"), stats.Items)
	if !stats.Oldest.IsZero() {
		fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("oldest:"), stats.Oldest.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("newest:"), stats.Newest.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
