package main

import (
	"fmt"
	"strings"

	"stockcast/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	subtextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555")).Padding(0, 1)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))

	upStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	downStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))

	riskLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	riskMedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	riskHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

func directionLabel(d domain.Direction) string {
	label := strings.ToUpper(string(d))
	switch d {
	case domain.DirectionUp:
		return upStyle.Render(label)
	case domain.DirectionDown:
		return downStyle.Render(label)
	default:
		return neutralStyle.Render(label)
	}
}

func riskLabel(level string) string {
	switch level {
	case "low":
		return riskLowStyle.Render(level)
	case "high":
		return riskHighStyle.Render(level)
	default:
		return riskMedStyle.Render(level)
	}
}

func renderReport(r domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", headerStyle.Render(fmt.Sprintf("%s  %s forecast", r.Symbol, r.Timeframe)))
	fmt.Fprintf(&sb, "Price       %.2f\n", r.CurrentPrice)
	fmt.Fprintf(&sb, "Direction   %s  %.0f%%  confidence %s\n", directionLabel(r.Direction), r.Probability, r.Confidence)
	fmt.Fprintf(&sb, "Range       %.2f - %.2f\n", r.PriceRange.Min, r.PriceRange.Max)
	fmt.Fprintf(&sb, "Signals     %s (score %.1f)\n", r.SignalStrength, r.SignalScore)
	if len(r.Signals) > 0 {
		fmt.Fprintf(&sb, "            %s\n", strings.Join(r.Signals, ", "))
	}
	if r.Support > 0 && r.Resistance > 0 {
		fmt.Fprintf(&sb, "Levels      support %.2f  resistance %.2f\n", r.Support, r.Resistance)
	}
	fmt.Fprintf(&sb, "Action      %s\n", r.Action)
	if r.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Summary)
	}
	if r.Rationale != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Rationale)
	}
	fmt.Fprintf(&sb, "\n%s\n", warnStyle.Render(r.RiskWarning))
	if r.Provenance == domain.ProvenanceSynthetic {
		fmt.Fprintf(&sb, "%s\n", warnStyle.Render("Market data was unavailable; this forecast uses synthetic data."))
	}
	fmt.Fprintf(&sb, "%s", subtextStyle.Render(fmt.Sprintf("source %s  run %s", r.DataSource, r.RunID)))
	return borderStyle.Render(sb.String()) + "\n" + subtextStyle.Render(r.Disclaimer)
}

func renderTop(top domain.TopList) string {
	lines := make([]string, 0, len(top.Recommendations)+3)
	lines = append(lines, headerStyle.Render("Top picks"))
	for i, r := range top.Recommendations {
		lines = append(lines, fmt.Sprintf("%2d. %-6s %-8s %3.0f%%  %-7s risk %s  %s",
			i+1, r.Symbol, directionLabel(r.Direction), r.Probability, r.ExpectedReturn, riskLabel(r.RiskLevel), subtextStyle.Render(r.Name)))
	}
	lines = append(lines, "", subtextStyle.Render(top.Disclaimer))
	return strings.Join(lines, "\n")
}

func renderInfo(i domain.StockInfo) string {
	body := fmt.Sprintf(
		"%s\nSector      %s / %s\nExchange    %s (%s)\nPrice       %.2f\n52w range   %.2f - %.2f\nP/E         %.2f\nDiv. yield  %.2f%%\nMarket cap  %.0f",
		headerStyle.Render(i.Symbol+"  "+i.Name), i.Sector, i.Industry, i.Exchange, i.Currency, i.CurrentPrice,
		i.Low52Week, i.High52Week, i.PERatio, i.DividendYield*100, i.MarketCap,
	)
	return borderStyle.Render(body)
}

func renderSearch(query string, results []domain.TickerListing) string {
	if len(results) == 0 {
		return subtextStyle.Render(fmt.Sprintf("no tickers match %q", query))
	}
	lines := make([]string, 0, len(results)+1)
	lines = append(lines, headerStyle.Render(fmt.Sprintf("%d match(es) for %q", len(results), query)))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("  %-6s %s", r.Symbol, r.Name))
	}
	return strings.Join(lines, "\n")
}
