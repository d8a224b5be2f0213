package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/chart"
	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

const (
	maxMessageLen  = 4000
	commandTimeout = 2 * time.Minute
)

// Forecaster is the slice of the forecast service the bot talks to.
type Forecaster interface {
	Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error)
	Top(ctx context.Context) (domain.TopList, error)
	Info(ctx context.Context, symbol string) (domain.StockInfo, error)
	Series(ctx context.Context, symbol, timeframe string) (domain.MarketSeries, error)
	Search(query string) []domain.TickerListing
}

type ChartRenderer interface {
	RenderSeries(series domain.MarketSeries) (*chart.Image, error)
}

// StartTelegramBot starts long polling in the background. It returns nil when
// no token is configured.
func StartTelegramBot(token string, forecasts Forecaster, renderer ChartRenderer) *AlertDispatcher {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Telegram bot")
		return nil
	}
	alerts := NewAlertDispatcher(b)
	cmds := &commands{forecasts: forecasts, renderer: renderer, alerts: alerts}

	b.Handle("/ping", cmds.ping)
	b.Handle("/predict", cmds.predict)
	b.Handle("/top", cmds.top)
	b.Handle("/info", cmds.info)
	b.Handle("/search", cmds.search)
	b.Handle("/alerts", cmds.alertsCommand)

	log.Info().Msg("Telegram bot started")
	go b.Start()
	return alerts
}

type commands struct {
	forecasts Forecaster
	renderer  ChartRenderer
	alerts    *AlertDispatcher
}

func (h *commands) ping(c tele.Context) error {
	return c.Send("pong")
}

func (h *commands) predict(c tele.Context) error {
	symbol, timeframe, err := parsePredictArgs(c.Args())
	if err != nil {
		return c.Send("Usage: /predict AAPL [1h|1d|1w]")
	}
	_ = c.Notify(tele.Typing)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	rep, err := h.forecasts.Predict(ctx, symbol, timeframe)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("telegram predict failed")
		return c.Send(userError(err))
	}
	text := truncate(formatReport(*rep))
	if err := c.Send(text); err != nil {
		return err
	}
	return h.sendChart(ctx, c, rep.Symbol, rep.Timeframe)
}

// sendChart is best effort; a failed render only gets logged.
func (h *commands) sendChart(ctx context.Context, c tele.Context, symbol, timeframe string) error {
	if h.renderer == nil {
		return nil
	}
	series, err := h.forecasts.Series(ctx, symbol, timeframe)
	if err != nil {
		return nil
	}
	img, err := h.renderer.RenderSeries(series)
	if err != nil || len(img.Bytes) == 0 {
		log.Debug().Err(err).Str("symbol", symbol).Msg("skipping chart")
		return nil
	}
	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(img.Bytes)),
		Caption: fmt.Sprintf("%s %s", symbol, timeframe),
	})
}

func (h *commands) top(c tele.Context) error {
	_ = c.Notify(tele.Typing)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	top, err := h.forecasts.Top(ctx)
	if err != nil {
		return c.Send(userError(err))
	}
	return c.Send(truncate(formatTop(top)))
}

func (h *commands) info(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("Usage: /info AAPL")
	}
	info, err := h.forecasts.Info(context.Background(), args[0])
	if err != nil {
		return c.Send(userError(err))
	}
	return c.Send(formatInfo(info))
}

func (h *commands) search(c tele.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args(), " "))
	if query == "" {
		return c.Send("Usage: /search apple")
	}
	results := h.forecasts.Search(query)
	if len(results) == 0 {
		return c.Send("No matching tickers.")
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s  %s", r.Symbol, r.Name))
	}
	return c.Send(strings.Join(lines, "\n"))
}

func (h *commands) alertsCommand(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return c.Send("Unable to detect chat")
	}

	mode, err := parseAlertMode(c.Args())
	if err != nil {
		return c.Send("Usage: /alerts on | /alerts off | /alerts status")
	}

	switch mode {
	case "on":
		if h.alerts.Subscribe(chat.ID) {
			return c.Send("Watchlist alerts enabled for this chat.")
		}
		return c.Send("Watchlist alerts are already enabled for this chat.")
	case "off":
		if h.alerts.Unsubscribe(chat.ID) {
			return c.Send("Watchlist alerts disabled for this chat.")
		}
		return c.Send("Watchlist alerts are already disabled for this chat.")
	default:
		if h.alerts.IsSubscribed(chat.ID) {
			return c.Send("Alerts status: ON")
		}
		return c.Send("Alerts status: OFF")
	}
}

func parsePredictArgs(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		return args[0], domain.Timeframe1D, nil
	case 2:
		return args[0], strings.ToLower(args[1]), nil
	default:
		return "", "", errors.New("expected symbol and optional timeframe")
	}
}

func userError(err error) string {
	var validation *domain.ValidationError
	var unavailable *domain.BackendUnavailableError
	switch {
	case errors.As(err, &validation):
		return "Invalid request: " + validation.Error()
	case errors.As(err, &unavailable):
		return "The analysis backend is unavailable right now. Try again later."
	default:
		return "Sorry, the forecast failed. Try again later."
	}
}

func truncate(s string) string {
	if len(s) > maxMessageLen {
		return s[:maxMessageLen] + "\n\n[truncated]"
	}
	return s
}

func formatReport(r domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) forecast\n", r.Symbol, r.Timeframe)
	fmt.Fprintf(&sb, "Price: %.2f\n", r.CurrentPrice)
	fmt.Fprintf(&sb, "Direction: %s, probability %.0f%%, confidence %s\n", strings.ToUpper(string(r.Direction)), r.Probability, r.Confidence)
	fmt.Fprintf(&sb, "Expected range: %.2f - %.2f\n", r.PriceRange.Min, r.PriceRange.Max)
	fmt.Fprintf(&sb, "Action: %s\n", r.Action)
	if r.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Summary)
	}
	if r.Rationale != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Rationale)
	}
	fmt.Fprintf(&sb, "\n%s\n", r.RiskWarning)
	if r.Provenance == domain.ProvenanceSynthetic {
		sb.WriteString("\nNote: market data was unavailable, this forecast uses synthetic data.\n")
	}
	fmt.Fprintf(&sb, "\n%s", r.Disclaimer)
	return sb.String()
}

func formatTop(top domain.TopList) string {
	lines := make([]string, 0, len(top.Recommendations)+2)
	lines = append(lines, "Top picks:")
	for i, r := range top.Recommendations {
		lines = append(lines, fmt.Sprintf("%d. %s %s %.0f%% %s (risk %s)",
			i+1, r.Symbol, strings.ToUpper(string(r.Direction)), r.Probability, r.ExpectedReturn, r.RiskLevel))
	}
	lines = append(lines, "", top.Disclaimer)
	return strings.Join(lines, "\n")
}

func formatInfo(i domain.StockInfo) string {
	return fmt.Sprintf(
		"%s  %s\nSector: %s / %s\nExchange: %s (%s)\nPrice: %.2f\n52w range: %.2f - %.2f\nP/E: %.2f  Dividend yield: %.2f%%\nMarket cap: %.0f",
		i.Symbol, i.Name, i.Sector, i.Industry, i.Exchange, i.Currency, i.CurrentPrice,
		i.Low52Week, i.High52Week, i.PERatio, i.DividendYield*100, i.MarketCap,
	)
}
