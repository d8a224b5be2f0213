package mcp

import (
	"fmt"
	"strings"

	"stockcast/internal/domain"
)

const (
	defaultSeriesLimit = 100
	maxSeriesLimit     = 500
)

type forecastPredictInput struct {
	Symbol    string `json:"symbol" jsonschema:"ticker symbol (e.g. AAPL, MSFT)"`
	Timeframe string `json:"timeframe,omitempty" jsonschema:"forecast timeframe: 1h, 1d or 1w (default 1d)"`
}

type forecastPredictOutput struct {
	Report *domain.Report `json:"report"`
}

type forecastTopInput struct{}

type seriesGetInput struct {
	Symbol    string `json:"symbol" jsonschema:"ticker symbol (e.g. AAPL, MSFT)"`
	Timeframe string `json:"timeframe,omitempty" jsonschema:"forecast timeframe: 1h, 1d or 1w (default 1d)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"number of most recent rows to return, max 500"`
}

type seriesGetOutput struct {
	Symbol     string            `json:"symbol"`
	Timeframe  string            `json:"timeframe"`
	Period     string            `json:"period"`
	Source     string            `json:"source"`
	Provenance domain.Provenance `json:"provenance"`
	Candles    []domain.Candle   `json:"candles"`
}

type stockInfoInput struct {
	Symbol string `json:"symbol" jsonschema:"ticker symbol (e.g. AAPL, MSFT)"`
}

type stockInfoOutput struct {
	Info domain.StockInfo `json:"info"`
}

type stockSearchInput struct {
	Query string `json:"query" jsonschema:"symbol prefix or company name fragment"`
}

type stockSearchOutput struct {
	Results []domain.TickerListing `json:"results"`
}

type timeframeInfo struct {
	Timeframe string `json:"timeframe"`
	Period    string `json:"period"`
}

func normalizeTimeframe(timeframe string) (string, error) {
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if timeframe == "" {
		return domain.Timeframe1D, nil
	}
	if _, ok := domain.PeriodFor(timeframe); !ok {
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return timeframe, nil
}

func normalizeSeriesLimit(limit int) int {
	if limit <= 0 {
		return defaultSeriesLimit
	}
	if limit > maxSeriesLimit {
		return maxSeriesLimit
	}
	return limit
}

func seriesOutput(series domain.MarketSeries, timeframe string, limit int) seriesGetOutput {
	candles := series.Candles
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return seriesGetOutput{
		Symbol:     series.Symbol,
		Timeframe:  timeframe,
		Period:     series.Period,
		Source:     series.Source,
		Provenance: series.Provenance,
		Candles:    append([]domain.Candle{}, candles...),
	}
}

func supportedTimeframes() []timeframeInfo {
	out := make([]timeframeInfo, 0, len(domain.SupportedTimeframes))
	for _, tf := range domain.SupportedTimeframes {
		period, _ := domain.PeriodFor(tf)
		out = append(out, timeframeInfo{Timeframe: tf, Period: period})
	}
	return out
}
