package mcp

import (
	"context"

	"stockcast/internal/domain"
)

// Forecasts exposes the forecast service operations the tools call.
type Forecasts interface {
	Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error)
	Top(ctx context.Context) (domain.TopList, error)
	Series(ctx context.Context, symbol, timeframe string) (domain.MarketSeries, error)
	Info(ctx context.Context, symbol string) (domain.StockInfo, error)
	Search(query string) []domain.TickerListing
}
