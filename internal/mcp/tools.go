package mcp

import (
	"context"
	"fmt"
	"strings"

	"stockcast/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var errForecastsUnavailable = fmt.Errorf("forecast service unavailable")

func registerTools(server *mcp.Server, forecasts Forecasts) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "forecast_predict",
		Description: "Run a technical-indicator forecast for one stock and return the full report",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in forecastPredictInput) (*mcp.CallToolResult, forecastPredictOutput, error) {
		if forecasts == nil {
			return nil, forecastPredictOutput{}, errForecastsUnavailable
		}
		timeframe, err := normalizeTimeframe(in.Timeframe)
		if err != nil {
			return nil, forecastPredictOutput{}, err
		}
		rep, err := forecasts.Predict(ctx, in.Symbol, timeframe)
		if err != nil {
			return nil, forecastPredictOutput{}, err
		}
		return nil, forecastPredictOutput{Report: rep}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forecast_top",
		Description: "Get ten ranked stock recommendations for the coming week",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ forecastTopInput) (*mcp.CallToolResult, domain.TopList, error) {
		if forecasts == nil {
			return nil, domain.TopList{}, errForecastsUnavailable
		}
		top, err := forecasts.Top(ctx)
		if err != nil {
			return nil, domain.TopList{}, err
		}
		return nil, top, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "series_get",
		Description: "Get OHLCV rows for a symbol and forecast timeframe",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in seriesGetInput) (*mcp.CallToolResult, seriesGetOutput, error) {
		if forecasts == nil {
			return nil, seriesGetOutput{}, errForecastsUnavailable
		}
		timeframe, err := normalizeTimeframe(in.Timeframe)
		if err != nil {
			return nil, seriesGetOutput{}, err
		}
		series, err := forecasts.Series(ctx, in.Symbol, timeframe)
		if err != nil {
			return nil, seriesGetOutput{}, err
		}
		return nil, seriesOutput(series, timeframe, normalizeSeriesLimit(in.Limit)), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stock_info",
		Description: "Get company metadata for a stock",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in stockInfoInput) (*mcp.CallToolResult, stockInfoOutput, error) {
		if forecasts == nil {
			return nil, stockInfoOutput{}, errForecastsUnavailable
		}
		info, err := forecasts.Info(ctx, in.Symbol)
		if err != nil {
			return nil, stockInfoOutput{}, err
		}
		return nil, stockInfoOutput{Info: info}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stock_search",
		Description: "Search common tickers by symbol prefix or company name",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in stockSearchInput) (*mcp.CallToolResult, stockSearchOutput, error) {
		if forecasts == nil {
			return nil, stockSearchOutput{}, errForecastsUnavailable
		}
		if strings.TrimSpace(in.Query) == "" {
			return nil, stockSearchOutput{}, fmt.Errorf("query is required")
		}
		return nil, stockSearchOutput{Results: forecasts.Search(in.Query)}, nil
	})
}
