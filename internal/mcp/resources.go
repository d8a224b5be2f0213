package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, forecasts Forecasts, watchlist []string) {
	server.AddResource(&mcp.Resource{
		URI:         "stocks://watchlist",
		Name:        "watchlist",
		Description: "Symbols the service forecasts on a schedule",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, append([]string{}, watchlist...))
	})

	server.AddResource(&mcp.Resource{
		URI:         "stocks://timeframes",
		Name:        "timeframes",
		Description: "Supported forecast timeframes and the lookback period each one fetches",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, supportedTimeframes())
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "series://{symbol}/{timeframe}{?limit}",
		Name:        "series-by-symbol-timeframe",
		Description: "OHLCV rows for a symbol and forecast timeframe; optional limit query param",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if forecasts == nil {
			return nil, errForecastsUnavailable
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "series" || parsed.Host == "" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		timeframe, err := normalizeTimeframe(strings.Trim(strings.TrimSpace(parsed.Path), "/"))
		if err != nil {
			return nil, err
		}

		limit := defaultSeriesLimit
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			limit = normalizeSeriesLimit(n)
		}

		series, err := forecasts.Series(ctx, parsed.Host, timeframe)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, seriesOutput(series, timeframe, limit))
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
