package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestToolsListAndInvoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, forecasts := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"forecast_predict", "forecast_top", "series_get", "stock_info", "stock_search"} {
		if !names[want] {
			t.Fatalf("missing tool %s", want)
		}
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "forecast_predict", Arguments: map[string]any{"symbol": "aapl"}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	if forecasts.lastSymbol != "AAPL" || forecasts.lastTimeframe != "1d" {
		t.Fatalf("expected default timeframe, got %s %s", forecasts.lastSymbol, forecasts.lastTimeframe)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "series_get", Arguments: map[string]any{"symbol": "MSFT", "timeframe": "1w", "limit": 20}})
	if err != nil {
		t.Fatalf("series tool failed: %v", err)
	}
	var out seriesGetOutput
	if err := decodeStructured(res, &out); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(out.Candles) != 20 || out.Candles[19].Close != 149 || out.Period != "3mo" {
		t.Fatalf("unexpected series output: %d rows, period %s", len(out.Candles), out.Period)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stock_search", Arguments: map[string]any{"query": "aa"}})
	if err != nil || res.IsError {
		t.Fatalf("search tool failed: %v %+v", err, res)
	}
	var search stockSearchOutput
	if err := decodeStructured(res, &search); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(search.Results) != 1 || search.Results[0].Symbol != "AAPL" {
		t.Fatalf("unexpected search results %+v", search.Results)
	}
}

func TestToolsValidationFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	for _, params := range []*sdkmcp.CallToolParams{
		{Name: "forecast_predict", Arguments: map[string]any{"symbol": "AAPL", "timeframe": "2h"}},
		{Name: "stock_info", Arguments: map[string]any{"symbol": "NOT_VALID!"}},
		{Name: "stock_search", Arguments: map[string]any{"query": "  "}},
	} {
		res, err := session.CallTool(ctx, params)
		if err != nil {
			t.Fatalf("%s: unexpected protocol error: %v", params.Name, err)
		}
		if !res.IsError {
			t.Fatalf("%s: expected tool-level validation error", params.Name)
		}
	}
}

func TestNormalizeTimeframe(t *testing.T) {
	tf, err := normalizeTimeframe(" 1H ")
	if err != nil || tf != "1h" {
		t.Fatalf("expected 1h, got %q %v", tf, err)
	}
	if tf, _ := normalizeTimeframe(""); tf != "1d" {
		t.Fatalf("expected default 1d, got %q", tf)
	}
	if _, err := normalizeTimeframe("1m"); err == nil {
		t.Fatal("expected unsupported timeframe error")
	}
	if normalizeSeriesLimit(0) != defaultSeriesLimit || normalizeSeriesLimit(9999) != maxSeriesLimit {
		t.Fatal("unexpected limit normalization")
	}
}
