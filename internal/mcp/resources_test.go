package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, forecasts := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	list, err := session.ListResources(ctx, &sdkmcp.ListResourcesParams{})
	if err != nil {
		t.Fatalf("list resources failed: %v", err)
	}
	if len(list.Resources) != 2 {
		t.Fatalf("expected 2 static resources, got %d", len(list.Resources))
	}

	templates, err := session.ListResourceTemplates(ctx, &sdkmcp.ListResourceTemplatesParams{})
	if err != nil {
		t.Fatalf("list templates failed: %v", err)
	}
	if len(templates.ResourceTemplates) != 1 {
		t.Fatalf("expected 1 resource template, got %d", len(templates.ResourceTemplates))
	}

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "stocks://watchlist"})
	if err != nil {
		t.Fatalf("read watchlist failed: %v", err)
	}
	var symbols []string
	if err := decodeResourceJSON(readRes, &symbols); err != nil {
		t.Fatalf("decode watchlist failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" {
		t.Fatalf("unexpected watchlist %v", symbols)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "stocks://timeframes"})
	if err != nil {
		t.Fatalf("read timeframes failed: %v", err)
	}
	var timeframes []timeframeInfo
	if err := decodeResourceJSON(readRes, &timeframes); err != nil {
		t.Fatalf("decode timeframes failed: %v", err)
	}
	if len(timeframes) != 3 || timeframes[0].Period != "5d" {
		t.Fatalf("unexpected timeframes %+v", timeframes)
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "series://nvda/1h?limit=10"})
	if err != nil {
		t.Fatalf("read series resource failed: %v", err)
	}
	var out seriesGetOutput
	if err := decodeResourceJSON(readRes, &out); err != nil {
		t.Fatalf("decode series output failed: %v", err)
	}
	if len(out.Candles) != 10 || out.Timeframe != "1h" {
		t.Fatalf("unexpected series payload: %d rows, timeframe %s", len(out.Candles), out.Timeframe)
	}
	if forecasts.lastSymbol != "NVDA" {
		t.Fatalf("expected symbol NVDA, got %s", forecasts.lastSymbol)
	}
}

func TestUnknownResource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	_, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "prices://latest"})
	if err == nil {
		t.Fatal("expected resource not found error for prices://latest")
	}
}
