package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stockcast/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubForecasts struct {
	lastSymbol    string
	lastTimeframe string
	rows          int
}

func (s *stubForecasts) Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error) {
	req, err := domain.NewRequest(symbol, timeframe)
	if err != nil {
		return nil, err
	}
	s.lastSymbol, s.lastTimeframe = req.Symbol, req.Timeframe
	return &domain.Report{
		RunID:     "run-1",
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Direction: domain.DirectionUp,
		Signals:   []string{},
	}, nil
}

func (s *stubForecasts) Top(ctx context.Context) (domain.TopList, error) {
	return domain.TopList{
		Recommendations: []domain.Recommendation{{Symbol: "AAPL", Direction: domain.DirectionUp, Probability: 70}},
		GeneratedAt:     time.Unix(0, 0).UTC(),
		Disclaimer:      "Not financial advice.",
	}, nil
}

func (s *stubForecasts) Series(ctx context.Context, symbol, timeframe string) (domain.MarketSeries, error) {
	req, err := domain.NewRequest(symbol, timeframe)
	if err != nil {
		return domain.MarketSeries{}, err
	}
	s.lastSymbol, s.lastTimeframe = req.Symbol, req.Timeframe
	candles := make([]domain.Candle, s.rows)
	for i := range candles {
		candles[i] = domain.Candle{Timestamp: time.Unix(int64(i)*86400, 0).UTC(), Open: 1, High: 2, Low: 1, Close: float64(i), Volume: 3}
	}
	return domain.MarketSeries{Symbol: req.Symbol, Period: req.Period, Source: "stub", Provenance: domain.ProvenanceReal, Candles: candles}, nil
}

func (s *stubForecasts) Info(ctx context.Context, symbol string) (domain.StockInfo, error) {
	sym, err := domain.ValidateSymbol(symbol)
	if err != nil {
		return domain.StockInfo{}, err
	}
	return domain.DefaultStockInfo(sym), nil
}

func (s *stubForecasts) Search(query string) []domain.TickerListing {
	if strings.HasPrefix("AAPL", strings.ToUpper(query)) {
		return []domain.TickerListing{{Symbol: "AAPL", Name: "Apple Inc."}}
	}
	return []domain.TickerListing{}
}

func testServer() (*sdkmcp.Server, *stubForecasts) {
	forecasts := &stubForecasts{rows: 150}
	srv := NewServer(nil, forecasts, ServerConfig{RequestTimeout: time.Second, Watchlist: []string{"AAPL", "MSFT"}})
	return srv, forecasts
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func decodeStructured(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
