package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func TestSeriesRunMigrationsExecutesSchema(t *testing.T) {
	pool := &stubPool{}
	if err := NewSeriesRepository(pool, testTracer()).RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "series_candles") {
		t.Fatalf("expected series schema, got %v", pool.execSQL)
	}
}

func TestArchiveSeriesBatchesRows(t *testing.T) {
	pool := &stubPool{}
	repo := NewSeriesRepository(pool, testTracer())
	series := domain.MarketSeries{
		Symbol: "AAPL",
		Period: "1mo",
		Source: "yahoo",
		Candles: []domain.Candle{
			{Timestamp: time.Unix(0, 0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Timestamp: time.Unix(86400, 0), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12},
		},
	}

	if err := repo.ArchiveSeries(context.Background(), series); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != 2 {
		t.Fatalf("expected batch of 2")
	}
	if pool.batchResults.execCalls != 2 {
		t.Fatalf("expected 2 Exec calls, got %d", pool.batchResults.execCalls)
	}
}

func TestArchiveSeriesSurfacesBatchError(t *testing.T) {
	pool := &stubPool{batchResults: &stubBatchResults{failAt: 2}}
	series := domain.MarketSeries{Symbol: "AAPL", Period: "1mo", Candles: make([]domain.Candle, 3)}

	err := NewSeriesRepository(pool, testTracer()).ArchiveSeries(context.Background(), series)
	if err == nil || !strings.Contains(err.Error(), "AAPL") {
		t.Fatalf("expected wrapped batch error, got %v", err)
	}
}

func TestArchiveEmptySeriesIsNoop(t *testing.T) {
	pool := &stubPool{}
	if err := NewSeriesRepository(pool, testTracer()).ArchiveSeries(context.Background(), domain.MarketSeries{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch != nil {
		t.Fatal("expected no batch for empty series")
	}
}

func TestLatestSeriesReturnsAscendingRows(t *testing.T) {
	newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.AddDate(0, 0, -1)
	pool := &stubPool{rowsData: [][]any{
		{newer, 2.0, 3.0, 1.0, 2.5, 200.0, "yahoo"},
		{older, 1.0, 2.0, 0.5, 1.5, 100.0, "yahoo"},
	}}

	series, err := NewSeriesRepository(pool, testTracer()).LatestSeries(context.Background(), "AAPL", "1mo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 || !series.Candles[0].Timestamp.Equal(older) || !series.Candles[1].Timestamp.Equal(newer) {
		t.Fatalf("expected ascending rows, got %+v", series.Candles)
	}
	if series.Source != "yahoo" || series.Symbol != "AAPL" || series.Period != "1mo" {
		t.Fatalf("unexpected series metadata %+v", series)
	}
	if pool.queryArgs[2] != maxArchivedRows {
		t.Fatalf("expected row limit %d, got %v", maxArchivedRows, pool.queryArgs[2])
	}
}
