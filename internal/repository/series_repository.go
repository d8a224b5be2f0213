package repository

import (
	"context"
	"fmt"
	"time"

	"stockcast/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxArchivedRows bounds LatestSeries; 5d intraday at 5m bars is under 500.
const maxArchivedRows = 500

const seriesSchema = `
CREATE TABLE IF NOT EXISTS series_candles (
    symbol      TEXT        NOT NULL,
    period      TEXT        NOT NULL,
    ts          TIMESTAMPTZ NOT NULL,
    open        DOUBLE PRECISION NOT NULL,
    high        DOUBLE PRECISION NOT NULL,
    low         DOUBLE PRECISION NOT NULL,
    close       DOUBLE PRECISION NOT NULL,
    volume      DOUBLE PRECISION NOT NULL,
    source      TEXT        NOT NULL,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (symbol, period, ts)
);
CREATE INDEX IF NOT EXISTS idx_series_candles_lookup ON series_candles (symbol, period, ts DESC);
`

// SeriesRepository archives real vendor series in Postgres so the provider
// chain can serve them when every vendor is down.
type SeriesRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSeriesRepository(pool PgxPool, tracer trace.Tracer) *SeriesRepository {
	return &SeriesRepository{pool: pool, tracer: tracer}
}

func (r *SeriesRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "series-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, seriesSchema); err != nil {
		return fmt.Errorf("migrate series_candles: %w", err)
	}
	return nil
}

func (r *SeriesRepository) ArchiveSeries(ctx context.Context, series domain.MarketSeries) error {
	if len(series.Candles) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "series-repo.archive-series")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", series.Symbol), attribute.Int("rows", len(series.Candles)))

	batch := &pgx.Batch{}
	for _, c := range series.Candles {
		batch.Queue(
			`INSERT INTO series_candles (symbol, period, ts, open, high, low, close, volume, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (symbol, period, ts) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume,
			     source = EXCLUDED.source,
			     archived_at = NOW()`,
			series.Symbol, series.Period, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume, series.Source,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series.Candles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("archive %s %s: %w", series.Symbol, series.Period, err)
		}
	}
	return nil
}

// LatestSeries returns the archived rows for (symbol, period) in ascending
// order. An empty series means nothing was archived.
func (r *SeriesRepository) LatestSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	_, span := r.tracer.Start(ctx, "series-repo.latest-series")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT ts, open, high, low, close, volume, source
		 FROM series_candles
		 WHERE symbol = $1 AND period = $2
		 ORDER BY ts DESC
		 LIMIT $3`,
		symbol, period, maxArchivedRows,
	)
	if err != nil {
		return domain.MarketSeries{}, err
	}
	defer rows.Close()

	series := domain.MarketSeries{Symbol: symbol, Period: period}
	for rows.Next() {
		var c domain.Candle
		var ts time.Time
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &series.Source); err != nil {
			return domain.MarketSeries{}, err
		}
		c.Timestamp = ts.UTC()
		series.Candles = append(series.Candles, c)
	}
	if err := rows.Err(); err != nil {
		return domain.MarketSeries{}, err
	}

	for i, j := 0, len(series.Candles)-1; i < j; i, j = i+1, j-1 {
		series.Candles[i], series.Candles[j] = series.Candles[j], series.Candles[i]
	}
	return series, nil
}
