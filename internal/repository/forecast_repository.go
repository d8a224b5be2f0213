package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultForecastLimit = 50
	maxForecastLimit     = 200
)

const forecastSchema = `
CREATE TABLE IF NOT EXISTS forecasts (
    id              BIGSERIAL PRIMARY KEY,
    run_id          TEXT        NOT NULL UNIQUE,
    symbol          TEXT        NOT NULL,
    timeframe       TEXT        NOT NULL,
    direction       TEXT        NOT NULL,
    probability     DOUBLE PRECISION NOT NULL,
    price_min       DOUBLE PRECISION NOT NULL,
    price_max       DOUBLE PRECISION NOT NULL,
    confidence      TEXT        NOT NULL,
    rationale       TEXT        NOT NULL,
    action          TEXT        NOT NULL,
    summary         TEXT        NOT NULL,
    current_price   DOUBLE PRECISION NOT NULL,
    signal_score    DOUBLE PRECISION NOT NULL,
    signal_strength TEXT        NOT NULL,
    data_source     TEXT        NOT NULL,
    provenance      TEXT        NOT NULL,
    generated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forecasts_symbol_time ON forecasts (symbol, generated_at DESC);
`

// ForecastRepository keeps the history of completed reports.
type ForecastRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewForecastRepository(pool PgxPool, tracer trace.Tracer) *ForecastRepository {
	return &ForecastRepository{pool: pool, tracer: tracer}
}

func (r *ForecastRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "forecast-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, forecastSchema); err != nil {
		return fmt.Errorf("migrate forecasts: %w", err)
	}
	return nil
}

func (r *ForecastRepository) InsertForecast(ctx context.Context, rep domain.Report) (int64, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.insert-forecast")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", rep.Symbol), attribute.String("run_id", rep.RunID))

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO forecasts (run_id, symbol, timeframe, direction, probability, price_min, price_max,
		     confidence, rationale, action, summary, current_price, signal_score, signal_strength,
		     data_source, provenance, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (run_id) DO UPDATE SET summary = EXCLUDED.summary
		 RETURNING id`,
		rep.RunID,
		rep.Symbol,
		rep.Timeframe,
		string(rep.Direction),
		rep.Probability,
		rep.PriceRange.Min,
		rep.PriceRange.Max,
		string(rep.Confidence),
		rep.Rationale,
		rep.Action,
		rep.Summary,
		rep.CurrentPrice,
		rep.SignalScore,
		string(rep.SignalStrength),
		rep.DataSource,
		string(rep.Provenance),
		rep.GeneratedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert forecast %s: %w", rep.RunID, err)
	}
	return id, nil
}

func (r *ForecastRepository) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.Report, error) {
	_, span := r.tracer.Start(ctx, "forecast-repo.list-forecasts")
	defer span.End()

	args := make([]any, 0, 2)
	var sb strings.Builder
	sb.WriteString(`SELECT run_id, symbol, timeframe, direction, probability, price_min, price_max,
	       confidence, rationale, action, summary, current_price, signal_score, signal_strength,
	       data_source, provenance, generated_at
	FROM forecasts
	WHERE 1=1`)

	if filter.Symbol != "" {
		args = append(args, strings.ToUpper(filter.Symbol))
		sb.WriteString(fmt.Sprintf(" AND symbol = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultForecastLimit
	}
	if limit > maxForecastLimit {
		limit = maxForecastLimit
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY generated_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Report, 0, limit)
	for rows.Next() {
		var rep domain.Report
		var direction, confidence, strength, provenance string
		var generated time.Time
		if err := rows.Scan(
			&rep.RunID,
			&rep.Symbol,
			&rep.Timeframe,
			&direction,
			&rep.Probability,
			&rep.PriceRange.Min,
			&rep.PriceRange.Max,
			&confidence,
			&rep.Rationale,
			&rep.Action,
			&rep.Summary,
			&rep.CurrentPrice,
			&rep.SignalScore,
			&strength,
			&rep.DataSource,
			&provenance,
			&generated,
		); err != nil {
			return nil, err
		}
		rep.Direction = domain.Direction(direction)
		rep.Confidence = domain.Confidence(confidence)
		rep.SignalStrength = domain.SignalStrength(strength)
		rep.Provenance = domain.Provenance(provenance)
		rep.GeneratedAt = generated.UTC()
		rep.Signals = []string{}
		out = append(out, rep)
	}
	return out, rows.Err()
}
