package job

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultPollInterval = 15 * time.Minute

type Forecaster interface {
	Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error)
}

type AlertNotifier interface {
	NotifyReports(ctx context.Context, reports []domain.Report) error
}

// WatchlistPoller periodically forecasts every watchlist symbol and pushes
// the strong signals to the notifier.
type WatchlistPoller struct {
	tracer    trace.Tracer
	forecasts Forecaster
	notifier  AlertNotifier
	symbols   []string
	timeframe string
	interval  time.Duration
}

func NewWatchlistPoller(
	tracer trace.Tracer,
	forecasts Forecaster,
	notifier AlertNotifier,
	symbols []string,
	timeframe string,
	interval time.Duration,
) *WatchlistPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeframe == "" {
		timeframe = domain.Timeframe1D
	}
	return &WatchlistPoller{
		tracer:    tracer,
		forecasts: forecasts,
		notifier:  notifier,
		symbols:   append([]string(nil), symbols...),
		timeframe: timeframe,
		interval:  interval,
	}
}

// Start polls immediately and then on every tick. Blocks until ctx is cancelled.
func (p *WatchlistPoller) Start(ctx context.Context) {
	if p.forecasts == nil || len(p.symbols) == 0 {
		log.Info().Msg("watchlist poller disabled: no symbols or forecast service")
		<-ctx.Done()
		return
	}

	log.Info().Strs("symbols", p.symbols).Dur("interval", p.interval).Msg("watchlist poller starting")
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watchlist poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one sweep and returns the reports that were alerted on.
func (p *WatchlistPoller) poll(ctx context.Context) []domain.Report {
	ctx, span := p.tracer.Start(ctx, "watchlist-job.poll")
	defer span.End()

	var strong []domain.Report
	for _, symbol := range p.symbols {
		if ctx.Err() != nil {
			return strong
		}
		rep, err := p.forecasts.Predict(ctx, symbol, p.timeframe)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("watchlist forecast failed")
			continue
		}
		if IsStrong(*rep) {
			strong = append(strong, *rep)
		}
	}
	span.SetAttributes(attribute.Int("strong", len(strong)))

	if len(strong) > 0 && p.notifier != nil {
		if err := p.notifier.NotifyReports(ctx, strong); err != nil {
			log.Error().Err(err).Int("reports", len(strong)).Msg("watchlist alert delivery failed")
		}
	}
	return strong
}

// IsStrong reports whether a forecast carries a strong rule-engine signal.
// Synthetic data never alerts.
func IsStrong(r domain.Report) bool {
	if r.Provenance == domain.ProvenanceSynthetic {
		return false
	}
	return r.SignalStrength == domain.StrengthStrongBullish || r.SignalStrength == domain.StrengthStrongBearish
}
