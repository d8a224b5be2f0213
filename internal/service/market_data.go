package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockcast/internal/cache"
	"stockcast/internal/domain"
	"stockcast/internal/metrics"
	"stockcast/internal/provider"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	defaultProviderTimeout = 10 * time.Second
	breakerMaxFailures     = 3
	breakerResetTimeout    = time.Minute
)

// SeriesArchiver stores real series so they can be served when every vendor is down.
type SeriesArchiver interface {
	ArchiveSeries(ctx context.Context, series domain.MarketSeries) error
}

// MarketDataService walks the provider chain behind the cache. FetchSeries
// always returns a usable series because the synthetic generator is last.
type MarketDataService struct {
	tracer    trace.Tracer
	providers []provider.Descriptor
	breakers  map[string]*provider.Breaker
	cache     cache.SeriesStore
	archiver  SeriesArchiver
	metrics   *metrics.Recorder
	timeout   time.Duration
	fallback  *provider.Synthetic
	group     singleflight.Group
}

type MarketDataOption func(*MarketDataService)

func WithSeriesCache(store cache.SeriesStore) MarketDataOption {
	return func(s *MarketDataService) { s.cache = store }
}

func WithSeriesArchiver(a SeriesArchiver) MarketDataOption {
	return func(s *MarketDataService) { s.archiver = a }
}

func WithMarketMetrics(m *metrics.Recorder) MarketDataOption {
	return func(s *MarketDataService) { s.metrics = m }
}

func WithProviderTimeout(d time.Duration) MarketDataOption {
	return func(s *MarketDataService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewMarketDataService(tracer trace.Tracer, providers []provider.Descriptor, opts ...MarketDataOption) *MarketDataService {
	ordered := make([]provider.Descriptor, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	s := &MarketDataService{
		tracer:    tracer,
		providers: ordered,
		breakers:  make(map[string]*provider.Breaker, len(ordered)),
		timeout:   defaultProviderTimeout,
		fallback:  provider.NewSynthetic(),
	}
	for _, d := range ordered {
		if d.Name == provider.NameSynthetic {
			continue
		}
		name := d.Name
		b := provider.NewBreaker(breakerMaxFailures, breakerResetTimeout)
		b.OnStateChange = func(from, to provider.BreakerState) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("provider breaker changed state")
		}
		s.breakers[name] = b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchSeries returns the freshest series it can find. Concurrent calls for
// the same key share one chain walk.
func (s *MarketDataService) FetchSeries(ctx context.Context, symbol, period string) domain.MarketSeries {
	ctx, span := s.tracer.Start(ctx, "market-data.fetch-series")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("period", period))

	// The shared walk outlives any one caller; each attempt carries its own timeout.
	walkCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(symbol+"|"+period, func() (any, error) {
		return s.fetch(walkCtx, symbol, period), nil
	})

	var series domain.MarketSeries
	select {
	case res := <-ch:
		series = res.Val.(domain.MarketSeries)
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Str("symbol", symbol).Str("period", period).Msg("caller left before the provider walk finished")
		series, _ = s.fallback.FetchSeries(walkCtx, symbol, period)
	}
	span.SetAttributes(attribute.String("source", series.Source), attribute.String("provenance", string(series.Provenance)))
	return series
}

func (s *MarketDataService) fetch(ctx context.Context, symbol, period string) domain.MarketSeries {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, symbol, period)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("period", period).Msg("series cache read failed")
		}
		if ok {
			s.metrics.CacheHit()
			log.Debug().Str("symbol", symbol).Str("period", period).Str("source", cached.Source).Msg("series cache hit")
			return cached
		}
		s.metrics.CacheMiss()
	}

	for _, d := range s.providers {
		series, err := s.attempt(ctx, d, symbol, period)
		if err != nil {
			s.metrics.ProviderFailure(d.Name, failureReason(err))
			log.Warn().Err(err).Str("provider", d.Name).Str("symbol", symbol).Str("period", period).Msg("provider failed, trying next")
			continue
		}
		log.Info().Str("provider", d.Name).Str("symbol", symbol).Str("period", period).Int("rows", series.Len()).Msg("series fetched")
		s.publish(ctx, series)
		return series
	}

	log.Error().Str("symbol", symbol).Str("period", period).Msg("every provider failed, generating synthetic series")
	series, _ := s.fallback.FetchSeries(ctx, symbol, period)
	return series
}

type seriesOutcome struct {
	series domain.MarketSeries
	err    error
}

func (s *MarketDataService) attempt(ctx context.Context, d provider.Descriptor, symbol, period string) (domain.MarketSeries, error) {
	s.metrics.ProviderAttempt(d.Name)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var series domain.MarketSeries
	call := func() error {
		done := make(chan seriesOutcome, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- seriesOutcome{err: fmt.Errorf("panic: %v", r)}
				}
			}()
			got, err := d.Provider.FetchSeries(callCtx, symbol, period)
			done <- seriesOutcome{series: got, err: err}
		}()

		select {
		case out := <-done:
			if out.err != nil {
				return healthError(ctx, out.err)
			}
			normalized, err := provider.Normalize(out.series)
			if err != nil {
				return healthError(ctx, err)
			}
			series = normalized
			return nil
		case <-callCtx.Done():
			return healthError(ctx, callCtx.Err())
		}
	}

	var err error
	if d.Name == provider.NameSynthetic {
		err = call()
	} else {
		err = s.breakerFor(d.Name).Execute(call)
	}
	if err != nil {
		return domain.MarketSeries{}, &domain.ProviderError{Provider: d.Name, Err: err}
	}

	series.Symbol = symbol
	series.Period = period
	if series.Source == "" {
		series.Source = d.Name
	}
	if series.Provenance == "" {
		series.Provenance = domain.ProvenanceReal
	}
	return series, nil
}

func (s *MarketDataService) publish(ctx context.Context, series domain.MarketSeries) {
	if s.cache != nil {
		if err := s.cache.Put(ctx, series); err != nil {
			log.Warn().Err(err).Str("symbol", series.Symbol).Msg("series cache write failed")
		}
	}
	if s.archiver != nil && series.Provenance == domain.ProvenanceReal {
		if err := s.archiver.ArchiveSeries(ctx, series); err != nil {
			log.Warn().Err(err).Str("symbol", series.Symbol).Msg("series archive write failed")
		}
	}
}

// healthError keeps failures that are not the vendor's fault out of its
// breaker: the parent context ending, or a symbol the vendor has no rows for.
func healthError(parent context.Context, err error) error {
	if parent.Err() != nil || errors.Is(err, provider.ErrNoData) {
		return provider.Uncounted(err)
	}
	return err
}

func (s *MarketDataService) breakerFor(name string) *provider.Breaker {
	if b, ok := s.breakers[name]; ok {
		return b
	}
	return provider.NewBreaker(breakerMaxFailures, breakerResetTimeout)
}

// FetchInfo asks each info-capable provider in turn and falls back to the
// default record.
func (s *MarketDataService) FetchInfo(ctx context.Context, symbol string) domain.StockInfo {
	ctx, span := s.tracer.Start(ctx, "market-data.fetch-info")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, d := range s.providers {
		ip, ok := d.Provider.(provider.InfoProvider)
		if !ok {
			continue
		}
		info, err := s.fetchInfo(ctx, ip, symbol)
		if err != nil {
			log.Warn().Err(err).Str("provider", d.Name).Str("symbol", symbol).Msg("info lookup failed, trying next")
			continue
		}
		return info.FillDefaults()
	}
	return domain.DefaultStockInfo(symbol)
}

type infoOutcome struct {
	info domain.StockInfo
	err  error
}

func (s *MarketDataService) fetchInfo(ctx context.Context, ip provider.InfoProvider, symbol string) (domain.StockInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan infoOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- infoOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		info, err := ip.FetchInfo(callCtx, symbol)
		done <- infoOutcome{info: info, err: err}
	}()

	select {
	case out := <-done:
		return out.info, out.err
	case <-callCtx.Done():
		return domain.StockInfo{}, callCtx.Err()
	}
}

// ProviderStates reports each provider's breaker position, in chain order.
func (s *MarketDataService) ProviderStates() []ProviderState {
	states := make([]ProviderState, 0, len(s.providers))
	for _, d := range s.providers {
		states = append(states, ProviderState{
			Name:     d.Name,
			Priority: d.Priority,
			Breaker:  s.breakerFor(d.Name).State().String(),
		})
	}
	return states
}

type ProviderState struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Breaker  string `json:"breaker"`
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, provider.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, provider.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
