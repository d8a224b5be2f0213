package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockcast/internal/advisor"
	"stockcast/internal/domain"
	"stockcast/internal/indicator"
	"stockcast/internal/pipeline"
	"stockcast/internal/report"
	"stockcast/internal/signal"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	snapshotRows = 30
	maxSearch    = 10
)

// MarketIndexes feed the market context for the top list.
var MarketIndexes = []string{"SPY", "QQQ", "DIA"}

// CommonTickers is the offline search universe.
var CommonTickers = []domain.TickerListing{
	{Symbol: "AAPL", Name: "Apple Inc."},
	{Symbol: "MSFT", Name: "Microsoft Corporation"},
	{Symbol: "GOOGL", Name: "Alphabet Inc."},
	{Symbol: "AMZN", Name: "Amazon.com Inc."},
	{Symbol: "TSLA", Name: "Tesla Inc."},
	{Symbol: "NVDA", Name: "NVIDIA Corporation"},
	{Symbol: "META", Name: "Meta Platforms Inc."},
	{Symbol: "NFLX", Name: "Netflix Inc."},
	{Symbol: "AMD", Name: "Advanced Micro Devices Inc."},
	{Symbol: "CRM", Name: "Salesforce Inc."},
	{Symbol: "ORCL", Name: "Oracle Corporation"},
	{Symbol: "INTC", Name: "Intel Corporation"},
	{Symbol: "CSCO", Name: "Cisco Systems Inc."},
	{Symbol: "ADBE", Name: "Adobe Inc."},
	{Symbol: "PYPL", Name: "PayPal Holdings Inc."},
	{Symbol: "UBER", Name: "Uber Technologies Inc."},
	{Symbol: "SPOT", Name: "Spotify Technology S.A."},
	{Symbol: "TWTR", Name: "Twitter Inc."},
	{Symbol: "SNAP", Name: "Snap Inc."},
	{Symbol: "PINS", Name: "Pinterest Inc."},
	{Symbol: "SQ", Name: "Block Inc."},
	{Symbol: "ROKU", Name: "Roku Inc."},
	{Symbol: "ZM", Name: "Zoom Video Communications Inc."},
	{Symbol: "DOCU", Name: "DocuSign Inc."},
}

type Runner interface {
	Run(ctx context.Context, req domain.Request) (pipeline.State, error)
}

type ForecastStore interface {
	InsertForecast(ctx context.Context, rep domain.Report) (int64, error)
	ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.Report, error)
}

type ReportPublisher interface {
	PublishReport(ctx context.Context, rep domain.Report) error
}

type TopRecommender interface {
	RecommendTop(ctx context.Context, marketContext string) ([]domain.Recommendation, error)
	Status() advisor.Status
}

type MarketData interface {
	FetchSeries(ctx context.Context, symbol, period string) domain.MarketSeries
	FetchInfo(ctx context.Context, symbol string) domain.StockInfo
}

// ForecastService is the entry point shared by the HTTP API, the bot, the
// watchlist poller, the MCP server and the CLI.
type ForecastService struct {
	tracer    trace.Tracer
	runner    Runner
	market    MarketData
	advisor   TopRecommender
	store     ForecastStore
	publisher ReportPublisher
	scorer    *signal.Engine
	now       func() time.Time
}

type ForecastOption func(*ForecastService)

func WithForecastStore(s ForecastStore) ForecastOption {
	return func(f *ForecastService) { f.store = s }
}

func WithReportPublisher(p ReportPublisher) ForecastOption {
	return func(f *ForecastService) { f.publisher = p }
}

func NewForecastService(tracer trace.Tracer, runner Runner, market MarketData, adv TopRecommender, opts ...ForecastOption) *ForecastService {
	s := &ForecastService{
		tracer:  tracer,
		runner:  runner,
		market:  market,
		advisor: adv,
		scorer:  signal.NewEngine(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict validates the request before any I/O, runs the pipeline and
// hands the report to the store and publisher. Storage and publish failures
// are logged only.
func (s *ForecastService) Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.predict")
	defer span.End()

	req, err := domain.NewRequest(symbol, timeframe)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("symbol", req.Symbol), attribute.String("timeframe", req.Timeframe))

	state, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if state.Report == nil {
		return nil, &domain.StageError{Stage: string(pipeline.StateReport), Err: fmt.Errorf("run %s produced no report", state.RunID)}
	}
	rep := *state.Report

	if s.store != nil {
		if _, err := s.store.InsertForecast(ctx, rep); err != nil {
			log.Error().Err(err).Str("run_id", rep.RunID).Str("symbol", rep.Symbol).Msg("failed to store forecast")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, rep); err != nil {
			log.Error().Err(err).Str("run_id", rep.RunID).Str("symbol", rep.Symbol).Msg("failed to publish forecast")
		}
	}
	log.Info().
		Str("run_id", rep.RunID).
		Str("symbol", rep.Symbol).
		Str("direction", string(rep.Direction)).
		Str("provenance", string(rep.Provenance)).
		Msg("forecast complete")
	return &rep, nil
}

// History returns stored forecasts, newest first. It is empty when no
// database is configured.
func (s *ForecastService) History(ctx context.Context, filter domain.ForecastFilter) ([]domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.history")
	defer span.End()

	if s.store == nil {
		return []domain.Report{}, nil
	}
	reports, err := s.store.ListForecasts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	for i := range reports {
		reports[i].Disclaimer = report.Disclaimer
	}
	return reports, nil
}

func (s *ForecastService) Top(ctx context.Context) (domain.TopList, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.top")
	defer span.End()

	recs, err := s.advisor.RecommendTop(ctx, s.marketContext(ctx))
	if err != nil {
		return domain.TopList{}, err
	}
	return domain.TopList{
		Recommendations: recs,
		GeneratedAt:     s.now().UTC(),
		Disclaimer:      report.Disclaimer,
	}, nil
}

// marketContext summarizes the broad indexes for the top-list prompt.
func (s *ForecastService) marketContext(ctx context.Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "As of %s:\n", s.now().UTC().Format("2006-01-02"))
	for _, sym := range MarketIndexes {
		series := s.market.FetchSeries(ctx, sym, domain.Period1M)
		candles := indicator.SortedCopy(series.Candles)
		last, ok := series.Last()
		if !ok {
			continue
		}
		score := s.scorer.ScoreLatest(indicator.Compute(candles))
		change := 0.0
		if first := candles[0].Close; first > 0 {
			change = (last.Close - first) / first * 100
		}
		fmt.Fprintf(&sb, "- %s: close %.2f, 1mo change %+.1f%%, signal %s (score %g)\n",
			sym, last.Close, change, score.Strength, score.Score)
	}
	return sb.String()
}

func (s *ForecastService) Snapshot(ctx context.Context, symbol string) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.snapshot")
	defer span.End()

	sym, err := domain.ValidateSymbol(symbol)
	if err != nil {
		return domain.Snapshot{}, err
	}
	series := s.market.FetchSeries(ctx, sym, domain.Period1M)
	candles := indicator.SortedCopy(series.Candles)
	set := indicator.Compute(candles)

	tail := candles
	if len(tail) > snapshotRows {
		tail = tail[len(tail)-snapshotRows:]
	}
	return domain.Snapshot{
		Info:       s.market.FetchInfo(ctx, sym),
		Timeframe:  domain.Timeframe1D,
		Candles:    tail,
		Indicators: set.Snapshot(set.LastIndex()),
		Levels:     indicator.Levels(candles, indicator.DefaultLevelWindow),
		Score:      s.scorer.ScoreLatest(set),
		Provenance: series.Provenance,
		Source:     series.Source,
	}, nil
}

// Series fetches a series for a forecast timeframe.
func (s *ForecastService) Series(ctx context.Context, symbol, timeframe string) (domain.MarketSeries, error) {
	req, err := domain.NewRequest(symbol, timeframe)
	if err != nil {
		return domain.MarketSeries{}, err
	}
	return s.market.FetchSeries(ctx, req.Symbol, req.Period), nil
}

func (s *ForecastService) Info(ctx context.Context, symbol string) (domain.StockInfo, error) {
	sym, err := domain.ValidateSymbol(symbol)
	if err != nil {
		return domain.StockInfo{}, err
	}
	return s.market.FetchInfo(ctx, sym), nil
}

func (s *ForecastService) AdvisorStatus() advisor.Status {
	return s.advisor.Status()
}

// Search matches symbols by prefix and names by substring, symbol matches
// first.
func (s *ForecastService) Search(query string) []domain.TickerListing {
	q := strings.TrimSpace(query)
	if q == "" {
		return []domain.TickerListing{}
	}
	upper := strings.ToUpper(q)
	lower := strings.ToLower(q)

	type hit struct {
		listing domain.TickerListing
		rank    int
		order   int
	}
	var hits []hit
	for i, l := range CommonTickers {
		switch {
		case strings.HasPrefix(l.Symbol, upper):
			hits = append(hits, hit{l, 0, i})
		case strings.Contains(strings.ToLower(l.Name), lower):
			hits = append(hits, hit{l, 1, i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].order < hits[j].order
	})

	out := make([]domain.TickerListing, 0, maxSearch)
	for _, h := range hits {
		if len(out) == maxSearch {
			break
		}
		out = append(out, h.listing)
	}
	return out
}
