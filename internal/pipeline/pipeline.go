// Package pipeline runs one forecast request through the fixed
// fetch, feature, analyze, advise and report stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockcast/internal/advice"
	"stockcast/internal/domain"
	"stockcast/internal/indicator"
	"stockcast/internal/metrics"
	"stockcast/internal/report"
	"stockcast/internal/signal"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type StateName string

const (
	StateFetch   StateName = "FETCH"
	StateFeature StateName = "FEATURE"
	StateAnalyze StateName = "ANALYZE"
	StateAdvise  StateName = "ADVISE"
	StateReport  StateName = "REPORT"
	StateDone    StateName = "DONE"
	StateError   StateName = "ERROR"
)

const (
	outcomeDone  = "done"
	outcomeError = "error"
)

var (
	errEmptySeries = errors.New("no price data")
	errNoClose     = errors.New("latest close is not positive")
)

// State accumulates the outputs of each stage. Stages receive a copy and
// never write to it directly.
type State struct {
	RunID      string
	Request    domain.Request
	Current    StateName
	Series     domain.MarketSeries
	Indicators indicator.Set
	Score      domain.SignalScore
	Levels     domain.Levels
	Features   domain.FeatureBundle
	Forecast   domain.Forecast
	Advice     domain.Advice
	Report     *domain.Report
	Err        error
}

// Update is the partial result of a stage.
type Update func(*State)

type Stage func(ctx context.Context, s State) (Update, error)

// Step binds a stage handler to the state it runs in.
type Step struct {
	State StateName
	Run   Stage
}

// Result is delivered by RunAsync.
type Result struct {
	State State
	Err   error
}

// SeriesSource never fails; the provider chain ends in a synthetic generator.
type SeriesSource interface {
	FetchSeries(ctx context.Context, symbol, period string) domain.MarketSeries
}

type FeatureExtractor interface {
	Extract(series domain.MarketSeries, set indicator.Set, score domain.SignalScore, levels domain.Levels) domain.FeatureBundle
}

type Forecaster interface {
	Analyze(ctx context.Context, symbol string, bundle domain.FeatureBundle, timeframe string) (domain.Forecast, error)
}

type Pipeline struct {
	tracer  trace.Tracer
	steps   []Step
	metrics *metrics.Recorder
	now     func() time.Time
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSteps replaces the default stage list.
func WithSteps(steps ...Step) Option {
	return func(p *Pipeline) { p.steps = steps }
}

func New(tracer trace.Tracer, source SeriesSource, extractor FeatureExtractor, forecaster Forecaster, opts ...Option) *Pipeline {
	p := &Pipeline{tracer: tracer, now: time.Now}
	scorer := signal.NewEngine()
	p.steps = []Step{
		{State: StateFetch, Run: fetchStage(source)},
		{State: StateFeature, Run: featureStage(scorer, extractor)},
		{State: StateAnalyze, Run: analyzeStage(forecaster)},
		{State: StateAdvise, Run: adviseStage},
		{State: StateReport, Run: p.reportStage},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until the request reaches DONE or ERROR. The returned error is
// a *domain.ValidationError or a *domain.StageError.
func (p *Pipeline) Run(ctx context.Context, req domain.Request) (State, error) {
	state := State{RunID: uuid.NewString(), Request: req}
	if req.Period == "" {
		period, ok := domain.PeriodFor(req.Timeframe)
		if !ok {
			return state, &domain.ValidationError{Field: "timeframe", Reason: "must be one of 1h, 1d, 1w"}
		}
		state.Request.Period = period
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", state.RunID),
		attribute.String("symbol", req.Symbol),
		attribute.String("timeframe", req.Timeframe),
	)
	logger := log.With().Str("run_id", state.RunID).Str("symbol", req.Symbol).Logger()

	for _, step := range p.steps {
		state.Current = step.State
		if err := ctx.Err(); err != nil {
			return p.fail(span, state, step.State, err)
		}

		started := time.Now()
		upd, err := p.runStage(ctx, step, state)
		p.metrics.StageLatency(string(step.State), time.Since(started).Seconds())
		if err != nil {
			logger.Warn().Err(err).Str("stage", string(step.State)).Msg("pipeline stage failed")
			return p.fail(span, state, step.State, err)
		}
		if upd != nil {
			next := state
			upd(&next)
			state = next
		}
		logger.Debug().Str("stage", string(step.State)).Msg("pipeline stage complete")
	}

	state.Current = StateDone
	p.metrics.PipelineRun(outcomeDone)
	span.SetAttributes(attribute.String("provenance", string(state.Series.Provenance)))
	return state, nil
}

// RunAsync runs the pipeline in its own goroutine. The channel is buffered
// so an abandoned receiver does not leak the goroutine.
func (p *Pipeline) RunAsync(ctx context.Context, req domain.Request) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		state, err := p.Run(ctx, req)
		out <- Result{State: state, Err: err}
	}()
	return out
}

func (p *Pipeline) runStage(ctx context.Context, step Step, state State) (upd Update, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(step.State))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Run(ctx, state)
}

func (p *Pipeline) fail(span trace.Span, state State, stage StateName, err error) (State, error) {
	stageErr := &domain.StageError{Stage: string(stage), Err: err}
	state.Current = StateError
	state.Err = stageErr
	state.Report = nil
	span.RecordError(stageErr)
	span.SetStatus(codes.Error, stageErr.Error())
	p.metrics.PipelineRun(outcomeError)
	return state, stageErr
}

func fetchStage(source SeriesSource) Stage {
	return func(ctx context.Context, s State) (Update, error) {
		series := source.FetchSeries(ctx, s.Request.Symbol, s.Request.Period)
		if series.Len() == 0 {
			return nil, errEmptySeries
		}
		return func(st *State) { st.Series = series }, nil
	}
}

func featureStage(scorer *signal.Engine, extractor FeatureExtractor) Stage {
	return func(ctx context.Context, s State) (Update, error) {
		if s.Series.Len() == 0 {
			return nil, errEmptySeries
		}
		candles := indicator.SortedCopy(s.Series.Candles)
		set := indicator.Compute(candles)
		score := scorer.ScoreLatest(set)
		levels := indicator.Levels(candles, indicator.DefaultLevelWindow)
		sorted := s.Series
		sorted.Candles = candles
		bundle := extractor.Extract(sorted, set, score, levels)
		return func(st *State) {
			st.Indicators = set
			st.Score = score
			st.Levels = levels
			st.Features = bundle
		}, nil
	}
}

func analyzeStage(forecaster Forecaster) Stage {
	return func(ctx context.Context, s State) (Update, error) {
		forecast, err := forecaster.Analyze(ctx, s.Request.Symbol, s.Features, s.Request.Timeframe)
		if err != nil {
			return nil, err
		}
		return func(st *State) { st.Forecast = forecast }, nil
	}
}

func adviseStage(ctx context.Context, s State) (Update, error) {
	last, ok := s.Series.Last()
	if !ok || last.Close <= 0 {
		return nil, errNoClose
	}
	adv := advice.Synthesize(s.Forecast, last.Close)
	return func(st *State) { st.Advice = adv }, nil
}

func (p *Pipeline) reportStage(ctx context.Context, s State) (Update, error) {
	last, _ := s.Series.Last()
	rep := report.Build(report.Input{
		RunID:      s.RunID,
		Symbol:     s.Request.Symbol,
		Timeframe:  s.Request.Timeframe,
		Source:     s.Series.Source,
		Provenance: s.Series.Provenance,
		Close:      last.Close,
		Score:      s.Score,
		Levels:     s.Levels,
		Features:   s.Features,
		Forecast:   s.Forecast,
		Advice:     s.Advice,
		Now:        p.now(),
	})
	return func(st *State) { st.Report = &rep }, nil
}
