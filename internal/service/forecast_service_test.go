package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stockcast/internal/advisor"
	"stockcast/internal/domain"
	"stockcast/internal/pipeline"
	"stockcast/internal/report"
)

type stubRunner struct {
	calls int
	state pipeline.State
	err   error
}

func (r *stubRunner) Run(ctx context.Context, req domain.Request) (pipeline.State, error) {
	r.calls++
	st := r.state
	st.Request = req
	if st.Report != nil {
		rep := *st.Report
		rep.Symbol = req.Symbol
		st.Report = &rep
	}
	return st, r.err
}

type stubForecastStore struct {
	inserted []domain.Report
	listed   domain.ForecastFilter
	rows     []domain.Report
	err      error
}

func (s *stubForecastStore) InsertForecast(ctx context.Context, rep domain.Report) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.inserted = append(s.inserted, rep)
	return int64(len(s.inserted)), nil
}

func (s *stubForecastStore) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.Report, error) {
	s.listed = filter
	return s.rows, s.err
}

type stubPublisher struct {
	published []domain.Report
	err       error
}

func (p *stubPublisher) PublishReport(ctx context.Context, rep domain.Report) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, rep)
	return nil
}

type stubRecommender struct {
	context string
	recs    []domain.Recommendation
	err     error
}

func (r *stubRecommender) RecommendTop(ctx context.Context, marketContext string) ([]domain.Recommendation, error) {
	r.context = marketContext
	return r.recs, r.err
}

func (r *stubRecommender) Status() advisor.Status {
	return advisor.Status{Backend: "stub", Initialized: true}
}

type stubMarket struct {
	fetched []string
	series  domain.MarketSeries
}

func (m *stubMarket) FetchSeries(ctx context.Context, symbol, period string) domain.MarketSeries {
	m.fetched = append(m.fetched, symbol+"|"+period)
	out := m.series
	out.Symbol, out.Period = symbol, period
	return out
}

func (m *stubMarket) FetchInfo(ctx context.Context, symbol string) domain.StockInfo {
	return domain.DefaultStockInfo(symbol)
}

func steadySeries(n int) domain.MarketSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, n)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = domain.Candle{Timestamp: start.AddDate(0, 0, i), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000}
	}
	return domain.MarketSeries{Source: "fixture", Provenance: domain.ProvenanceReal, Candles: candles}
}

func doneState() pipeline.State {
	return pipeline.State{
		RunID:   "run-1",
		Current: pipeline.StateDone,
		Report:  &domain.Report{RunID: "run-1", Direction: domain.DirectionUp, PriceRange: domain.PriceRange{Min: 1, Max: 2}},
	}
}

func newTestForecastService(runner Runner, opts ...ForecastOption) *ForecastService {
	return NewForecastService(testTracer(), runner, &stubMarket{series: steadySeries(40)}, &stubRecommender{}, opts...)
}

func TestPredictRejectsInvalidInputWithoutRunning(t *testing.T) {
	runner := &stubRunner{state: doneState()}
	svc := newTestForecastService(runner)

	for _, tc := range []struct{ symbol, timeframe string }{{"", "1d"}, {"AAPL", "5m"}, {"TOO-LONG-SYMBOL", "1d"}} {
		_, err := svc.Predict(context.Background(), tc.symbol, tc.timeframe)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%q/%q: expected validation error, got %v", tc.symbol, tc.timeframe, err)
		}
	}
	if runner.calls != 0 {
		t.Fatalf("expected no pipeline runs, got %d", runner.calls)
	}
}

func TestPredictStoresAndPublishes(t *testing.T) {
	store := &stubForecastStore{}
	pub := &stubPublisher{}
	svc := newTestForecastService(&stubRunner{state: doneState()}, WithForecastStore(store), WithReportPublisher(pub))

	rep, err := svc.Predict(context.Background(), " aapl ", "1d")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if rep.Symbol != "AAPL" {
		t.Fatalf("expected normalized symbol, got %s", rep.Symbol)
	}
	if len(store.inserted) != 1 || len(pub.published) != 1 {
		t.Fatalf("expected one insert and one publish, got %d and %d", len(store.inserted), len(pub.published))
	}
}

func TestPredictIgnoresSideEffectFailures(t *testing.T) {
	svc := newTestForecastService(&stubRunner{state: doneState()},
		WithForecastStore(&stubForecastStore{err: errors.New("db down")}),
		WithReportPublisher(&stubPublisher{err: errors.New("broker down")}))

	if _, err := svc.Predict(context.Background(), "AAPL", "1d"); err != nil {
		t.Fatalf("expected success despite side-effect failures, got %v", err)
	}
}

func TestPredictReturnsStageError(t *testing.T) {
	stageErr := &domain.StageError{Stage: "ANALYZE", Err: &domain.BackendUnavailableError{Backend: "remote"}}
	svc := newTestForecastService(&stubRunner{state: pipeline.State{Current: pipeline.StateError}, err: stageErr})

	_, err := svc.Predict(context.Background(), "AAPL", "1d")
	var unavailable *domain.BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestHistoryWithoutStoreIsEmpty(t *testing.T) {
	got, err := newTestForecastService(&stubRunner{}).History(context.Background(), domain.ForecastFilter{})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}
}

func TestHistoryAddsDisclaimer(t *testing.T) {
	store := &stubForecastStore{rows: []domain.Report{{RunID: "a"}, {RunID: "b"}}}
	svc := newTestForecastService(&stubRunner{}, WithForecastStore(store))

	got, err := svc.History(context.Background(), domain.ForecastFilter{Symbol: "AAPL", Limit: 5})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 || got[1].Disclaimer != report.Disclaimer {
		t.Fatalf("unexpected history %+v", got)
	}
	if store.listed.Symbol != "AAPL" || store.listed.Limit != 5 {
		t.Fatalf("filter not passed through: %+v", store.listed)
	}
}

func TestTopBuildsMarketContext(t *testing.T) {
	market := &stubMarket{series: steadySeries(40)}
	rec := &stubRecommender{recs: make([]domain.Recommendation, advisor.TopSize)}
	svc := NewForecastService(testTracer(), &stubRunner{}, market, rec)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) }

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top.Recommendations) != advisor.TopSize || top.Disclaimer != report.Disclaimer {
		t.Fatalf("unexpected top list %+v", top)
	}
	for _, idx := range MarketIndexes {
		if !strings.Contains(rec.context, idx+": close") {
			t.Fatalf("expected %s in market context %q", idx, rec.context)
		}
	}
	if !strings.HasPrefix(rec.context, "As of 2024-05-10") {
		t.Fatalf("unexpected context header %q", rec.context)
	}
	if len(market.fetched) != len(MarketIndexes) || market.fetched[0] != "SPY|1mo" {
		t.Fatalf("unexpected fetches %v", market.fetched)
	}
}

func TestSnapshotTrimsRows(t *testing.T) {
	svc := newTestForecastService(&stubRunner{})
	snap, err := svc.Snapshot(context.Background(), "msft")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Candles) != snapshotRows {
		t.Fatalf("expected %d rows, got %d", snapshotRows, len(snap.Candles))
	}
	if snap.Info.Symbol != "MSFT" || snap.Provenance != domain.ProvenanceReal {
		t.Fatalf("unexpected snapshot metadata %+v", snap.Info)
	}
	if _, ok := snap.Indicators["sma_20"]; !ok {
		t.Fatalf("expected sma_20 in indicators, got %v", snap.Indicators)
	}
	if snap.Levels.Support == 0 || snap.Levels.Resistance == 0 {
		t.Fatalf("expected levels, got %+v", snap.Levels)
	}

	if _, err := svc.Snapshot(context.Background(), "bad symbol!"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSearch(t *testing.T) {
	svc := newTestForecastService(&stubRunner{})

	got := svc.Search("a")
	if len(got) != maxSearch {
		t.Fatalf("expected %d results, got %d", maxSearch, len(got))
	}
	if got[0].Symbol != "AAPL" || got[1].Symbol != "AMZN" || got[2].Symbol != "AMD" || got[3].Symbol != "ADBE" {
		t.Fatalf("expected symbol prefix matches first, got %v", got[:4])
	}

	byName := svc.Search("zoom")
	if len(byName) != 1 || byName[0].Symbol != "ZM" {
		t.Fatalf("expected name match, got %v", byName)
	}
	if got := svc.Search("   "); len(got) != 0 {
		t.Fatalf("expected no results for blank query, got %v", got)
	}
}
