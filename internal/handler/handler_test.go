package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockcast/internal/advisor"
	"stockcast/internal/chart"
	"stockcast/internal/domain"
	"stockcast/internal/pipeline"
	"stockcast/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct {
	err     error
	lastReq domain.Request
	calls   int
}

func (s *stubRunner) Run(ctx context.Context, req domain.Request) (pipeline.State, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return pipeline.State{Request: req, Current: pipeline.StateError, Err: s.err}, s.err
	}
	rep := domain.Report{
		RunID:      "run-1",
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Direction:  domain.DirectionUp,
		Confidence: domain.ConfidenceMedium,
		Signals:    []string{},
		Provenance: domain.ProvenanceReal,
	}
	return pipeline.State{Request: req, Current: pipeline.StateDone, Report: &rep}, nil
}

type stubMarket struct {
	candles int
}

func (m stubMarket) FetchSeries(ctx context.Context, symbol, period string) domain.MarketSeries {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, m.candles)
	for i := range candles {
		price := 100 + float64(i%7)
		candles[i] = domain.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price - 0.5,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1_000_000,
		}
	}
	return domain.MarketSeries{Symbol: symbol, Period: period, Source: "stub", Provenance: domain.ProvenanceReal, Candles: candles}
}

func (m stubMarket) FetchInfo(ctx context.Context, symbol string) domain.StockInfo {
	return domain.DefaultStockInfo(symbol)
}

type stubRecommender struct {
	err error
}

func (s stubRecommender) RecommendTop(ctx context.Context, marketContext string) ([]domain.Recommendation, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Recommendation, 0, advisor.TopSize)
	for _, l := range advisor.TopUniverse {
		out = append(out, advisor.DefaultRecommendation(l))
	}
	return out, nil
}

func (s stubRecommender) Status() advisor.Status {
	return advisor.Status{Backend: "stub", Initialized: true, InitCount: 1}
}

type stubStore struct {
	lastFilter domain.ForecastFilter
}

func (s *stubStore) InsertForecast(ctx context.Context, rep domain.Report) (int64, error) {
	return 1, nil
}

func (s *stubStore) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.Report, error) {
	s.lastFilter = filter
	return []domain.Report{{RunID: "run-1", Symbol: "AAPL", Signals: []string{}}}, nil
}

func newTestHandler(runner *stubRunner, rec stubRecommender, store *stubStore) (*Handler, *gin.Engine) {
	tracer := trace.NewNoopTracerProvider().Tracer("handler-test")
	var opts []service.ForecastOption
	if store != nil {
		opts = append(opts, service.WithForecastStore(store))
	}
	svc := service.NewForecastService(tracer, runner, stubMarket{candles: 40}, rec, opts...)
	h := New(tracer, svc, chart.NewRenderer())
	router := gin.New()
	h.RegisterRoutes(router)
	return h, router
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload["error"]
}

func TestHealth(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPredictDefaultsTimeframe(t *testing.T) {
	runner := &stubRunner{}
	_, router := newTestHandler(runner, stubRecommender{}, nil)

	w := doRequest(router, http.MethodPost, "/api/predict", []byte(`{"symbol":"aapl"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.lastReq.Symbol != "AAPL" || runner.lastReq.Timeframe != domain.Timeframe1D {
		t.Fatalf("unexpected request %+v", runner.lastReq)
	}
	var rep domain.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Symbol != "AAPL" || rep.Direction != domain.DirectionUp {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestPredictErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "bad timeframe", body: `{"symbol":"AAPL","timeframe":"2h"}`, status: http.StatusBadRequest},
		{name: "bad symbol", body: `{"symbol":"NOT_A_TICKER!"}`, status: http.StatusBadRequest},
		{name: "missing symbol", body: `{}`, status: http.StatusBadRequest},
		{
			name:   "backend unavailable",
			body:   `{"symbol":"AAPL"}`,
			err:    &domain.StageError{Stage: "ANALYZE", Err: &domain.BackendUnavailableError{Backend: "remote", Err: errors.New("no key")}},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "stage failure",
			body:   `{"symbol":"AAPL"}`,
			err:    &domain.StageError{Stage: "FEATURE", Err: errors.New("boom")},
			status: http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubRunner{err: tc.err}
			_, router := newTestHandler(runner, stubRecommender{}, nil)
			w := doRequest(router, http.MethodPost, "/api/predict", []byte(tc.body))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
			if decodeError(t, w) == "" {
				t.Fatal("expected error message")
			}
			if tc.err == nil && runner.calls != 0 {
				t.Fatal("expected invalid request to skip the pipeline")
			}
		})
	}
}

func TestGetTopStocks(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/api/top-stocks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var top domain.TopList
	if err := json.Unmarshal(w.Body.Bytes(), &top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(top.Recommendations) != advisor.TopSize || top.Disclaimer == "" {
		t.Fatalf("unexpected top list %+v", top)
	}
}

func TestGetTopStocksBackendDown(t *testing.T) {
	rec := stubRecommender{err: &domain.BackendUnavailableError{Backend: "local"}}
	_, router := newTestHandler(&stubRunner{}, rec, nil)
	w := doRequest(router, http.MethodGet, "/api/top-stocks", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGetStock(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/api/stock/msft", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Info.Symbol != "MSFT" || len(snap.Candles) != 30 {
		t.Fatalf("unexpected snapshot: symbol %s, %d candles", snap.Info.Symbol, len(snap.Candles))
	}

	w = doRequest(router, http.MethodGet, "/api/stock/bad!sym", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetStockChart(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/api/stock/AAPL/chart?timeframe=1w", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != chart.MimePNG {
		t.Fatalf("expected png, got %s", ct)
	}
	if w.Header().Get("X-Data-Provenance") != string(domain.ProvenanceReal) {
		t.Fatalf("missing provenance header")
	}

	w = doRequest(router, http.MethodGet, "/api/stock/AAPL/chart?timeframe=1y", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timeframe, got %d", w.Code)
	}
}

func TestSearchStocks(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/api/search/micro", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Results []domain.TickerListing `json:"results"`
		Count   int                    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count == 0 || payload.Results[0].Symbol != "MSFT" {
		t.Fatalf("unexpected results %+v", payload.Results)
	}
}

func TestGetForecasts(t *testing.T) {
	store := &stubStore{}
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, store)

	w := doRequest(router, http.MethodGet, "/api/forecasts?symbol=aapl&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.lastFilter.Symbol != "AAPL" || store.lastFilter.Limit != 5 {
		t.Fatalf("unexpected filter %+v", store.lastFilter)
	}

	for _, q := range []string{"?limit=0", "?limit=201", "?limit=abc", "?symbol=%21%21"} {
		w = doRequest(router, http.MethodGet, "/api/forecasts"+q, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetLLMStatus(t *testing.T) {
	_, router := newTestHandler(&stubRunner{}, stubRecommender{}, nil)
	w := doRequest(router, http.MethodGet, "/api/llm-status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st advisor.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Backend != "stub" || !st.Initialized {
		t.Fatalf("unexpected status %+v", st)
	}
}
