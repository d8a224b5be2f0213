package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"stockcast/internal/advisor"
	"stockcast/internal/domain"
	"stockcast/internal/features"
	"stockcast/internal/pipeline"
	"stockcast/internal/provider"
	"stockcast/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type downProvider struct {
	calls atomic.Int32
}

func (p *downProvider) Name() string { return "down" }

func (p *downProvider) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	p.calls.Add(1)
	return domain.MarketSeries{}, errors.New("vendor down")
}

func TestRunFallsBackToSyntheticWhenVendorsFail(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	down := &downProvider{}
	market := service.NewMarketDataService(tracer, []provider.Descriptor{
		{Name: "down", Priority: 1, Provider: down},
	})
	stub := advisor.NewStub()
	handle := advisor.NewHandle(stub.Name(), func(ctx context.Context) (advisor.Backend, error) { return stub, nil }, nil)
	p := pipeline.New(tracer, market, features.NewExtractor(features.DefaultAnomalyOptions()), advisor.NewAnalyzer(tracer, handle, 0))

	req, err := domain.NewRequest("MSFT", "1w")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	state, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state.Current != pipeline.StateDone {
		t.Fatalf("expected DONE, got %s", state.Current)
	}
	if state.Report.Provenance != domain.ProvenanceSynthetic {
		t.Fatalf("expected synthetic provenance, got %s", state.Report.Provenance)
	}
	if state.Report.PriceRange.Min > state.Report.PriceRange.Max {
		t.Fatalf("expected ordered range, got %+v", state.Report.PriceRange)
	}
	if down.calls.Load() != 1 {
		t.Fatalf("expected the vendor to be tried once, got %d", down.calls.Load())
	}
}
