package tracing

import (
	"context"
	"testing"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	tp, tracer, err := InitTracer(context.Background(), "")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tracer.Start(context.Background(), "test-span")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a recording span context")
	}
	span.End()
}

func TestInitTracerWithEndpoint(t *testing.T) {
	tp, _, err := InitTracer(context.Background(), "localhost:4317")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Logf("shutdown without collector: %v", err)
	}
}
