package telemetry

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "http://127.0.0.1:4318/v1/traces")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, span := Tracer("test").Start(context.Background(), "unit")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span once a provider is registered")
	}
	span.End()

	// Nothing listens on the endpoint, so only bound the flush.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestTracerBeforeSetup(t *testing.T) {
	if Tracer("server") == nil {
		t.Fatal("Tracer() returned nil")
	}
}
