package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetup_DisabledInstallsPropagators(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "agenda-test"})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	has := map[string]bool{}
	for _, f := range fields {
		has[f] = true
	}
	if !has["traceparent"] || !has["baggage"] {
		t.Fatalf("propagator fields = %v", fields)
	}
}
