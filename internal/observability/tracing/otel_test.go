package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitWithoutExporter(t *testing.T) {
	cfg := DefaultConfig("x12-decode")
	cfg.OTLPEndpoint = ""

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer p.Shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "decode")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("root span should be sampled at rate 1")
	}
	if fields := otel.GetTextMapPropagator().Fields(); len(fields) == 0 {
		t.Error("propagator not installed")
	}
}

func TestResourceAttributes(t *testing.T) {
	cfg := DefaultConfig("decode-worker")
	cfg.Environment = "staging"

	res, err := newResource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	want := map[string]string{
		"service.name":           "decode-worker",
		"service.version":        "0.1.0",
		"deployment.environment": "staging",
		"telemetry.sdk.language": "go",
	}
	got := map[string]string{}
	for _, kv := range res.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSampler(t *testing.T) {
	for rate, want := range map[float64]string{1: "AlwaysOnSampler", 0: "AlwaysOffSampler", 0.25: "TraceIDRatioBased"} {
		if got := Sampler(rate).Description(); !strings.Contains(got, want) {
			t.Errorf("Sampler(%v) = %s, want %s", rate, got, want)
		}
	}
}
