package redpanda

import (
	"context"
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestTopicForTransaction(t *testing.T) {
	tests := []struct {
		code  string
		topic string
		ok    bool
	}{
		{"835", TopicRemittanceDecoded, true},
		{"837", TopicClaimsDecoded, true},
		{"270", "", false},
	}
	for _, tt := range tests {
		got, ok := TopicForTransaction(tt.code)
		if got != tt.topic || ok != tt.ok {
			t.Errorf("TopicForTransaction(%q) = %q, %v", tt.code, got, ok)
		}
	}
}

func TestDefaultTopicConfigs(t *testing.T) {
	seen := map[string]TopicConfig{}
	for _, c := range DefaultTopicConfigs() {
		seen[c.Name] = c
	}
	for _, name := range []string{TopicInterchangesRaw, TopicRemittanceDecoded, TopicClaimsDecoded, TopicStructuralErrors, TopicDeadLetter} {
		if _, ok := seen[name]; !ok {
			t.Errorf("missing topic %s", name)
		}
	}
	if v := seen[TopicInterchangesRaw].Configs["max.message.bytes"]; v == nil || *v != "67108864" {
		t.Error("raw topic should allow large interchanges")
	}
	if _, ok := seen[TopicClaimsDecoded].Configs["max.message.bytes"]; ok {
		t.Error("configs must not be shared between topics")
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	rec := &kgo.Record{Topic: TopicRemittanceDecoded}
	InjectTraceContext(ctx, rec)
	InjectTraceContext(ctx, rec)
	if len(rec.Headers) != 1 || rec.Headers[0].Key != "traceparent" {
		t.Fatalf("headers = %+v", rec.Headers)
	}

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), rec))
	if got.TraceID() != span.SpanContext().TraceID() || !got.IsRemote() {
		t.Errorf("extracted %v, want trace %v", got.TraceID(), span.SpanContext().TraceID())
	}
}
