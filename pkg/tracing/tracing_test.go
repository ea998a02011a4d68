package tracing_test

import (
	"context"
	"testing"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/tracing"
)

func TestInitTracerDisabled(t *testing.T) {
	if err := tracing.InitTracer(configs.TracingConfig{}); err != nil {
		t.Fatalf("InitTracer: %v", err)
	}

	ctx, span := tracing.StartSpan(context.Background(), "noop")
	defer span.End()

	if ctx == nil {
		t.Fatal("nil context")
	}

	if err := tracing.ShutdownTracer(context.Background()); err != nil {
		t.Errorf("ShutdownTracer: %v", err)
	}
}

func TestInitTracerUnknownExporter(t *testing.T) {
	err := tracing.InitTracer(configs.TracingConfig{Enabled: true, ExporterType: "jaeger", SampleRate: 1})
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}
