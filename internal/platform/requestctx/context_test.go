package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatal("expected noop logger")
	}
	if Logger(WithLogger(context.Background(), nil)) != NoopLogger() {
		t.Fatal("expected noop logger for nil input")
	}
}

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("parent_id", "mesa"))

	Logger(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["parent_id"]; got != "mesa" {
		t.Fatalf("expected parent_id field, got %v", got)
	}
}

func TestTrace(t *testing.T) {
	if TraceID(context.Background()) != "" {
		t.Fatal("expected empty trace id")
	}
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", ProjectID: "santis"})
	info, ok := Trace(ctx)
	if !ok || info.TraceID != "abc" || TraceID(ctx) != "abc" {
		t.Fatalf("unexpected trace info %+v", info)
	}
}
