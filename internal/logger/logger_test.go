package logger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	l := Init("test-service", zerolog.InfoLevel)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", l.GetLevel())
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if tid := TraceID(ctx); tid != "" {
		t.Errorf("expected empty trace id, got %q", tid)
	}

	ctx = WithTraceID(ctx, "test-trace-123")
	if tid := TraceID(ctx); tid != "test-trace-123" {
		t.Errorf("expected 'test-trace-123', got %q", tid)
	}
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("BTCUSDT", ts)

	if tid == "" {
		t.Fatal("expected non-empty trace id")
	}
	if !strings.HasPrefix(tid, "BTCUSDT-") {
		t.Errorf("expected trace id to start with 'BTCUSDT-', got %s", tid)
	}
	if !strings.Contains(tid, "123456789") {
		t.Errorf("expected trace id to contain nanoseconds, got %s", tid)
	}
}

func TestWithTrace(t *testing.T) {
	ctx := context.Background()
	l := Init("test-service", zerolog.InfoLevel)

	scoped := WithTrace(ctx, l)
	if scoped.GetLevel() != l.GetLevel() {
		t.Fatal("expected WithTrace to preserve the base logger when no trace id is set")
	}

	ctx = WithTraceID(ctx, "abc-123")
	scoped = WithTrace(ctx, l)
	if scoped.GetLevel() != l.GetLevel() {
		t.Fatal("expected WithTrace to preserve level")
	}
}
