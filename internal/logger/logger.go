// Package logger provides structured logging using zerolog. It sets up
// a JSON writer with service-level context and trace ID propagation
// through context.Context — the same shape as the teacher's log/slog
// logger, ported to the library the sibling pack repo uses for the same
// concern.
package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Default holds the last logger returned by Init, for cmd/ entrypoints
// and packages that haven't had a logger threaded through them yet.
var Default = zerolog.New(os.Stdout)

// Init creates and returns a structured logger for the given service.
// The logger writes JSON to stdout with the service name embedded.
func Init(service string, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	Default = l
	return l
}

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a trace ID from a symbol and timestamp.
// Format: "{symbol}-{unixNano}" — lightweight, no UUID dependency.
func GenerateTraceID(symbol string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", symbol, ts.UnixNano())
}

// WithTrace attaches the context's trace ID (if any) to l, returning a
// logger scoped to the current operation.
func WithTrace(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	tid := TraceID(ctx)
	if tid == "" {
		return l
	}
	return l.With().Str("trace_id", tid).Logger()
}
