package model

import "context"

// ── Port interfaces ──
// These decouple the scanner driver from concrete data-source, dispatch,
// and persistence implementations, mirroring the teacher's
// interface-per-concern decoupling idiom (internal/model/ports.go).

// CandleSource yields fresh candle buffers for (symbol, timeframe), with
// automatic provider fallback (spec §4.1).
type CandleSource interface {
	// Connect establishes upstream provider session(s).
	Connect(ctx context.Context) error

	// Fetch returns the last count candles for (symbol, timeframe) and
	// whether the result is fresh (spec §4.1 freshness contract).
	Fetch(ctx context.Context, symbol string, tf Timeframe, count int) (Buffer, bool, error)

	// Close releases provider sessions.
	Close() error
}

// Sink is the outbound dispatch contract (spec §6 "Sink.accept(event)").
type Sink interface {
	// Accept delivers one structured event. Implementations must not
	// block indefinitely; spec §5 requires bounded capacity with
	// diagnostics-first backpressure.
	Accept(ctx context.Context, ev Event) error

	// Close flushes and releases the sink's resources.
	Close() error
}

// ReportWriter persists append-only scan/diagnostic rows (spec §6
// "Persisted artifacts"). Never read back by the core.
type ReportWriter interface {
	WriteScanRow(ctx context.Context, row ScanRow) error
	WriteDiagnosticReport(ctx context.Context, report DiagnosticReport) error
	Close() error
}

// ScanRow is one row of the append-only scan report: one per tick, with
// the indicator snapshot and the signal-or-none outcome (spec §6).
type ScanRow struct {
	Symbol        string
	Timeframe     Timeframe
	At            int64 // unix seconds
	Condition     MarketCondition
	EmittedSignal *Signal
	SkipReason    string // non-empty if the tick was skipped
}
