package model

import "time"

// EventKind discriminates the structured records pushed to the dispatch
// sink (spec §6 "Outbound dispatch sink").
type EventKind string

const (
	EventSignalEmitted     EventKind = "signal_emitted"
	EventTradeEvent        EventKind = "trade_event"
	EventDiagnosticReport  EventKind = "diagnostic_report"
	EventOperationalAlert  EventKind = "operational_alert"
)

// TradeEventKind is the kind field of a TradeEvent.
type TradeEventKind string

const (
	TradeEventBreakeven TradeEventKind = "breakeven"
	TradeEventStop      TradeEventKind = "stop"
	TradeEventTP        TradeEventKind = "tp"
	TradeEventReversal  TradeEventKind = "reversal"
	TradeEventExpired   TradeEventKind = "expired"
)

// TradeEvent is emitted by the trade tracker whenever a tracked trade's
// lifecycle advances (spec §4.7/§6). The tracker never formats a
// human-facing message — that's an external Sink's job.
type TradeEvent struct {
	TradeID string         `json:"trade_id"`
	Kind    TradeEventKind `json:"kind"`
	Price   float64        `json:"price"`
	PnLPct  float64        `json:"pnl_pct"`
	Note    string         `json:"note"`
	At      time.Time      `json:"at"`
}

// AlertLevel is the severity of an OperationalAlert.
type AlertLevel string

const (
	AlertInfo  AlertLevel = "info"
	AlertWarn  AlertLevel = "warn"
	AlertError AlertLevel = "error"
)

// OperationalAlert is a non-trading operational notice (spec §6/§7),
// e.g. repeated data-source failures or a dropped dispatch event.
type OperationalAlert struct {
	Level AlertLevel `json:"level"`
	Text  string     `json:"text"`
	At    time.Time  `json:"at"`
}

// DiagnosticReport is the periodic summary the diagnostic recorder
// produces (spec §3/§4.8).
type DiagnosticReport struct {
	Runtime             time.Duration  `json:"runtime"`
	LastSignalAt        time.Time      `json:"last_signal_at"`
	AttemptsByStrategy  map[string]int `json:"attempts_by_strategy"`
	SuccessesByStrategy map[string]int `json:"successes_by_strategy"`
	RejectionsByReason  map[string]int `json:"rejections_by_reason"`
	DataQualityByIssue  map[string]int `json:"data_quality_by_issue"`
	Recommendations     []string       `json:"recommendations"`

	// ProcessRSSBytes/Goroutines are an additive resource snapshot (see
	// SPEC_FULL.md §11); zero when the snapshot could not be taken.
	ProcessRSSBytes uint64 `json:"process_rss_bytes"`
	Goroutines      int    `json:"goroutines"`
}

// Event is the envelope all dispatch sink implementations accept
// (spec §6 "Sink.accept(event)").
type Event struct {
	Kind     EventKind
	Signal   *Signal
	Trade    *TradeEvent
	Report   *DiagnosticReport
	Alert    *OperationalAlert
}
