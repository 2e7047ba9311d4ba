package model

import "time"

// TradeStatus is the lifecycle state of a TrackedTrade (spec §3/§4.7).
type TradeStatus string

const (
	StatusOpen            TradeStatus = "open"
	StatusBreakevenArmed  TradeStatus = "breakeven_armed"
	StatusStopped         TradeStatus = "stopped"
	StatusTPHit           TradeStatus = "tp_hit"
	StatusReversalExited  TradeStatus = "reversal_exited"
	StatusExpired         TradeStatus = "expired"
)

// IsTerminal reports whether status ends the trade's lifecycle.
func (s TradeStatus) IsTerminal() bool {
	switch s {
	case StatusStopped, StatusTPHit, StatusReversalExited, StatusExpired:
		return true
	default:
		return false
	}
}

// TrackedTrade augments a Signal with the mutable lifecycle state the
// trade tracker (C7) owns exclusively (spec §3/§4.7).
type TrackedTrade struct {
	Signal Signal `json:"signal"`

	Status            TradeStatus `json:"status"`
	PeakPrice         float64     `json:"peak_price"` // max favorable excursion
	LastCheckedAt     time.Time   `json:"last_checked_at"`
	BreakevenAnnounced bool       `json:"breakeven_announced"`

	// InternalStopLoss is the SL the tracker actually evaluates against;
	// it starts equal to Signal.StopLoss and moves to entry on breakeven.
	InternalStopLoss float64 `json:"internal_stop_loss"`

	OpenedAt time.Time `json:"opened_at"`
}

// NewTrackedTrade opens a trade for a freshly emitted signal.
func NewTrackedTrade(sig Signal, now time.Time) *TrackedTrade {
	return &TrackedTrade{
		Signal:           sig,
		Status:           StatusOpen,
		PeakPrice:        sig.EntryPrice,
		LastCheckedAt:    now,
		InternalStopLoss: sig.StopLoss,
		OpenedAt:         now,
	}
}

// SerializableTrade is the msgpack/JSON-friendly view of a TrackedTrade
// used only for the shutdown "unclosed trades" report (spec §9 Design
// Notes: "provide a serialization-friendly representation of open
// trades so a future persistence layer is a pure additive collaborator").
type SerializableTrade struct {
	SignalID     string      `msgpack:"signal_id" json:"signal_id"`
	Symbol       string      `msgpack:"symbol" json:"symbol"`
	Timeframe    Timeframe   `msgpack:"timeframe" json:"timeframe"`
	Direction    Direction   `msgpack:"direction" json:"direction"`
	StrategyName string      `msgpack:"strategy_name" json:"strategy_name"`
	EntryPrice   float64     `msgpack:"entry_price" json:"entry_price"`
	StopLoss     float64     `msgpack:"stop_loss" json:"stop_loss"`
	TakeProfit   float64     `msgpack:"take_profit" json:"take_profit"`
	Status       TradeStatus `msgpack:"status" json:"status"`
	PeakPrice    float64     `msgpack:"peak_price" json:"peak_price"`
	OpenedAt     time.Time   `msgpack:"opened_at" json:"opened_at"`
}

// ToSerializable projects a TrackedTrade into its persistence-friendly view.
func (t *TrackedTrade) ToSerializable() SerializableTrade {
	return SerializableTrade{
		SignalID:     t.Signal.ID,
		Symbol:       t.Signal.Symbol,
		Timeframe:    t.Signal.Timeframe,
		Direction:    t.Signal.Direction,
		StrategyName: t.Signal.StrategyName,
		EntryPrice:   t.Signal.EntryPrice,
		StopLoss:     t.Signal.StopLoss,
		TakeProfit:   t.Signal.TakeProfit,
		Status:       t.Status,
		PeakPrice:    t.PeakPrice,
		OpenedAt:     t.OpenedAt,
	}
}
