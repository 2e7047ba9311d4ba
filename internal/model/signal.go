package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Direction is the side of an emitted signal.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Signal is a candidate trade idea emitted by a strategy and, once it
// survives the quality filter, dispatched to outbound channels (spec §3).
type Signal struct {
	ID               string         `json:"id"`
	Symbol           string         `json:"symbol"`
	Timeframe        Timeframe      `json:"timeframe"`
	Direction        Direction      `json:"direction"`
	StrategyName     string         `json:"strategy_name"`
	EntryPrice       float64        `json:"entry_price"`
	StopLoss         float64        `json:"stop_loss"`
	TakeProfit       float64        `json:"take_profit"`
	RiskReward       float64        `json:"risk_reward"`
	Confidence       int            `json:"confidence"` // 1..5
	ConfluenceFactors map[string]bool `json:"confluence_factors"`
	Reasoning        string         `json:"reasoning"`
	IndicatorsSnapshot EnrichedCandle `json:"indicators_snapshot"`
	StrategyMetadata map[string]any `json:"strategy_metadata"`
	CreatedAt        time.Time      `json:"created_at"`

	// BypassTagged marks a signal emitted while the quality filter's
	// bypass mode was active (spec §4.6), so downstream consumers can
	// distinguish it.
	BypassTagged bool `json:"bypass_tagged"`
}

// NewSignal constructs a Signal, computing RiskReward and stamping ID/
// CreatedAt. Panics if the caller violates the long/short price ordering
// invariant — that is a programmer error in a strategy, not user input.
func NewSignal(symbol string, tf Timeframe, dir Direction, strategy string, entry, sl, tp float64, now time.Time) *Signal {
	if err := validatePriceOrdering(dir, entry, sl, tp); err != nil {
		panic(fmt.Sprintf("model.NewSignal: %v", err))
	}
	rr := math.Abs(tp-entry) / math.Abs(entry-sl)
	return &Signal{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		Timeframe:         tf,
		Direction:         dir,
		StrategyName:      strategy,
		EntryPrice:        entry,
		StopLoss:          sl,
		TakeProfit:        tp,
		RiskReward:        rr,
		ConfluenceFactors: map[string]bool{},
		StrategyMetadata:  map[string]any{},
		CreatedAt:         now,
	}
}

// validatePriceOrdering enforces spec §3's Signal invariant:
// long: stop_loss < entry < take_profit; short: stop_loss > entry > take_profit.
func validatePriceOrdering(dir Direction, entry, sl, tp float64) error {
	switch dir {
	case Long:
		if !(sl < entry && entry < tp) {
			return fmt.Errorf("long signal requires sl < entry < tp, got sl=%v entry=%v tp=%v", sl, entry, tp)
		}
	case Short:
		if !(sl > entry && entry > tp) {
			return fmt.Errorf("short signal requires sl > entry > tp, got sl=%v entry=%v tp=%v", sl, entry, tp)
		}
	default:
		return fmt.Errorf("unknown direction %q", dir)
	}
	return nil
}

// MetFactorCount returns how many confluence factors evaluated true.
func (s *Signal) MetFactorCount() int {
	n := 0
	for _, met := range s.ConfluenceFactors {
		if met {
			n++
		}
	}
	return n
}
