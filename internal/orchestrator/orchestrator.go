// Package orchestrator selects and prioritizes the strategy detectors
// for the current market regime (spec §4.5), generalizing the
// teacher's flat Engine.strategies fan-out into a regime-keyed priority
// table the driver walks in order.
package orchestrator

import (
	"fmt"

	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/strategy"
)

// priorityTable maps a regime to the detector names preferred for it, in
// firing-priority order (spec §4.5's table).
var priorityTable = map[string][]strategy.Name{
	"strong_trend": {
		strategy.ConfluenceADXRSI, strategy.TrendAlignment,
		strategy.KeyLevelBreakRetest, strategy.TrendPullback,
	},
	"ranging": {
		strategy.SRBounce, strategy.MeanReversion, strategy.FibRetracement,
	},
	"high_volatility": {
		strategy.ConfluenceADXRSI, strategy.MomentumShift, strategy.EMACloudBreakout,
	},
	"low_volatility": {
		strategy.MeanReversion, strategy.SRBounce, strategy.FibRetracement,
	},
}

// Select returns the ordered detector list for regimeKey, drawn from the
// priority table and filtered to enabledStrategies (nil/empty means all
// twelve are enabled). Detectors not named in the priority table for
// this regime are appended afterward, in their registry order, so every
// enabled strategy still gets a turn on a tick the table doesn't prefer.
func Select(regimeKey string, enabled map[strategy.Name]bool) []strategy.Detector {
	all := strategy.Registry()
	byName := make(map[strategy.Name]strategy.Detector, len(all))
	for _, d := range all {
		byName[d.Name()] = d
	}

	isEnabled := func(n strategy.Name) bool {
		if len(enabled) == 0 {
			return true
		}
		return enabled[n]
	}

	seen := make(map[strategy.Name]bool)
	out := make([]strategy.Detector, 0, len(all))

	for _, n := range priorityTable[regimeKey] {
		if d, ok := byName[n]; ok && isEnabled(n) && !seen[n] {
			out = append(out, d)
			seen[n] = true
		}
	}
	for _, d := range all {
		if !seen[d.Name()] && isEnabled(d.Name()) {
			out = append(out, d)
			seen[d.Name()] = true
		}
	}
	return out
}

// RegimeKey maps the scanner's regime/condition classification onto a
// priority-table key. "strong trend" and "high volatility" overlap in
// spec's table; volatility takes priority since a strong trend inside a
// high-volatility regime still needs the volatility-aware detectors.
func RegimeKey(isStrongTrend, isHighVol, isLowVol, isRanging bool) string {
	switch {
	case isHighVol:
		return "high_volatility"
	case isLowVol:
		return "low_volatility"
	case isStrongTrend:
		return "strong_trend"
	case isRanging:
		return "ranging"
	default:
		return ""
	}
}

// Conflict is recorded when two strategies fire opposite-direction
// signals on the same tick and tie on confidence (spec §4.5).
type Conflict struct {
	StrategyA, StrategyB string
	Confidence           int
}

// AttemptErr pairs a detector's name with the error it returned, so the
// driver can record a per-strategy diagnostic without aborting the tick.
type AttemptErr struct {
	Strategy string
	Err      error
}

// safeDetect calls d.Detect and recovers a panic into a StrategyError
// (spec §7: a strategy misfire is "caught per-strategy, continue others",
// never allowed to take down the tick). model.NewSignal panics on a
// degenerate price ordering — e.g. a zero-ATR bar collapsing stop and
// entry to the same price — which is exactly this case.
func safeDetect(d strategy.Detector, in strategy.Input) (sig *model.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			err = fmt.Errorf("strategy %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(in)
}

// Run evaluates detectors, in priority order, against in and resolves
// spec §4.5's conflict rule: the first strategy to fire wins the tick,
// except that an opposite-direction signal at the same tick forces a
// confidence comparison — the higher confidence wins, and an exact tie
// discards both and records a Conflict instead of emitting anything.
// Per-detector errors are collected but do not stop the scan.
func Run(detectors []strategy.Detector, in strategy.Input) (*model.Signal, []Conflict, []AttemptErr) {
	var longs, shorts []*model.Signal
	var errs []AttemptErr

	for _, d := range detectors {
		sig, err := safeDetect(d, in)
		if err != nil {
			errs = append(errs, AttemptErr{Strategy: string(d.Name()), Err: err})
			continue
		}
		if sig == nil {
			continue
		}
		if sig.Direction == model.Long {
			longs = append(longs, sig)
		} else {
			shorts = append(shorts, sig)
		}
	}

	// The first detector to fire in priority order wins its own
	// direction outright; confidence only matters when longs and shorts
	// disagree on the same tick.
	var bestLong, bestShort *model.Signal
	if len(longs) > 0 {
		bestLong = longs[0]
	}
	if len(shorts) > 0 {
		bestShort = shorts[0]
	}

	switch {
	case bestLong == nil && bestShort == nil:
		return nil, nil, errs
	case bestLong == nil:
		return bestShort, nil, errs
	case bestShort == nil:
		return bestLong, nil, errs
	case bestLong.Confidence == bestShort.Confidence:
		conflict := Conflict{
			StrategyA:  bestLong.StrategyName,
			StrategyB:  bestShort.StrategyName,
			Confidence: bestLong.Confidence,
		}
		return nil, []Conflict{conflict}, errs
	case bestLong.Confidence > bestShort.Confidence:
		return bestLong, nil, errs
	default:
		return bestShort, nil, errs
	}
}
