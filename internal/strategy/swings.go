package strategy

import "github.com/signalforge/scanner/internal/model"

// SwingPoint is a confirmed local high or low (spec §4.4 S7/S8/S10 share
// this fractal-swing concept across the Fibonacci, S/R bounce, and
// key-level-break-retest detectors).
type SwingPoint struct {
	Index int
	Price float64
	High  bool // true = swing high, false = swing low
}

// FindSwings scans candles for 5-bar fractals: index i is a swing high
// if its High is the strict maximum of the 2 candles on either side
// (symmetric low for swing lows). Only interior indices can be
// confirmed, since a fractal needs both neighbors.
func FindSwings(candles []model.EnrichedCandle) []SwingPoint {
	var out []SwingPoint
	n := len(candles)
	for i := 2; i < n-2; i++ {
		h := candles[i].High
		if h > candles[i-1].High && h > candles[i-2].High &&
			h > candles[i+1].High && h > candles[i+2].High {
			out = append(out, SwingPoint{Index: i, Price: h, High: true})
		}
		l := candles[i].Low
		if l < candles[i-1].Low && l < candles[i-2].Low &&
			l < candles[i+1].Low && l < candles[i+2].Low {
			out = append(out, SwingPoint{Index: i, Price: l, High: false})
		}
	}
	return out
}

// LastSwing returns the most recent confirmed swing of the given kind
// (high=true for swing highs), or ok=false if none exists.
func LastSwing(swings []SwingPoint, high bool) (SwingPoint, bool) {
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].High == high {
			return swings[i], true
		}
	}
	return SwingPoint{}, false
}

// LastSwingPair returns the most recent swing-low-then-swing-high (or
// reverse) pair, used to anchor a Fibonacci retracement to the latest
// completed leg.
func LastSwingPair(swings []SwingPoint) (low, high SwingPoint, ok bool) {
	if len(swings) < 2 {
		return
	}
	for i := len(swings) - 1; i > 0; i-- {
		a, b := swings[i-1], swings[i]
		if a.High != b.High {
			if a.High {
				return b, a, true
			}
			return a, b, true
		}
	}
	return
}
