package strategy

import (
	"time"

	"github.com/signalforge/scanner/internal/model"
)

// minHistory and minHistoryTrend are spec §4.4's shared prologue
// history floors: 60 rows for most detectors, 200 for the two
// trend-following ones (S2, S10) that need a long lookback to confirm
// an established trend before pulling back.
const (
	minHistory      = 60
	minHistoryTrend = 200
)

// session buckets a timeframe into the three hold-period classes S1 and
// S11 scale their take-profit distance by.
type session string

const (
	sessionScalp session = "scalp"
	sessionDay   session = "day"
	sessionSwing session = "swing"
)

func sessionOf(tf model.Timeframe) session {
	switch tf {
	case model.TF1m, model.TF5m:
		return sessionScalp
	case model.TF15m, model.TF1h:
		return sessionDay
	default:
		return sessionSwing
	}
}

// bullishCandle/bearishCandle classify a candle's own close-vs-open
// direction, used by several detectors as a "reversal/confirmation bar".
func bullishCandle(c model.Candle) bool { return c.Close > c.Open }
func bearishCandle(c model.Candle) bool { return c.Close < c.Open }

// hasMinHistory reports whether buf carries enough enriched rows and a
// critically-valid last candle for a detector to run at all.
func hasMinHistory(buf model.EnrichedBuffer, n int) bool {
	if len(buf.Candles) < n {
		return false
	}
	last, ok := buf.Last()
	return ok && last.CriticalFieldsValid()
}

// cloudWidth returns the spread between the three fast EMAs, the
// "narrow band" S4 waits to compress before a breakout.
func cloudWidth(c model.EnrichedCandle) float64 {
	hi := c.EMAFast
	lo := c.EMAFast
	for _, v := range []float64{c.EMASlow, c.EMATrend} {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	return hi - lo
}

// now is a test seam every detector uses to stamp Signal.CreatedAt.
var now = time.Now

// buildSignal fills in the plumbing every detector needs around
// model.NewSignal: confidence, reasoning, and the indicator snapshot the
// signal fired against.
func buildSignal(in Input, name Name, dir model.Direction, entry, sl, tp float64, last model.EnrichedCandle, reasoning string, confidence int) *model.Signal {
	sig := model.NewSignal(in.Buf.Symbol, in.Buf.Timeframe, dir, string(name), entry, sl, tp, now())
	sig.Reasoning = reasoning
	sig.Confidence = confidence
	sig.IndicatorsSnapshot = last
	return sig
}

// dayWindow returns the index range [start, end) of candles whose
// timestamp falls within [startHour, endHour) UTC of the most recent
// completed occurrence of that window, used by S12's Asian-range
// session box.
func dayWindow(candles []model.Candle, startHour, endHour int) (start, end int, ok bool) {
	if len(candles) == 0 {
		return 0, 0, false
	}
	last := candles[len(candles)-1].TS.UTC()
	sessionDate := last.Truncate(24 * time.Hour)
	if last.Hour() < endHour {
		sessionDate = sessionDate.Add(-24 * time.Hour)
	}
	winStart := sessionDate.Add(time.Duration(startHour) * time.Hour)
	winEnd := sessionDate.Add(time.Duration(endHour) * time.Hour)

	start, end = -1, -1
	for i, c := range candles {
		ts := c.TS.UTC()
		if !ts.Before(winStart) && ts.Before(winEnd) {
			if start == -1 {
				start = i
			}
			end = i + 1
		}
	}
	if start == -1 {
		return 0, 0, false
	}
	return start, end, true
}
