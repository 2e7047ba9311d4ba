package strategy

import (
	"math"

	"github.com/signalforge/scanner/internal/model"
)

func init() { register(keyLevelBreakRetestDetector{}) }

type keyLevelBreakRetestDetector struct{}

func (keyLevelBreakRetestDetector) Name() Name { return KeyLevelBreakRetest }

const (
	retestWindowMin = 5
	retestWindowMax = 10
)

// Detect implements spec §4.4 S8: find a recent high-volume break of a
// key level (prior day high or low, or a round number; prior-week
// levels are not used), then
// confirm the current bar is a successful retest of that level within
// the allowed window.
func (d keyLevelBreakRetestDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	c := in.Buf.Candles
	last := c[n-1]
	if last.ATR <= 0 {
		return nil, nil
	}

	rawCandles := make([]model.Candle, len(in.Buf.Candles))
	for i, ec := range in.Buf.Candles {
		rawCandles[i] = ec.Candle
	}
	levels := keyLevels(rawCandles, in.Params.RoundNumberUnit)
	if len(levels) == 0 {
		return nil, nil
	}

	const baseVolumeRatioMin = 1.5
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	tol := in.Params.LevelTolerancePct

	for _, level := range levels {
		for back := retestWindowMin; back <= retestWindowMax; back++ {
			breakIdx := n - 1 - back
			if breakIdx < 1 {
				continue
			}
			brk := c[breakIdx]
			prevBrk := c[breakIdx-1]
			if brk.VolumeRatio < volMin {
				continue
			}

			brokeUp := prevBrk.Close <= level && brk.Close > level
			brokeDown := prevBrk.Close >= level && brk.Close < level
			if !brokeUp && !brokeDown {
				continue
			}

			// Reject if any bar between the break and now has already
			// failed the retest (closed back through the level).
			failed := false
			for i := breakIdx + 1; i < n-1; i++ {
				if brokeUp && c[i].Close < level {
					failed = true
					break
				}
				if brokeDown && c[i].Close > level {
					failed = true
					break
				}
			}
			if failed {
				continue
			}

			dist := math.Abs(last.Close-level) / level
			if dist > tol {
				continue
			}

			if brokeUp && last.Close > level {
				entry := last.Close
				sl := level - 0.5*last.ATR
				tp := entry + 2.0*last.ATR
				return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
					"retest held above a broken key level", 4), nil
			}
			if brokeDown && last.Close < level {
				entry := last.Close
				sl := level + 0.5*last.ATR
				tp := entry - 2.0*last.ATR
				return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
					"retest held below a broken key level", 4), nil
			}
		}
	}
	return nil, nil
}

// keyLevels collects the prior UTC day's high/low and, when roundUnit
// is positive, the round-number level nearest the current price.
// Prior-week highs and lows are not collected.
func keyLevels(candles []model.Candle, roundUnit float64) []float64 {
	if len(candles) == 0 {
		return nil
	}
	last := candles[len(candles)-1]

	dayStart, dayEnd, ok := dayWindow(candles, 0, 24)
	var levels []float64
	if ok {
		priorDay := candles[dayStart:dayEnd]
		if len(priorDay) > 0 {
			hi, lo := priorDay[0].High, priorDay[0].Low
			for _, c := range priorDay {
				if c.High > hi {
					hi = c.High
				}
				if c.Low < lo {
					lo = c.Low
				}
			}
			levels = append(levels, hi, lo)
		}
	}
	if roundUnit > 0 {
		if rn, _, ok := NearestRoundNumber(last.Close, roundUnit); ok {
			levels = append(levels, rn)
		}
	}
	return levels
}
