package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(trendPullbackDetector{}) }

type trendPullbackDetector struct{}

func (trendPullbackDetector) Name() Name { return TrendPullback }

const trendSwingCount = 3

// Detect implements spec §4.4 S10: an established trend (a run of
// higher highs/lows, or the symmetric down-trend), EMAs aligned, a
// shallow pullback toward ema_slow, and no consolidation in the bars
// just before it.
func (d trendPullbackDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistoryTrend) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	c := in.Buf.Candles
	last := c[n-1]
	if last.ATR <= 0 {
		return nil, nil
	}

	if atrDeclining3(c) {
		return nil, nil
	}

	swings := FindSwings(c)
	longTrend := establishedTrend(swings, true)
	shortTrend := establishedTrend(swings, false)

	low, high, okLeg := LastSwingPair(swings)
	if !okLeg {
		return nil, nil
	}
	legSpan := high.Price - low.Price
	if legSpan <= 0 {
		return nil, nil
	}

	switch {
	case longTrend && last.EMAFast > last.EMASlow && last.EMASlow > last.EMATrend:
		retracement := (high.Price - last.Close) / legSpan
		if retracement > in.Params.PullbackMaxRatio {
			return nil, nil
		}
		if last.Low > last.EMASlow || last.Close < last.EMASlow {
			return nil, nil
		}
		entry := last.Close
		sl := last.EMASlow - 1.0*last.ATR
		tp := high.Price
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"shallow pullback to ema_slow inside an established uptrend", 4), nil
	case shortTrend && last.EMAFast < last.EMASlow && last.EMASlow < last.EMATrend:
		retracement := (last.Close - low.Price) / legSpan
		if retracement > in.Params.PullbackMaxRatio {
			return nil, nil
		}
		if last.High < last.EMASlow || last.Close > last.EMASlow {
			return nil, nil
		}
		entry := last.Close
		sl := last.EMASlow + 1.0*last.ATR
		tp := low.Price
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"shallow pullback to ema_slow inside an established downtrend", 4), nil
	}
	return nil, nil
}

// establishedTrend reports whether the last trendSwingCount highs (long)
// or lows (short) are each strictly more favorable than the one before.
func establishedTrend(swings []SwingPoint, long bool) bool {
	var same []SwingPoint
	for _, s := range swings {
		if s.High == long {
			same = append(same, s)
		}
	}
	if len(same) < trendSwingCount {
		return false
	}
	tail := same[len(same)-trendSwingCount:]
	for i := 1; i < len(tail); i++ {
		if long && tail[i].Price <= tail[i-1].Price {
			return false
		}
		if !long && tail[i].Price >= tail[i-1].Price {
			return false
		}
	}
	return true
}

// atrDeclining3 reports whether ATR fell in each of the last three
// periods, a consolidation signature S10 treats as disqualifying.
func atrDeclining3(c []model.EnrichedCandle) bool {
	n := len(c)
	if n < 4 {
		return false
	}
	return c[n-1].ATR < c[n-2].ATR && c[n-2].ATR < c[n-3].ATR && c[n-3].ATR < c[n-4].ATR
}
