package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(fairValueGapDetector{}) }

type fairValueGapDetector struct{}

func (fairValueGapDetector) Name() Name { return FairValueGap }

// Detect implements spec §4.4 S11: a three-bar imbalance (fair value
// gap) combined with a market-structure break past the most recent
// swing extreme and a volume spike. Take-profit distance scales with
// the timeframe's hold-period class.
func (d fairValueGapDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	c := in.Buf.Candles
	last := c[n-1]
	if n < 3 || last.ATR <= 0 {
		return nil, nil
	}

	const baseVolumeRatioMin = 1.2
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	if last.VolumeRatio < volMin {
		return nil, nil
	}

	gapUp := c[n-1].Low - c[n-3].High
	gapDown := c[n-3].Low - c[n-1].High
	minGap := last.Close * in.Params.FVGMinGapPct

	swings := FindSwings(c[:n-1])

	tpMult := 2.5
	switch sessionOf(in.Buf.Timeframe) {
	case sessionScalp:
		tpMult = 2.0
	case sessionSwing:
		tpMult = 3.75
	}

	if gapUp >= minGap {
		if swingHigh, ok := LastSwing(swings, true); ok && last.Close > swingHigh.Price {
			entry := last.Close
			sl := entry - 1.5*last.ATR
			tp := entry + tpMult*last.ATR
			sig := buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
				"bullish fair value gap with a market-structure break", 4)
			sig.StrategyMetadata["hold_period"] = string(sessionOf(in.Buf.Timeframe))
			sig.StrategyMetadata["gap_size"] = gapUp
			return sig, nil
		}
	}
	if gapDown >= minGap {
		if swingLow, ok := LastSwing(swings, false); ok && last.Close < swingLow.Price {
			entry := last.Close
			sl := entry + 1.5*last.ATR
			tp := entry - tpMult*last.ATR
			sig := buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
				"bearish fair value gap with a market-structure break", 4)
			sig.StrategyMetadata["hold_period"] = string(sessionOf(in.Buf.Timeframe))
			sig.StrategyMetadata["gap_size"] = gapDown
			return sig, nil
		}
	}
	return nil, nil
}
