package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(momentumShiftDetector{}) }

type momentumShiftDetector struct{}

func (momentumShiftDetector) Name() Name { return MomentumShift }

// Detect implements spec §4.4 S5: RSI breaks a three-bar descending or
// ascending run while ADX confirms a live trend and volume picks up,
// with a price bar in the turn direction as confirmation.
func (d momentumShiftDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	c := in.Buf.Candles
	last := c[n-1]

	const baseVolumeRatioMin = 1.2
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	if last.ADX < in.Params.ADXTrendMin || last.VolumeRatio < volMin {
		return nil, nil
	}

	r3, r2, r1, r0 := c[n-4].RSI, c[n-3].RSI, c[n-2].RSI, last.RSI
	descendingRun := r3 > r2 && r2 > r1
	ascendingRun := r3 < r2 && r2 < r1

	switch {
	case descendingRun && r0 > r1 && bullishCandle(last.Candle):
		entry := last.Close
		sl := entry - 1.5*last.ATR
		tp := entry + 2.0*last.ATR
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"RSI broke a 3-bar descending run with a bullish confirmation bar", 3), nil
	case ascendingRun && r0 < r1 && bearishCandle(last.Candle):
		entry := last.Close
		sl := entry + 1.5*last.ATR
		tp := entry - 2.0*last.ATR
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"RSI broke a 3-bar ascending run with a bearish confirmation bar", 3), nil
	}
	return nil, nil
}
