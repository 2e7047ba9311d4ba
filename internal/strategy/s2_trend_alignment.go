package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(trendAlignmentDetector{}) }

type trendAlignmentDetector struct{}

func (trendAlignmentDetector) Name() Name { return TrendAlignment }

// Detect implements spec §4.4 S2: all three EMAs cascading in order,
// a live trend (ADX floor), a volume floor, and RSI still moving in the
// trade's favor.
func (d trendAlignmentDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistoryTrend) {
		return nil, nil
	}
	last, _ := in.Buf.Last()
	prev, ok := in.Buf.Prev()
	if !ok {
		return nil, nil
	}

	const adxMin = 15.0
	const baseVolumeRatioMin = 0.8
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	if last.ADX < adxMin || last.VolumeRatio < volMin {
		return nil, nil
	}

	switch {
	case last.Close > last.EMAFast && last.EMAFast > last.EMASlow && last.EMASlow > last.EMATrend && last.RSI > prev.RSI:
		entry := last.Close
		sl := last.EMASlow - 0.5*last.ATR
		tp := entry + 2.5*last.ATR
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"ema_fast > ema_slow > ema_trend cascade with rising RSI", 3), nil
	case last.Close < last.EMAFast && last.EMAFast < last.EMASlow && last.EMASlow < last.EMATrend && last.RSI < prev.RSI:
		entry := last.Close
		sl := last.EMASlow + 0.5*last.ATR
		tp := entry - 2.5*last.ATR
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"ema_fast < ema_slow < ema_trend cascade with falling RSI", 3), nil
	}
	return nil, nil
}
