package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(emaCrossoverDetector{}) }

type emaCrossoverDetector struct{}

func (emaCrossoverDetector) Name() Name { return EMACrossover }

// Detect implements spec §4.4 S1: a fast/slow EMA crossover on the last
// closed bar, confirmed by price sitting on the VWAP side of the
// crossover direction, a volume pickup, and RSI inside a neutral band.
func (d emaCrossoverDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	last, _ := in.Buf.Last()
	prev, ok := in.Buf.Prev()
	if !ok {
		return nil, nil
	}

	const baseVolumeRatioMin = 1.3
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	if last.RSI < 25 || last.RSI > 75 || last.VolumeRatio < volMin {
		return nil, nil
	}

	crossedUp := prev.EMAFast <= prev.EMASlow && last.EMAFast > last.EMASlow
	crossedDown := prev.EMAFast >= prev.EMASlow && last.EMAFast < last.EMASlow

	tpATR := 2.0
	if sessionOf(in.Buf.Timeframe) == sessionScalp {
		tpATR = 1.0
	}

	switch {
	case crossedUp && last.Close > last.VWAP:
		entry := last.Close
		sl := entry - 1.5*last.ATR
		tp := entry + tpATR*last.ATR
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"ema_fast crossed above ema_slow with close above vwap", 3), nil
	case crossedDown && last.Close < last.VWAP:
		entry := last.Close
		sl := entry + 1.5*last.ATR
		tp := entry - tpATR*last.ATR
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"ema_fast crossed below ema_slow with close below vwap", 3), nil
	}
	return nil, nil
}
