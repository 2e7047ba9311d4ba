package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(meanReversionDetector{}) }

type meanReversionDetector struct{}

func (meanReversionDetector) Name() Name { return MeanReversion }

// Detect implements spec §4.4 S3: a counter-trend fade when price has
// stretched far from VWAP into an RSI extreme and the last bar has
// already started turning back toward VWAP.
func (d meanReversionDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	last, _ := in.Buf.Last()

	dist := last.Close - last.VWAP
	if last.ATR <= 0 || (dist < 0 && -dist < 1.5*last.ATR) || (dist >= 0 && dist < 1.5*last.ATR) {
		return nil, nil
	}

	switch {
	case dist > 0 && last.RSI > in.Params.MeanReversionRSIHigh && bearishCandle(last.Candle):
		// Overbought, stretched above VWAP, and the bar is already
		// turning down toward it: fade short.
		entry := last.Close
		sl := last.High + 0.5*last.ATR
		tp := last.VWAP
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"price extended above vwap into RSI overbought, reversal bar printed", 3), nil
	case dist < 0 && last.RSI < in.Params.MeanReversionRSILow && bullishCandle(last.Candle):
		entry := last.Close
		sl := last.Low - 0.5*last.ATR
		tp := last.VWAP
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"price extended below vwap into RSI oversold, reversal bar printed", 3), nil
	}
	return nil, nil
}
