package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(fibRetracementDetector{}) }

type fibRetracementDetector struct{}

func (fibRetracementDetector) Name() Name { return FibRetracement }

const fibLookback = 50

// Detect implements spec §4.4 S6: anchor a retracement to the most
// recent swing leg within the last 50 bars, and fire when price has
// pulled back to within tolerance of a standard Fib level on a reversal
// bar with supporting volume.
func (d fibRetracementDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	last := in.Buf.Candles[n-1]

	start := n - fibLookback
	if start < 0 {
		start = 0
	}
	window := in.Buf.Candles[start:]
	swings := FindSwings(window)
	low, high, ok := LastSwingPair(swings)
	if !ok {
		return nil, nil
	}

	levels := FibRetracementLevels(low.Price, high.Price)
	nearest, dist := NearestFibLevel(levels, last.Close)
	tol := last.Close * in.Params.FibTolerancePct
	if dist > tol {
		return nil, nil
	}

	confidence := 3
	if nearest.Ratio == 0.382 || nearest.Ratio == 0.618 {
		confidence = 5
	} else if nearest.Ratio == 0.5 {
		confidence = 4
	}

	// Up-leg (low then high): retracement support, expect a bounce long.
	// Down-leg (high then low): retracement resistance, expect a fade short.
	upLeg := low.Index < high.Index

	span := high.Price - low.Price
	if span <= 0 {
		return nil, nil
	}

	var sig *model.Signal
	switch {
	case upLeg && bullishCandle(last.Candle):
		entry := last.Close
		sl := nearest.Price - span*0.1
		tp := high.Price
		sig = buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"price retraced to a fib level on the last up-leg and printed a reversal bar", confidence)
	case !upLeg && bearishCandle(last.Candle):
		entry := last.Close
		sl := nearest.Price + span*0.1
		tp := low.Price
		sig = buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"price retraced to a fib level on the last down-leg and printed a reversal bar", confidence)
	default:
		return nil, nil
	}
	if sig.RiskReward < 1.5 {
		return nil, nil
	}
	return sig, nil
}
