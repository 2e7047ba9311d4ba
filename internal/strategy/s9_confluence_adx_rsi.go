package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(confluenceADXRSIDetector{}) }

type confluenceADXRSIDetector struct{}

func (confluenceADXRSIDetector) Name() Name { return ConfluenceADXRSI }

// Detect implements spec §4.4 S9: a strong-trend confluence of ADX,
// RSI momentum, swing-point structure, and volume all agreeing on the
// same direction.
func (d confluenceADXRSIDetector) Detect(in Input) (*model.Signal, error) {
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
	adxRising := last.ADX > c[n-2].ADX

	rsiDelta := last.RSI - c[n-4].RSI
	swings := FindSwings(in.Buf.Candles)

	confidence := 3
	if last.ADX >= 25 {
		confidence = 5
	} else if adxRising {
		confidence = 4
	}

	switch {
	case last.RSI > 50 && rsiDelta >= 3 && higherHighsLows(swings, true):
		entry := last.Close
		sl := entry - 1.5*last.ATR
		tp := entry + 2.5*last.ATR
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"ADX/RSI/structure confluence agrees on an up move", confidence), nil
	case last.RSI < 50 && rsiDelta <= -3 && higherHighsLows(swings, false):
		entry := last.Close
		sl := entry + 1.5*last.ATR
		tp := entry - 2.5*last.ATR
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"ADX/RSI/structure confluence agrees on a down move", confidence), nil
	}
	return nil, nil
}

// higherHighsLows reports whether the last two same-type swings (highs
// for an uptrend check, lows for a downtrend check) are rising (long)
// or falling (short).
func higherHighsLows(swings []SwingPoint, long bool) bool {
	var same []SwingPoint
	for _, s := range swings {
		if s.High == long {
			same = append(same, s)
		}
	}
	if len(same) < 2 {
		return false
	}
	a, b := same[len(same)-2], same[len(same)-1]
	if long {
		return b.Price > a.Price
	}
	return b.Price < a.Price
}
