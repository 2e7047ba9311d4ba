package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(asianRangeBreakoutDetector{}) }

type asianRangeBreakoutDetector struct{}

func (asianRangeBreakoutDetector) Name() Name { return AsianRangeBreakout }

// Detect implements spec §4.4 S12: compute the prior Asian-session
// range, confirm a breakout of it with a retest of the broken
// boundary, and enter in the break direction.
func (d asianRangeBreakoutDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	c := in.Buf.Candles
	last := c[n-1]
	if last.ATR <= 0 {
		return nil, nil
	}

	rawCandles := make([]model.Candle, n)
	for i, ec := range c {
		rawCandles[i] = ec.Candle
	}
	start, end, ok := dayWindow(rawCandles, in.Params.AsianRangeStartHour, in.Params.AsianRangeEndHour)
	if !ok || end >= n {
		return nil, nil
	}

	hi, lo := rawCandles[start].High, rawCandles[start].Low
	for _, cc := range rawCandles[start:end] {
		if cc.High > hi {
			hi = cc.High
		}
		if cc.Low < lo {
			lo = cc.Low
		}
	}
	buffer := in.Params.BreakoutConfirmATRs * last.ATR

	brokeUp, brokeDown := false, false
	for i := end; i < n-1; i++ {
		if c[i].Close > hi+buffer {
			brokeUp = true
		}
		if c[i].Close < lo-buffer {
			brokeDown = true
		}
	}

	switch {
	case brokeUp && last.Close >= hi && last.Close <= hi+buffer:
		entry := last.Close
		sl := lo
		tp := entry + 2.0*(entry-sl)
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"asian range broken up, retest of the boundary held", 4), nil
	case brokeDown && last.Close <= lo && last.Close >= lo-buffer:
		entry := last.Close
		sl := hi
		tp := entry - 2.0*(sl-entry)
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"asian range broken down, retest of the boundary held", 4), nil
	}
	return nil, nil
}
