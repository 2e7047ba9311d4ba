package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(emaCloudBreakoutDetector{}) }

type emaCloudBreakoutDetector struct{}

func (emaCloudBreakoutDetector) Name() Name { return EMACloudBreakout }

const cloudNarrowBars = 10

// Detect implements spec §4.4 S4: a narrow EMA cloud (price ranging
// inside a tight band for at least cloudNarrowBars) followed by a close
// outside the band on expanding volume.
func (d emaCloudBreakoutDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	n := len(in.Buf.Candles)
	last := in.Buf.Candles[n-1]

	const baseVolumeRatioMin = 1.4
	volMin := baseVolumeRatioMin * in.Params.VolumeRatioScale
	if last.VolumeRatio < volMin || last.ATR <= 0 {
		return nil, nil
	}

	narrowSince := n - 1
	for i := n - 2; i >= 0 && n-1-i <= cloudNarrowBars+5; i-- {
		c := in.Buf.Candles[i]
		if !c.CriticalFieldsValid() || cloudWidth(c) >= 0.5*c.ATR {
			break
		}
		narrowSince = i
	}
	if n-1-narrowSince < cloudNarrowBars {
		return nil, nil
	}

	hi := last.EMAFast
	lo := last.EMAFast
	for _, v := range []float64{last.EMASlow, last.EMATrend} {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}

	switch {
	case last.Close > hi:
		entry := last.Close
		sl := entry - 1.5*last.ATR
		tp := entry + 2.0*last.ATR
		return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
			"ema cloud compressed then broke out to the upside on volume", 3), nil
	case last.Close < lo:
		entry := last.Close
		sl := entry + 1.5*last.ATR
		tp := entry - 2.0*last.ATR
		return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
			"ema cloud compressed then broke down on volume", 3), nil
	}
	return nil, nil
}
