package strategy

import "github.com/signalforge/scanner/internal/model"

func init() { register(srBounceDetector{}) }

type srBounceDetector struct{}

func (srBounceDetector) Name() Name { return SRBounce }

const srMinTouches = 2

// Detect implements spec §4.4 S7: cluster recent swing points into
// horizontal levels, and fire on a bounce from a qualifying support
// level or a rejection from a qualifying resistance level.
func (d srBounceDetector) Detect(in Input) (*model.Signal, error) {
	if !hasMinHistory(in.Buf, minHistory) {
		return nil, nil
	}
	last, _ := in.Buf.Last()
	if last.ATR <= 0 {
		return nil, nil
	}

	swings := FindSwings(in.Buf.Candles)
	levels := ClusterLevels(swings, in.Params.LevelTolerancePct)
	qualifying := make([]Level, 0, len(levels))
	for _, lv := range levels {
		if lv.Touches >= srMinTouches {
			qualifying = append(qualifying, lv)
		}
	}
	if len(qualifying) == 0 {
		return nil, nil
	}

	support, distLow, okLow := nearestBelow(qualifying, last.Low)
	resistance, distHigh, okHigh := nearestAbove(qualifying, last.High)

	tol := in.Params.LevelTolerancePct

	if okLow && distLow <= tol && last.Close > support.Price {
		confidence := 3
		if _, _, isRound := NearestRoundNumber(support.Price, in.Params.RoundNumberUnit); isRound {
			confidence++
		}
		entry := last.Close
		sl := support.Price - 0.5*last.ATR
		tp := entry + 2*(entry-sl)
		if target, _, ok := nearestAbove(qualifying, entry); ok {
			tp = target.Price
		}
		if tp > entry {
			return buildSignal(in, d.Name(), model.Long, entry, sl, tp, last,
				"bounce off a clustered support level", confidence), nil
		}
	}

	if okHigh && distHigh <= tol && last.Close < resistance.Price {
		confidence := 3
		if _, _, isRound := NearestRoundNumber(resistance.Price, in.Params.RoundNumberUnit); isRound {
			confidence++
		}
		entry := last.Close
		sl := resistance.Price + 0.5*last.ATR
		tp := entry - 2*(sl-entry)
		if target, _, ok := nearestBelow(qualifying, entry); ok {
			tp = target.Price
		}
		if tp < entry {
			return buildSignal(in, d.Name(), model.Short, entry, sl, tp, last,
				"rejection from a clustered resistance level", confidence), nil
		}
	}

	return nil, nil
}

// nearestBelow/nearestAbove find the closest level on one side of price,
// returning the distance as a fraction of price.
func nearestBelow(levels []Level, price float64) (Level, float64, bool) {
	var best Level
	bestDist := -1.0
	ok := false
	for _, lv := range levels {
		if lv.Price <= price {
			d := (price - lv.Price) / price
			if !ok || d < bestDist {
				best, bestDist, ok = lv, d, true
			}
		}
	}
	return best, bestDist, ok
}

func nearestAbove(levels []Level, price float64) (Level, float64, bool) {
	var best Level
	bestDist := -1.0
	ok := false
	for _, lv := range levels {
		if lv.Price >= price {
			d := (lv.Price - price) / price
			if !ok || d < bestDist {
				best, bestDist, ok = lv, d, true
			}
		}
	}
	return best, bestDist, ok
}
