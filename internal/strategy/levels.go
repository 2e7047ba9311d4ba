package strategy

import "math"

// Level is a clustered horizontal support/resistance price, with a
// touch count reflecting how many swing points contributed to it (spec
// §4.4 S7/S8's shared level-clustering description).
type Level struct {
	Price  float64
	Touches int
}

// ClusterLevels groups swing prices within tolerancePct of price into a
// single level, keeping the mean price of each cluster. tolerancePct is
// expressed as a fraction of price (e.g. 0.002 = 0.2%).
func ClusterLevels(swings []SwingPoint, tolerancePct float64) []Level {
	var levels []Level
	for _, s := range swings {
		merged := false
		for i := range levels {
			tol := levels[i].Price * tolerancePct
			if math.Abs(s.Price-levels[i].Price) <= tol {
				// running mean
				total := levels[i].Price * float64(levels[i].Touches)
				levels[i].Touches++
				levels[i].Price = (total + s.Price) / float64(levels[i].Touches)
				merged = true
				break
			}
		}
		if !merged {
			levels = append(levels, Level{Price: s.Price, Touches: 1})
		}
	}
	return levels
}

// NearestLevel returns the level closest to price and the distance as a
// fraction of price, or ok=false if levels is empty.
func NearestLevel(levels []Level, price float64) (Level, float64, bool) {
	if len(levels) == 0 {
		return Level{}, 0, false
	}
	best := levels[0]
	bestDist := math.Abs(price-best.Price) / price
	for _, l := range levels[1:] {
		d := math.Abs(price-l.Price) / price
		if d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, bestDist, true
}

// NearestRoundNumber returns the nearest round-number psychological
// level at the given unit spacing (e.g. unit=1000 for BTC's round
// thousands), and the distance as a fraction of price. Returns
// ok=false if unit <= 0 (round-number confluence disabled for this asset).
func NearestRoundNumber(price, unit float64) (level float64, distPct float64, ok bool) {
	if unit <= 0 {
		return 0, 0, false
	}
	level = math.Round(price/unit) * unit
	return level, math.Abs(price-level) / price, true
}
