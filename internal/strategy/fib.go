package strategy

import "math"

// FibLevel names one of the standard retracement ratios spec §4.4 S6 uses.
type FibLevel struct {
	Ratio float64
	Price float64
}

// fibRatios are the standard retracement ratios; 0 and 1 bound the leg.
var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// FibRetracementLevels returns the retracement price for each standard
// ratio between low and high. For an up-leg (low -> high), a retracement
// level sits below high by ratio*(high-low); for a down-leg the caller
// passes high as the leg start and low as the leg end and reads the
// level the same way, since retracement is symmetric in price terms.
func FibRetracementLevels(low, high float64) []FibLevel {
	span := high - low
	levels := make([]FibLevel, len(fibRatios))
	for i, r := range fibRatios {
		levels[i] = FibLevel{Ratio: r, Price: high - r*span}
	}
	return levels
}

// NearestFibLevel returns the retracement level closest to price and
// the absolute price distance from it.
func NearestFibLevel(levels []FibLevel, price float64) (FibLevel, float64) {
	best := levels[0]
	bestDist := math.Abs(price - best.Price)
	for _, l := range levels[1:] {
		d := math.Abs(price - l.Price)
		if d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, bestDist
}
