package indicator

import (
	"time"

	"github.com/signalforge/scanner/internal/model"
)

// vwap computes the cumulative volume-weighted average price series,
// resetting the accumulator per Params.VWAPReset. go-talib has no VWAP
// function, so this is hand-rolled the way the rest of the pack's
// indicator code hand-rolls anything outside talib's catalogue.
//
// VWAPResetDaily resets at every UTC calendar-day boundary. VWAPResetSession
// additionally resets whenever a data gap larger than 2x the timeframe
// is seen, treating the reconnect as the start of a new session.
func vwap(candles []model.Candle, tf model.Timeframe, reset VWAPReset) []float64 {
	out := make([]float64, len(candles))
	var cumPV, cumV float64
	var lastDay int
	var lastTS time.Time

	for i, c := range candles {
		day := c.TS.UTC().YearDay() + c.TS.UTC().Year()*1000

		newSession := i == 0 || day != lastDay
		if reset == VWAPResetSession && i > 0 {
			gap := c.TS.Sub(lastTS)
			if gap > 2*tf.Duration() {
				newSession = true
			}
		}
		if newSession {
			cumPV, cumV = 0, 0
		}

		cumPV += c.TypicalPrice() * c.Volume
		cumV += c.Volume
		if cumV > 0 {
			out[i] = cumPV / cumV
		} else {
			out[i] = c.TypicalPrice()
		}

		lastDay = day
		lastTS = c.TS
	}
	return out
}
