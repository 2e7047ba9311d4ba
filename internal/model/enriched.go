package model

import "math"

// EnrichedCandle extends a Candle with the indicator fields the engine
// computes over a rolling window (spec §3 "Enriched candle"). A field
// holding math.NaN means "explicitly absent" — never silently zero.
type EnrichedCandle struct {
	Candle

	EMAFast  float64 // configurable, default period 9
	EMASlow  float64 // default period 21
	EMATrend float64 // default period 50
	EMALong  float64 // default period 200

	ATR      float64
	ATRMean  float64 // mean ATR over the trailing window, for ATR ratio
	ATRRatio float64 // ATR / ATRMean

	RSI float64

	ADX      float64
	PlusDI   float64
	MinusDI  float64

	VolumeMA    float64
	VolumeRatio float64 // Volume / VolumeMA

	VWAP float64

	StochK float64
	StochD float64
}

// NaNCandle returns an EnrichedCandle with every indicator field set to
// NaN, used to seed rows that fall inside a warm-up window.
func NaNCandle(c Candle) EnrichedCandle {
	nan := math.NaN()
	return EnrichedCandle{
		Candle: c,
		EMAFast: nan, EMASlow: nan, EMATrend: nan, EMALong: nan,
		ATR: nan, ATRMean: nan, ATRRatio: nan,
		RSI: nan,
		ADX: nan, PlusDI: nan, MinusDI: nan,
		VolumeMA: nan, VolumeRatio: nan,
		VWAP:   nan,
		StochK: nan, StochD: nan,
	}
}

// CriticalFieldsValid reports whether the indicators strategies depend on
// most (fast/slow/trend EMAs, ATR, ATR ratio, RSI, ADX, VWAP, volume
// ratio) are finite numbers, not NaN. EMALong is not checked.
// A buffer whose last row fails this check fails data-quality validation.
func (e EnrichedCandle) CriticalFieldsValid() bool {
	fields := []float64{
		e.EMAFast, e.EMASlow, e.EMATrend,
		e.ATR, e.ATRRatio, e.RSI, e.ADX, e.VWAP, e.VolumeRatio,
	}
	for _, f := range fields {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// EnrichedBuffer is the output of the indicator engine: a Buffer whose
// candles all carry indicator fields. The engine never mutates the input
// Buffer — this is always a freshly allocated copy.
type EnrichedBuffer struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []EnrichedCandle
}

// Last returns the most recent enriched candle and true, or zero/false if empty.
func (b EnrichedBuffer) Last() (EnrichedCandle, bool) {
	if len(b.Candles) == 0 {
		return EnrichedCandle{}, false
	}
	return b.Candles[len(b.Candles)-1], true
}

// Prev returns the second-to-last enriched candle (for crossover detection)
// and true, or zero/false if there are fewer than 2 candles.
func (b EnrichedBuffer) Prev() (EnrichedCandle, bool) {
	if len(b.Candles) < 2 {
		return EnrichedCandle{}, false
	}
	return b.Candles[len(b.Candles)-2], true
}
