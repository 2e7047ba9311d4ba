package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/signalforge/scanner/internal/model"
)

// Engine enriches candle buffers with the indicator set strategies read
// (spec §4.2). It holds no per-symbol state: every call recomputes the
// full series from the buffer it's given, the way the teacher's
// indicator stage is the one stage explicitly kept "boring and
// re-derivable from scratch" rather than incrementally maintained.
type Engine struct {
	params Params
}

// NewEngine validates params and returns a ready Engine.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

// minUsableRows is the floor on post-warmup rows Enrich requires before
// it will hand a buffer to the strategy library: below this, there isn't
// enough signal left after the indicator warm-up to evaluate a pattern
// against.
const minUsableRows = 50

// Enrich computes the full indicator set over buf, drops the leading
// rows whose indicators are still undefined after warm-up, and returns
// an EnrichedBuffer over the remaining rows. It fails with
// InsufficientHistoryError if buf is shorter than params.MinRows before
// computation, or if fewer than minUsableRows remain after the warm-up
// trim, and with InvalidDataError if buf contains a non-increasing
// timestamp, a non-positive price, a negative volume, or a zero volume
// within the trailing recentVolumeWindow bars.
func (e *Engine) Enrich(buf model.Buffer) (model.EnrichedBuffer, error) {
	n := len(buf.Candles)
	if n < e.params.MinRows {
		return model.EnrichedBuffer{}, &InsufficientHistoryError{Have: n, Want: e.params.MinRows}
	}
	if err := validateCandles(buf.Candles); err != nil {
		return model.EnrichedBuffer{}, err
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range buf.Candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	emaFast := talib.Ema(closes, e.params.EMAFastPeriod)
	emaSlow := talib.Ema(closes, e.params.EMASlowPeriod)
	emaTrend := talib.Ema(closes, e.params.EMATrendPeriod)
	emaLong := talib.Ema(closes, e.params.EMALongPeriod)
	atr := talib.Atr(highs, lows, closes, e.params.ATRPeriod)
	atrMean := rollingMean(atr, e.params.ATRPeriod)
	rsi := talib.Rsi(closes, e.params.RSIPeriod)
	adx := talib.Adx(highs, lows, closes, e.params.ADXPeriod)
	plusDI := talib.PlusDI(highs, lows, closes, e.params.ADXPeriod)
	minusDI := talib.MinusDI(highs, lows, closes, e.params.ADXPeriod)
	volMA := rollingMean(volumes, e.params.VolumeMAPeriod)
	vwapSeries := vwap(buf.Candles, buf.Timeframe, e.params.VWAPReset)

	var stochK, stochD []float64
	if e.params.StochEnabled {
		stochK, stochD = talib.Stoch(highs, lows, closes,
			e.params.StochKPeriod, e.params.StochSmoothPeriod, talib.SMA,
			e.params.StochDPeriod, talib.SMA)
	}

	out := make([]model.EnrichedCandle, n)
	for i, c := range buf.Candles {
		ec := model.NaNCandle(c)
		ec.EMAFast = emaFast[i]
		ec.EMASlow = emaSlow[i]
		ec.EMATrend = emaTrend[i]
		ec.EMALong = emaLong[i]
		ec.ATR = atr[i]
		ec.ATRMean = atrMean[i]
		if atrMean[i] > 0 {
			ec.ATRRatio = atr[i] / atrMean[i]
		}
		ec.RSI = rsi[i]
		ec.ADX = adx[i]
		ec.PlusDI = plusDI[i]
		ec.MinusDI = minusDI[i]
		ec.VolumeMA = volMA[i]
		if volMA[i] > 0 {
			ec.VolumeRatio = c.Volume / volMA[i]
		}
		ec.VWAP = vwapSeries[i]
		if e.params.StochEnabled {
			ec.StochK = stochK[i]
			ec.StochD = stochD[i]
		}
		out[i] = ec
	}

	// talib leaves its warm-up rows at zero rather than NaN, so the first
	// Warmup() rows are dropped unconditionally before the NaN check.
	trimAt := e.params.Warmup()
	for trimAt < len(out) && !out[trimAt].CriticalFieldsValid() {
		trimAt++
	}
	out = out[trimAt:]
	if len(out) < minUsableRows {
		return model.EnrichedBuffer{}, &InsufficientHistoryError{Have: len(out), Want: minUsableRows}
	}

	return model.EnrichedBuffer{
		Symbol:    buf.Symbol,
		Timeframe: buf.Timeframe,
		Candles:   out,
	}, nil
}

// rollingMean computes the trailing simple mean of series over period,
// leaving the first period-1 entries at zero (matching talib's SMA
// lookback convention, since callers treat a zero mean as "not yet
// warmed up" rather than a valid value).
func rollingMean(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(series); i++ {
		out[i] = stat.Mean(series[i-period+1:i+1], nil)
	}
	return out
}

// recentVolumeWindow bounds how far back a zero-volume candle still
// counts as invalid data: a thin bar far in the history shouldn't fail
// the whole buffer, but one within the trailing window would poison
// the volume-ratio indicator strategies read right now.
const recentVolumeWindow = 20

// validateCandles rejects non-increasing timestamps, non-positive
// prices, a high below the low, negative volume, and zero volume within
// the trailing window; gaps between timestamps are not checked
// (spec §4.2 "garbage in must not become silent NaN out").
func validateCandles(candles []model.Candle) error {
	n := len(candles)
	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return &InvalidDataError{Index: i, Reason: "non-positive price"}
		}
		if c.Volume < 0 {
			return &InvalidDataError{Index: i, Reason: "negative volume"}
		}
		if c.Volume == 0 && i >= n-recentVolumeWindow {
			return &InvalidDataError{Index: i, Reason: "zero volume"}
		}
		if c.High < c.Low {
			return &InvalidDataError{Index: i, Reason: "high below low"}
		}
		if i > 0 && !c.TS.After(candles[i-1].TS) {
			return &InvalidDataError{Index: i, Reason: "non-increasing timestamp"}
		}
	}
	return nil
}

// Warmup returns the number of leading rows whose indicators are
// still undefined for these params (the longest period minus one);
// Enrich drops at least this many rows.
func (p Params) Warmup() int {
	return int(math.Max(0, float64(p.maxPeriod()-1)))
}
