package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

// plainCandle builds a fully-valid EnrichedCandle with sane defaults,
// letting the caller override only the fields a test cares about.
func plainCandle(i int) model.EnrichedCandle {
	c := model.NaNCandle(model.Candle{
		TS: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
	})
	c.EMAFast, c.EMASlow, c.EMATrend, c.EMALong = 100, 100, 100, 100
	c.ATR, c.ATRMean, c.ATRRatio = 1.0, 1.0, 1.0
	c.RSI = 50
	c.ADX, c.PlusDI, c.MinusDI = 20, 20, 10
	c.VolumeMA, c.VolumeRatio = 1000, 1.0
	c.VWAP = 100
	return c
}

func bufferOf(candles ...model.EnrichedCandle) model.EnrichedBuffer {
	return model.EnrichedBuffer{Symbol: "BTCUSDT", Timeframe: model.TF1h, Candles: candles}
}

func TestEMACrossover_FiresLongOnUpCross(t *testing.T) {
	candles := make([]model.EnrichedCandle, minHistory)
	for i := range candles {
		candles[i] = plainCandle(i)
	}
	prev := len(candles) - 2
	last := len(candles) - 1
	candles[prev].EMAFast, candles[prev].EMASlow = 99, 100
	candles[last].EMAFast, candles[last].EMASlow = 101, 100
	candles[last].Close = 102
	candles[last].VWAP = 100
	candles[last].RSI = 60
	candles[last].VolumeRatio = 1.4

	in := Input{Buf: bufferOf(candles...), Params: DefaultParamSet()}
	sig, err := emaCrossoverDetector{}.Detect(in)
	require.NoError(t, err)
	require.NotNil(t, sig)
	require.Equal(t, model.Long, sig.Direction)
	require.Equal(t, 102.0, sig.EntryPrice)
	require.Less(t, sig.StopLoss, sig.EntryPrice)
	require.Greater(t, sig.TakeProfit, sig.EntryPrice)
}

func TestEMACrossover_NoSignalWhenVolumeThin(t *testing.T) {
	candles := make([]model.EnrichedCandle, minHistory)
	for i := range candles {
		candles[i] = plainCandle(i)
	}
	prev := len(candles) - 2
	last := len(candles) - 1
	candles[prev].EMAFast, candles[prev].EMASlow = 99, 100
	candles[last].EMAFast, candles[last].EMASlow = 101, 100
	candles[last].Close = 102
	candles[last].VolumeRatio = 1.0 // below the 1.3 floor

	in := Input{Buf: bufferOf(candles...), Params: DefaultParamSet()}
	sig, err := emaCrossoverDetector{}.Detect(in)
	require.NoError(t, err)
	require.Nil(t, sig)
}

func TestEMACrossover_ShortSideIsAssetScaled(t *testing.T) {
	candles := make([]model.EnrichedCandle, minHistory)
	for i := range candles {
		candles[i] = plainCandle(i)
	}
	prev := len(candles) - 2
	last := len(candles) - 1
	candles[prev].EMAFast, candles[prev].EMASlow = 100, 99
	candles[last].EMAFast, candles[last].EMASlow = 98, 99
	candles[last].Close = 97
	candles[last].VWAP = 100
	candles[last].RSI = 40
	candles[last].VolumeRatio = 1.6 // clears 1.3 * 1.15 index scale

	params := DefaultParamSet()
	params.VolumeRatioScale = 1.5 / 1.3

	in := Input{Buf: bufferOf(candles...), Params: params}
	sig, err := emaCrossoverDetector{}.Detect(in)
	require.NoError(t, err)
	require.NotNil(t, sig)
	require.Equal(t, model.Short, sig.Direction)
}
