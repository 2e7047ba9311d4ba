package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

func TestMeanReversion_FadesOverboughtExtension(t *testing.T) {
	candles := make([]model.EnrichedCandle, minHistory)
	for i := range candles {
		candles[i] = plainCandle(i)
	}
	last := len(candles) - 1
	candles[last].VWAP = 100
	candles[last].ATR = 1.0
	candles[last].RSI = 85
	candles[last].Open = 104
	candles[last].Close = 102 // close < open: bearish reversal bar
	candles[last].High = 105
	candles[last].Low = 101.5

	in := Input{Buf: bufferOf(candles...), Params: DefaultParamSet()}
	sig, err := meanReversionDetector{}.Detect(in)
	require.NoError(t, err)
	require.NotNil(t, sig)
	require.Equal(t, model.Short, sig.Direction)
	require.Equal(t, 100.0, sig.TakeProfit)
}

func TestMeanReversion_NoSignalInsideBand(t *testing.T) {
	candles := make([]model.EnrichedCandle, minHistory)
	for i := range candles {
		candles[i] = plainCandle(i)
	}
	last := len(candles) - 1
	candles[last].VWAP = 100
	candles[last].ATR = 1.0
	candles[last].RSI = 85
	candles[last].Close = 100.5 // not stretched 1.5 ATR from vwap

	in := Input{Buf: bufferOf(candles...), Params: DefaultParamSet()}
	sig, err := meanReversionDetector{}.Detect(in)
	require.NoError(t, err)
	require.Nil(t, sig)
}
