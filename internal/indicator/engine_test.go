package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

func syntheticBuffer(n int) model.Buffer {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.1
		candles[i] = model.Candle{
			TS:     start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price + 0.2,
			Volume: 1000 + float64(i),
		}
	}
	return model.Buffer{Symbol: "BTCUSDT", Timeframe: model.TF1h, Candles: candles}
}

func TestEnrich_InsufficientHistory(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	_, err = eng.Enrich(syntheticBuffer(50))
	require.Error(t, err)
	var insufficient *InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
}

func TestEnrich_CriticalFieldsValidPastWarmup(t *testing.T) {
	params := DefaultParams()
	eng, err := NewEngine(params)
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	out, err := eng.Enrich(buf)
	require.NoError(t, err)
	require.Len(t, out.Candles, 300-params.Warmup())

	for _, c := range out.Candles {
		require.True(t, c.CriticalFieldsValid())
	}
}

func TestEnrich_RejectsNonIncreasingTimestamp(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	buf.Candles[150].TS = buf.Candles[149].TS
	_, err = eng.Enrich(buf)
	require.Error(t, err)
	var invalid *InvalidDataError
	require.ErrorAs(t, err, &invalid)
}

func TestEnrich_RejectsNonPositivePrice(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	buf.Candles[10].Close = 0
	_, err = eng.Enrich(buf)
	require.Error(t, err)
}

func TestEnrich_RejectsZeroVolumeWithinTrailingWindow(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	buf.Candles[len(buf.Candles)-5].Volume = 0
	_, err = eng.Enrich(buf)
	require.Error(t, err)
	var invalid *InvalidDataError
	require.ErrorAs(t, err, &invalid)
}

func TestEnrich_AllowsZeroVolumeOutsideTrailingWindow(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	buf.Candles[10].Volume = 0
	_, err = eng.Enrich(buf)
	require.NoError(t, err)
}

func TestEnrich_FailsWhenTooFewRowsSurviveWarmup(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	// Clears the 200-row MinRows gate but the 199-row EMA-long warmup
	// leaves only 1 usable row, short of the 50-row floor.
	_, err = eng.Enrich(syntheticBuffer(200))
	require.Error(t, err)
	var insufficient *InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
}

func TestEnrich_Idempotent(t *testing.T) {
	eng, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	buf := syntheticBuffer(300)
	out1, err := eng.Enrich(buf)
	require.NoError(t, err)
	out2, err := eng.Enrich(buf)
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestParams_ValidateRejectsNonPositivePeriod(t *testing.T) {
	p := DefaultParams()
	p.RSIPeriod = 0
	require.Error(t, p.Validate())
}

func TestParams_ValidateRejectsBadVWAPReset(t *testing.T) {
	p := DefaultParams()
	p.VWAPReset = "weekly"
	require.Error(t, p.Validate())
}
