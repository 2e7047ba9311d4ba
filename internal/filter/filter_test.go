package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

func strongLongSignal(symbol string, createdAt time.Time, entry float64, rsi float64) *model.Signal {
	sig := model.NewSignal(symbol, model.TF1h, model.Long, "ema_crossover", entry, entry-10, entry+20, createdAt)
	sig.Confidence = 4
	sig.IndicatorsSnapshot = model.EnrichedCandle{
		Candle:  model.Candle{Close: entry},
		EMAFast: 105, EMASlow: 102, EMATrend: 99,
		RSI: rsi, ADX: 25, PlusDI: 30, MinusDI: 10,
		VolumeRatio: 1.5, VWAP: entry - 1,
	}
	return sig
}

func TestEvaluate_AcceptsQualifyingSignal(t *testing.T) {
	f := New(DefaultPolicy())
	sig := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)

	out := f.Evaluate(sig)
	require.True(t, out.Accepted)
	require.Empty(t, out.Reason)
	require.GreaterOrEqual(t, sig.MetFactorCount(), DefaultPolicy().MinConfluenceFactors)
}

func TestEvaluate_RejectsBelowConfluenceFloor(t *testing.T) {
	f := New(DefaultPolicy())
	sig := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	// Flip every factor against the signal's own direction.
	sig.IndicatorsSnapshot.EMAFast, sig.IndicatorsSnapshot.EMASlow, sig.IndicatorsSnapshot.EMATrend = 99, 102, 105
	sig.IndicatorsSnapshot.RSI = 40
	sig.IndicatorsSnapshot.ADX = 10
	sig.IndicatorsSnapshot.PlusDI, sig.IndicatorsSnapshot.MinusDI = 10, 30
	sig.IndicatorsSnapshot.VolumeRatio = 0.8
	sig.IndicatorsSnapshot.VWAP = 200

	out := f.Evaluate(sig)
	require.False(t, out.Accepted)
	require.Equal(t, "confluence", out.Reason)
}

func TestEvaluate_RejectsBelowConfidenceFloor(t *testing.T) {
	f := New(DefaultPolicy())
	sig := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	sig.Confidence = 1

	out := f.Evaluate(sig)
	require.False(t, out.Accepted)
	require.Equal(t, "confidence", out.Reason)
}

func TestEvaluate_RejectsBelowRiskRewardFloor(t *testing.T) {
	f := New(DefaultPolicy())
	sig := model.NewSignal("BTCUSDT", model.TF1h, model.Long, "ema_crossover", 100, 95, 105, time.Unix(0, 0))
	sig.Confidence = 4
	sig.IndicatorsSnapshot = strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60).IndicatorsSnapshot

	out := f.Evaluate(sig)
	require.False(t, out.Accepted)
	require.Equal(t, "risk_reward", out.Reason)
}

func TestEvaluate_DuplicateWithinToleranceIsRejected(t *testing.T) {
	f := New(DefaultPolicy())
	first := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	require.True(t, f.Evaluate(first).Accepted)

	second := strongLongSignal("BTCUSDT", time.Unix(300, 0), 100.3, 64) // 0.3% move, RSI +4
	out := f.Evaluate(second)
	require.False(t, out.Accepted)
	require.Equal(t, "duplicate", out.Reason)
}

func TestEvaluate_DuplicateRejectedAgainOnRepeatOffer(t *testing.T) {
	f := New(DefaultPolicy())
	first := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	require.True(t, f.Evaluate(first).Accepted)

	dup1 := strongLongSignal("BTCUSDT", time.Unix(10, 0), 100.1, 61)
	require.False(t, f.Evaluate(dup1).Accepted)

	dup2 := strongLongSignal("BTCUSDT", time.Unix(20, 0), 100.1, 61)
	out := f.Evaluate(dup2)
	require.False(t, out.Accepted)
	require.Equal(t, "duplicate", out.Reason)
}

func TestEvaluate_SignificantMoveOverridesDuplicate(t *testing.T) {
	f := New(DefaultPolicy())
	first := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	require.True(t, f.Evaluate(first).Accepted)

	moved := strongLongSignal("BTCUSDT", time.Unix(300, 0), 102, 61) // 2.0% move
	out := f.Evaluate(moved)
	require.True(t, out.Accepted)
}

func TestEvaluate_RSIShiftOverridesDuplicate(t *testing.T) {
	f := New(DefaultPolicy())
	first := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	require.True(t, f.Evaluate(first).Accepted)

	shifted := strongLongSignal("BTCUSDT", time.Unix(300, 0), 100.2, 76) // RSI +16
	out := f.Evaluate(shifted)
	require.True(t, out.Accepted)
}

func TestEvaluate_BypassModeTagsAndAcceptsFailingSignal(t *testing.T) {
	policy := DefaultPolicy()
	f := New(policy)
	f.SetBypass(true)

	sig := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)
	sig.Confidence = 1 // would otherwise fail the confidence floor

	out := f.Evaluate(sig)
	require.True(t, out.Accepted)
	require.Equal(t, "bypass", out.Reason)
	require.True(t, sig.BypassTagged)
}

func TestEvaluate_BypassAutoDisables(t *testing.T) {
	policy := DefaultPolicy()
	policy.BypassAutoDisable = time.Millisecond
	f := New(policy)
	fixed := time.Unix(1000, 0)
	f.now = func() time.Time { return fixed }
	f.SetBypass(true)

	f.now = func() time.Time { return fixed.Add(time.Hour) }
	sig := strongLongSignal("BTCUSDT", time.Unix(0, 0), 100, 60)

	out := f.Evaluate(sig)
	require.True(t, out.Accepted) // still a qualifying signal on its own merits
	require.False(t, sig.BypassTagged)
}
