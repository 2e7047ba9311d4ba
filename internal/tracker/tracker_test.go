package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/signalforge/scanner/internal/model"
)

func longSignal(now time.Time) model.Signal {
	return *model.NewSignal("BTCUSDT", model.TF1h, model.Long, "ema_crossover", 100, 90, 130, now)
}

func shortSignal(now time.Time) model.Signal {
	return *model.NewSignal("BTCUSDT", model.TF1h, model.Short, "mean_reversion", 100, 110, 70, now)
}

func TestUpdate_StopLossTerminatesTrade(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0)

	ev := trk.Update(trade, 89, t0.Add(time.Minute))
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventStop, ev.Kind)
	require.Equal(t, model.StatusStopped, trade.Status)
}

func TestUpdate_BreakevenArmsAtHalfwayAndMovesStop(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0) // entry 100, tp 130: halfway = 115

	ev := trk.Update(trade, 115, t0.Add(time.Minute))
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventBreakeven, ev.Kind)
	require.True(t, trade.BreakevenAnnounced)
	require.Equal(t, 100.0, trade.InternalStopLoss)
	require.Equal(t, model.StatusBreakevenArmed, trade.Status)

	// A pullback to entry now stops the trade instead of riding to zero.
	ev2 := trk.Update(trade, 100, t0.Add(2*time.Minute))
	require.NotNil(t, ev2)
	require.Equal(t, model.TradeEventStop, ev2.Kind)
}

func TestUpdate_TakeProfitTerminatesTrade(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0)

	// Arm breakeven first so the TP check on the next tick isn't
	// shadowed by the breakeven branch, which takes priority per the
	// tracker's fixed evaluation order.
	trk.Update(trade, 116, t0.Add(time.Minute))
	require.True(t, trade.BreakevenAnnounced)

	ev := trk.Update(trade, 131, t0.Add(2*time.Minute))
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventTP, ev.Kind)
	require.Equal(t, model.StatusTPHit, trade.Status)
}

func TestUpdate_ReversalExitsAfterDeepRetraceFromPeak(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0) // entry 100, tp 130, dist 30; 70% = 121

	ev := trk.Update(trade, 122, t0.Add(time.Minute))
	require.NotNil(t, ev) // breakeven arms first since it also crosses the 50% mark
	require.Equal(t, model.TradeEventBreakeven, ev.Kind)
	require.Equal(t, model.StatusBreakevenArmed, trade.Status)

	// Price keeps running to a strong peak, then retraces hard.
	ev2 := trk.Update(trade, 128, t0.Add(2*time.Minute))
	require.Nil(t, ev2)
	require.Equal(t, 128.0, trade.PeakPrice)

	// Retrace >=50% of the 28-point gain from peak back toward entry,
	// while staying above the armed breakeven stop (100) and below TP.
	ev3 := trk.Update(trade, 112, t0.Add(3*time.Minute))
	require.NotNil(t, ev3)
	require.Equal(t, model.TradeEventReversal, ev3.Kind)
	require.Equal(t, model.StatusReversalExited, trade.Status)
}

func TestUpdate_ExpiresPastHoldHorizon(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0)

	ev := trk.Update(trade, 101, t0.Add(4*24*time.Hour)) // 1h timeframe: 3-day horizon
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventExpired, ev.Kind)
}

func TestUpdate_ShortTradeStopAndTP(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(shortSignal(t0), t0)

	ev := trk.Update(trade, 111, t0.Add(time.Minute))
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventStop, ev.Kind)

	// entry 100, tp 70: 85 arms breakeven, then 69 reaches the target.
	winner := trk.Open(shortSignal(t0), t0)
	require.NotNil(t, trk.Update(winner, 85, t0.Add(time.Minute)))
	ev = trk.Update(winner, 69, t0.Add(2*time.Minute))
	require.NotNil(t, ev)
	require.Equal(t, model.TradeEventTP, ev.Kind)
	require.Equal(t, model.StatusTPHit, winner.Status)
}

func TestUpdate_TerminalTradeIsUntouched(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trade := trk.Open(longSignal(t0), t0)
	trade.Status = model.StatusTPHit

	ev := trk.Update(trade, 50, t0.Add(time.Minute))
	require.Nil(t, ev)
}

func TestOpenTrades_ExcludesTerminal(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	open := trk.Open(longSignal(t0), t0)
	closed := trk.Open(shortSignal(t0), t0)
	closed.Status = model.StatusExpired

	got := trk.OpenTrades()
	require.Len(t, got, 1)
	require.Equal(t, open.Signal.ID, got[0].Signal.ID)
}

func TestPrune_RemovesTerminalTrades(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	trk.Open(longSignal(t0), t0)
	closed := trk.Open(shortSignal(t0), t0)
	closed.Status = model.StatusExpired

	trk.Prune()
	require.Len(t, trk.trades, 1)
}

func TestShutdownReport_EncodesOnlyOpenTrades(t *testing.T) {
	trk := New()
	t0 := time.Unix(0, 0)
	open := trk.Open(longSignal(t0), t0)
	closed := trk.Open(shortSignal(t0), t0)
	closed.Status = model.StatusExpired

	data, err := trk.ShutdownReport()
	require.NoError(t, err)

	var rows []model.SerializableTrade
	require.NoError(t, msgpack.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, open.Signal.ID, rows[0].SignalID)
}
