// Package tracker owns the lifecycle of open trades for one scanner
// (spec §4.7), advancing each tracked trade's status against the latest
// price in the fixed evaluation order the spec defines: stop, breakeven,
// take-profit, reversal-protection, expiry.
package tracker

import (
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/signalforge/scanner/internal/model"
)

// maxHold returns the maximum time a trade opened on timeframe tf may
// stay open before the tracker force-expires it (spec §4.7 step 5). Scalp
// timeframes get an intraday horizon, the two mid timeframes a few-day
// horizon, and the rest a multi-week horizon.
func maxHold(tf model.Timeframe) time.Duration {
	switch tf {
	case model.TF1m, model.TF5m:
		return 4 * time.Hour
	case model.TF15m, model.TF1h:
		return 3 * 24 * time.Hour
	default:
		return 14 * 24 * time.Hour
	}
}

// Tracker owns the open trades for one scanner. Per spec §5 a scanner's
// tick is single-threaded, so Tracker carries no locking of its own.
type Tracker struct {
	trades map[string]*model.TrackedTrade
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{trades: make(map[string]*model.TrackedTrade)}
}

// Open begins tracking a freshly accepted signal and returns its trade.
func (t *Tracker) Open(sig model.Signal, now time.Time) *model.TrackedTrade {
	trade := model.NewTrackedTrade(sig, now)
	t.trades[sig.ID] = trade
	return trade
}

// OpenTrades returns every non-terminal trade, for the scanner driver's
// per-tick price update.
func (t *Tracker) OpenTrades() []*model.TrackedTrade {
	out := make([]*model.TrackedTrade, 0, len(t.trades))
	for _, tr := range t.trades {
		if !tr.Status.IsTerminal() {
			out = append(out, tr)
		}
	}
	return out
}

// Prune drops every terminal trade from the tracker's internal map, so a
// long-running scanner's memory doesn't grow with closed trades. Callers
// typically run this once per tick after collecting the terminal events.
func (t *Tracker) Prune() {
	for id, tr := range t.trades {
		if tr.Status.IsTerminal() {
			delete(t.trades, id)
		}
	}
}

// ShutdownReport msgpack-encodes every still-open trade's serializable
// view, for a graceful shutdown to persist what the tracker was holding
// without committing to any particular persistence backend.
func (t *Tracker) ShutdownReport() ([]byte, error) {
	open := t.OpenTrades()
	rows := make([]model.SerializableTrade, 0, len(open))
	for _, tr := range open {
		rows = append(rows, tr.ToSerializable())
	}
	return msgpack.Marshal(rows)
}

// Update advances trade against the current price, in spec §4.7's fixed
// evaluation order, and returns the TradeEvent for the one transition
// that fired this tick, or nil if none did. A terminal trade is left
// untouched.
func (t *Tracker) Update(trade *model.TrackedTrade, price float64, now time.Time) *model.TradeEvent {
	if trade.Status.IsTerminal() {
		return nil
	}

	long := trade.Signal.Direction == model.Long
	if long {
		if price > trade.PeakPrice {
			trade.PeakPrice = price
		}
	} else if price < trade.PeakPrice {
		trade.PeakPrice = price
	}
	trade.LastCheckedAt = now

	entry := trade.Signal.EntryPrice
	tp := trade.Signal.TakeProfit
	totalDist := math.Abs(tp - entry)

	// 1. stop-loss touch or cross.
	if (long && price <= trade.InternalStopLoss) || (!long && price >= trade.InternalStopLoss) {
		trade.Status = model.StatusStopped
		return event(trade, model.TradeEventStop, price, now, "stop-loss touched")
	}

	// 2. breakeven arm at 50% of the way to take-profit.
	if !trade.BreakevenAnnounced && progressToTP(long, entry, price, totalDist) >= 0.5 {
		trade.BreakevenAnnounced = true
		trade.InternalStopLoss = entry
		trade.Status = model.StatusBreakevenArmed
		return event(trade, model.TradeEventBreakeven, price, now, "breakeven armed")
	}

	// 3. take-profit touch or cross.
	if (long && price >= tp) || (!long && price <= tp) {
		trade.Status = model.StatusTPHit
		return event(trade, model.TradeEventTP, price, now, "take-profit touched")
	}

	// 4. reversal protection: a large favorable excursion (>=70% to TP)
	// that has since retraced >=50% of its gains gets closed out rather
	// than allowed to round-trip back through breakeven.
	if progressToTP(long, entry, trade.PeakPrice, totalDist) >= 0.7 {
		gain := math.Abs(trade.PeakPrice - entry)
		retraced := math.Abs(trade.PeakPrice - price)
		if gain > 0 && retraced/gain >= 0.5 {
			trade.Status = model.StatusReversalExited
			return event(trade, model.TradeEventReversal, price, now, "retraced from favorable excursion")
		}
	}

	// 5. expiry past the strategy's hold horizon.
	if now.Sub(trade.OpenedAt) > maxHold(trade.Signal.Timeframe) {
		trade.Status = model.StatusExpired
		return event(trade, model.TradeEventExpired, price, now, "max hold horizon exceeded")
	}

	return nil
}

// progressToTP returns the fraction of the entry-to-TP distance that
// price has covered in the trade's favorable direction; it can exceed 1
// (price beyond TP) or go negative (price beyond entry against the trade).
func progressToTP(long bool, entry, price, totalDist float64) float64 {
	if totalDist == 0 {
		return 0
	}
	if long {
		return (price - entry) / totalDist
	}
	return (entry - price) / totalDist
}

// event builds the TradeEvent for a status transition, computing pnl_pct
// from entry vs price with the sign flipped for short trades.
func event(trade *model.TrackedTrade, kind model.TradeEventKind, price float64, now time.Time, note string) *model.TradeEvent {
	entry := trade.Signal.EntryPrice
	pnlPct := (price - entry) / entry * 100
	if trade.Signal.Direction == model.Short {
		pnlPct = -pnlPct
	}
	return &model.TradeEvent{
		TradeID: trade.Signal.ID,
		Kind:    kind,
		Price:   price,
		PnLPct:  pnlPct,
		Note:    note,
		At:      now,
	}
}
