// Package filter implements the signal quality filter (spec §4.6): a
// confluence/confidence/risk-reward gate plus per-symbol duplicate
// suppression, grounded on the stockbit-haka-haki pack example's
// pipeline-of-filters SignalFilterService (each stage can reject outright;
// here the stages are fixed checks against one Policy rather than a
// registered []SignalFilter, since spec's factor set is closed at seven).
package filter

import (
	"math"
	"sync"
	"time"

	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/ringbuf"
)

// recentWindowCapacity bounds the per-symbol recent-signals window by
// count; recentWindowMaxAge bounds it by age (spec §3's "Recent-signals
// window": most-recent 100, entries drop out after 10 minutes).
const (
	recentWindowCapacity = 100
	recentWindowMaxAge   = 10 * time.Minute
)

// volumeSpikeThreshold and adxStrengthThreshold are the confluence-factor
// cutoffs for "volume spike" and "ADX strength" (spec §4.6). They mirror
// the volume-ratio and ADX floors the strategy library itself uses
// (S5/S9/S11's 1.2 baseline, S9's ADX 20 trend-strength floor) rather than
// inventing new numbers for the same concepts.
const (
	volumeSpikeThreshold  = 1.2
	adxStrengthThreshold  = 20.0
	duplicateRSIShift     = 15.0
)

// Outcome reports what Evaluate decided and why, so the diagnostics
// recorder's record_rejection(reason) / record_success(strategy) calls
// have a stable string to key on.
type Outcome struct {
	Signal   *model.Signal
	Accepted bool
	Reason   string // "", "bypass", "confluence", "confidence", "risk_reward", "duplicate"
}

// Filter holds one Policy and the per-symbol recent-signals windows a
// single scanner's strategies emit into. Per spec §5, a scanner's tick
// is single-threaded, but the mutex keeps Filter safe to share across
// scanners if a deployment chooses to.
type Filter struct {
	mu     sync.Mutex
	policy Policy
	recent map[string]*ringbuf.Ring[*model.Signal]

	bypassUntil time.Time
	now         func() time.Time
}

// New builds a Filter from policy. The recent-signals windows are
// allocated lazily, one per symbol, on first emission.
func New(policy Policy) *Filter {
	return &Filter{
		policy: policy,
		recent: make(map[string]*ringbuf.Ring[*model.Signal]),
		now:    time.Now,
	}
}

// SetBypass turns bypass mode on (for the policy's configured
// auto-disable duration) or off (spec §4.6). A scanner's operator control
// surface calls this; the filter itself re-checks the deadline on every
// Evaluate so no background timer is needed.
func (f *Filter) SetBypass(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.bypassUntil = f.now().Add(f.policy.BypassAutoDisable)
	} else {
		f.bypassUntil = time.Time{}
	}
}

func (f *Filter) bypassActive() bool {
	if f.policy.BypassEnabled {
		return true
	}
	return !f.bypassUntil.IsZero() && f.now().Before(f.bypassUntil)
}

// Evaluate runs sig through the confluence/confidence/risk-reward gate,
// then the duplicate-suppression check, in that order. An accepted
// signal (including one let through by bypass mode) is recorded in its
// symbol's recent-signals window for future duplicate checks.
func (f *Filter) Evaluate(sig *model.Signal) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	recent := f.recentSnapshot(sig.Symbol, sig.CreatedAt)
	populateConfluenceFactors(sig, recent, f.policy.DuplicateWindow)

	if f.bypassActive() {
		sig.BypassTagged = true
		f.record(sig)
		return Outcome{Signal: sig, Accepted: true, Reason: "bypass"}
	}

	if met := sig.MetFactorCount(); met < f.policy.MinConfluenceFactors {
		return Outcome{Signal: sig, Accepted: false, Reason: "confluence"}
	}
	if sig.Confidence < f.policy.MinConfidenceScore {
		return Outcome{Signal: sig, Accepted: false, Reason: "confidence"}
	}
	if sig.RiskReward < f.policy.MinRiskReward {
		return Outcome{Signal: sig, Accepted: false, Reason: "risk_reward"}
	}
	if f.isDuplicate(sig, recent) {
		return Outcome{Signal: sig, Accepted: false, Reason: "duplicate"}
	}

	f.record(sig)
	return Outcome{Signal: sig, Accepted: true, Reason: ""}
}

// recentSnapshot returns symbol's recent signals created less than
// recentWindowMaxAge before at, oldest first. Stale entries are simply excluded
// here rather than evicted from the ring — the ring's own count-based
// eviction (via PushEvict) handles the "most-recent 100" half of the
// bound, and a lazily-filtered read is cheaper than a background sweep.
func (f *Filter) recentSnapshot(symbol string, at time.Time) []*model.Signal {
	ring, ok := f.recent[symbol]
	if !ok {
		return nil
	}
	cutoff := at.Add(-recentWindowMaxAge)
	all := ring.Snapshot()
	out := make([]*model.Signal, 0, len(all))
	for _, s := range all {
		if s.CreatedAt.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func (f *Filter) record(sig *model.Signal) {
	ring, ok := f.recent[sig.Symbol]
	if !ok {
		ring = ringbuf.New[*model.Signal](recentWindowCapacity)
		f.recent[sig.Symbol] = ring
	}
	ring.PushEvict(sig)
}

// isDuplicate implements spec §4.6's duplicate rule: sig is a duplicate
// of some prior signal within the policy's duplicate window if they share
// direction and timeframe and their entries sit within
// DuplicatePriceTolerancePct of each other — unless RSI moved at least
// duplicateRSIShift points, or price moved at least SignificantMovePct,
// since the prior signal, either of which forces a fresh emission.
func (f *Filter) isDuplicate(sig *model.Signal, recent []*model.Signal) bool {
	for _, prev := range recent {
		if prev.Direction != sig.Direction || prev.Timeframe != sig.Timeframe {
			continue
		}
		if sig.CreatedAt.Sub(prev.CreatedAt) > f.policy.DuplicateWindow {
			continue
		}
		if prev.EntryPrice == 0 {
			continue
		}
		priceMovePct := math.Abs(sig.EntryPrice-prev.EntryPrice) / prev.EntryPrice * 100
		if priceMovePct >= f.policy.SignificantMovePct {
			continue
		}
		rsiDelta := math.Abs(sig.IndicatorsSnapshot.RSI - prev.IndicatorsSnapshot.RSI)
		if rsiDelta >= duplicateRSIShift {
			continue
		}
		if priceMovePct < f.policy.DuplicatePriceTolerancePct {
			return true
		}
	}
	return false
}

// populateConfluenceFactors fills sig.ConfluenceFactors with the seven
// booleans spec §4.6 names, evaluated against sig's own indicators
// snapshot (the last enriched candle the detector fired against) and the
// symbol's recent-signals window.
func populateConfluenceFactors(sig *model.Signal, recent []*model.Signal, window time.Duration) {
	last := sig.IndicatorsSnapshot
	long := sig.Direction == model.Long

	noOpposing := true
	for _, prev := range recent {
		if prev.Direction != sig.Direction && sig.CreatedAt.Sub(prev.CreatedAt) <= window {
			noOpposing = false
			break
		}
	}

	sig.ConfluenceFactors = map[string]bool{
		"price_vs_vwap": (long && last.Close > last.VWAP) || (!long && last.Close < last.VWAP),
		"ema_alignment": (long && last.EMAFast > last.EMASlow && last.EMASlow > last.EMATrend) ||
			(!long && last.EMAFast < last.EMASlow && last.EMASlow < last.EMATrend),
		"volume_spike": last.VolumeRatio >= volumeSpikeThreshold,
		"rsi_band":     (long && last.RSI > 50) || (!long && last.RSI < 50),
		"adx_strength": last.ADX >= adxStrengthThreshold,
		"trend_follow_direction": (long && last.PlusDI > last.MinusDI) ||
			(!long && last.MinusDI > last.PlusDI),
		"no_recent_opposing_signal": noOpposing,
	}
}
