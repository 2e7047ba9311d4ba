// Package indicator computes the rolling technical indicators the
// strategy library depends on, from a fetched candle buffer (spec §4.2).
//
// Enrich is a stateless batch operation: it recomputes the full set of
// indicators over the window it is given every call. The engine asserts
// a strict validity contract (InvalidData / InsufficientHistory) instead
// of ever emitting silent NaNs past the warm-up window — spec §4.2 calls
// this "the single most important contract in the engine".
package indicator

// VWAPReset controls when the cumulative VWAP accumulator resets.
type VWAPReset string

const (
	VWAPResetDaily   VWAPReset = "daily"
	VWAPResetSession VWAPReset = "session"
)

// Params enumerates the indicator periods spec §4.2 lists. Zero values
// are invalid — Validate rejects them before Enrich ever runs.
type Params struct {
	EMAFastPeriod  int
	EMASlowPeriod  int
	EMATrendPeriod int
	EMALongPeriod  int

	ATRPeriod int
	RSIPeriod int // 6 for scalp timeframes, 14 for swing
	ADXPeriod int

	VolumeMAPeriod int

	StochKPeriod      int
	StochDPeriod      int
	StochSmoothPeriod int
	StochEnabled      bool

	VWAPReset VWAPReset

	// MinRows is the minimum buffer length Enrich requires before the
	// warm-up trim (spec §3: "typically 200; 500 for long-period
	// indicators").
	MinRows int
}

// DefaultParams returns the spec §4.2 swing-timeframe defaults.
func DefaultParams() Params {
	return Params{
		EMAFastPeriod:     9,
		EMASlowPeriod:     21,
		EMATrendPeriod:    50,
		EMALongPeriod:     200,
		ATRPeriod:         14,
		RSIPeriod:         14,
		ADXPeriod:         14,
		VolumeMAPeriod:    20,
		StochKPeriod:      14,
		StochDPeriod:      3,
		StochSmoothPeriod: 3,
		StochEnabled:      false,
		VWAPReset:         VWAPResetDaily,
		MinRows:           200,
	}
}

// ScalpParams returns the spec §4.2 scalp-timeframe variant (RSI period 6).
func ScalpParams() Params {
	p := DefaultParams()
	p.RSIPeriod = 6
	return p
}

// maxPeriod returns the longest lookback period Enrich needs, used to
// size the warm-up trim.
func (p Params) maxPeriod() int {
	m := p.EMALongPeriod
	for _, v := range []int{p.EMAFastPeriod, p.EMASlowPeriod, p.EMATrendPeriod,
		p.ATRPeriod, p.RSIPeriod, p.ADXPeriod, p.VolumeMAPeriod} {
		if v > m {
			m = v
		}
	}
	return m
}

// Validate rejects non-positive periods and an inconsistent VWAP reset
// policy before Enrich runs (spec §6 "invalid values ... fail startup").
func (p Params) Validate() error {
	periods := map[string]int{
		"ema_fast": p.EMAFastPeriod, "ema_slow": p.EMASlowPeriod,
		"ema_trend": p.EMATrendPeriod, "ema_long": p.EMALongPeriod,
		"atr": p.ATRPeriod, "rsi": p.RSIPeriod, "adx": p.ADXPeriod,
		"volume_ma": p.VolumeMAPeriod,
	}
	for name, v := range periods {
		if v <= 0 {
			return &ConfigError{Field: name, Reason: "period must be positive"}
		}
	}
	if p.StochEnabled {
		if p.StochKPeriod <= 0 || p.StochDPeriod <= 0 || p.StochSmoothPeriod <= 0 {
			return &ConfigError{Field: "stochastic", Reason: "periods must be positive"}
		}
	}
	if p.VWAPReset != VWAPResetDaily && p.VWAPReset != VWAPResetSession {
		return &ConfigError{Field: "vwap_reset", Reason: "must be 'daily' or 'session'"}
	}
	if p.MinRows <= 0 {
		return &ConfigError{Field: "min_rows", Reason: "must be positive"}
	}
	return nil
}

// ConfigError reports an invalid indicator parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "indicator: invalid " + e.Field + ": " + e.Reason
}
