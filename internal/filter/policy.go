package filter

import "time"

// Policy bundles the signal-quality filter's tunable thresholds (spec
// §4.6). config merges per-asset overrides into one Policy per symbol.
type Policy struct {
	MinConfluenceFactors int     // minimum confluence factors that must evaluate true
	MinConfidenceScore   int     // minimum Signal.Confidence (1..5)
	MinRiskReward        float64 // minimum Signal.RiskReward

	DuplicateWindow            time.Duration // suppression window for same symbol+direction+timeframe
	DuplicatePriceTolerancePct  float64       // price delta, as % of entry, below which a repeat is a duplicate
	SignificantMovePct          float64       // price delta, as % of entry, that overrides duplicate suppression

	// BypassEnabled, when true, lets a signal through regardless of the
	// thresholds above, tagging it BypassTagged (spec §4.6). AutoDisable
	// turns bypass back off after the given duration with no further
	// configuration — a scanner left running overnight in bypass mode
	// doesn't stay there.
	BypassEnabled     bool
	BypassAutoDisable time.Duration
}

// DefaultPolicy returns spec §4.6's stated defaults.
func DefaultPolicy() Policy {
	return Policy{
		MinConfluenceFactors:       3,
		MinConfidenceScore:         3,
		MinRiskReward:              1.2,
		DuplicateWindow:            600 * time.Second,
		DuplicatePriceTolerancePct: 1.0,
		SignificantMovePct:         1.5,
		BypassEnabled:              false,
		BypassAutoDisable:          2 * time.Hour,
	}
}

// Validate rejects a policy with non-positive risk/reward or negative
// windows before it's wired into a filter (spec §6 startup validation).
func (p Policy) Validate() error {
	if p.MinRiskReward <= 0 {
		return &ConfigError{Field: "min_risk_reward", Reason: "must be positive"}
	}
	if p.MinConfluenceFactors < 0 || p.MinConfidenceScore < 0 {
		return &ConfigError{Field: "min_confluence_factors/min_confidence_score", Reason: "must be non-negative"}
	}
	if p.DuplicateWindow < 0 || p.BypassAutoDisable < 0 {
		return &ConfigError{Field: "duplicate_window/bypass_auto_disable", Reason: "must be non-negative"}
	}
	return nil
}

// ConfigError reports an invalid filter policy field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "filter: invalid " + e.Field + ": " + e.Reason
}
