// Package config loads and validates the scanner's runtime settings,
// replacing the teacher's flat environment-variable struct with the
// typed, validated Settings this spec's broader surface needs (spec §6:
// "dynamic config objects" → "enumerated, validated settings").
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalforge/scanner/internal/datasource"
	"github.com/signalforge/scanner/internal/filter"
	"github.com/signalforge/scanner/internal/indicator"
	"github.com/signalforge/scanner/internal/regime"
	"github.com/signalforge/scanner/internal/strategy"
)

// AssetOverride narrows the base indicator/strategy/filter parameters
// for one asset class (crypto, forex, index, metal, ...). Symbols are
// mapped to a class by internal/datasource's canonicalization table.
type AssetOverride struct {
	Class            string
	IndicatorParams  *indicator.Params // nil leaves the base Settings.IndicatorParams untouched
	StrategyParams   *strategy.ParamSet
	RegimeThresholds *regime.Thresholds
	Policy           *filter.Policy
}

// Settings is the validated, merged configuration the scanner driver is
// built from (spec §6 "Configuration input").
type Settings struct {
	Symbols      []string
	Timeframes   []string // spec timeframe strings, e.g. "1m","5m","1h"
	PollInterval time.Duration

	IndicatorParams  indicator.Params
	StrategyParams   strategy.ParamSet
	RegimeThresholds regime.Thresholds
	Policy           filter.Policy

	// EnabledStrategies restricts the registry to a subset; empty means
	// all twelve detectors run.
	EnabledStrategies map[strategy.Name]bool

	AssetOverrides map[string]AssetOverride

	// Infrastructure, carried over from the teacher's Config in spirit.
	RedisAddr   string
	SQLitePath  string
	MetricsAddr string

	DataProviders []string // ordered provider names for the fallback chain (spec §4.1)

	MaxConsecutiveDataFailures int // scanner backoff trigger (spec §5)
}

// EffectiveParams returns the indicator/strategy/regime/filter
// parameters for the given asset class (see internal/datasource's
// canonicalization table for symbol -> class), applying its override
// (if any) over the base Settings.
func (s *Settings) EffectiveParams(class string) (indicator.Params, strategy.ParamSet, regime.Thresholds, filter.Policy) {
	ip, sp, rt, pol := s.IndicatorParams, s.StrategyParams, s.RegimeThresholds, s.Policy
	ov, ok := s.AssetOverrides[class]
	if !ok {
		return ip, sp, rt, pol
	}
	if ov.IndicatorParams != nil {
		ip = *ov.IndicatorParams
	}
	if ov.StrategyParams != nil {
		sp = *ov.StrategyParams
	}
	if ov.RegimeThresholds != nil {
		rt = *ov.RegimeThresholds
	}
	if ov.Policy != nil {
		pol = *ov.Policy
	}
	return ip, sp, rt, pol
}

// Validate rejects the invalid-value cases spec §6 names explicitly:
// negative periods, an inverted RSI band, and a non-positive min R:R.
// Unknown fields simply don't exist in this typed struct, so there is
// nothing to "ignore" the way a map-based loader would.
func (s *Settings) Validate() error {
	if err := s.IndicatorParams.Validate(); err != nil {
		return err
	}
	if s.StrategyParams.MeanReversionRSILow >= s.StrategyParams.MeanReversionRSIHigh {
		return fmt.Errorf("config: mean_reversion_rsi_low (%v) must be below mean_reversion_rsi_high (%v)",
			s.StrategyParams.MeanReversionRSILow, s.StrategyParams.MeanReversionRSIHigh)
	}
	if err := s.Policy.Validate(); err != nil {
		return err
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive")
	}
	if len(s.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	if len(s.Timeframes) == 0 {
		return fmt.Errorf("config: at least one timeframe is required")
	}
	for class, ov := range s.AssetOverrides {
		if ov.IndicatorParams != nil {
			if err := ov.IndicatorParams.Validate(); err != nil {
				return fmt.Errorf("config: asset override %q: %w", class, err)
			}
		}
		if ov.Policy != nil {
			if err := ov.Policy.Validate(); err != nil {
				return fmt.Errorf("config: asset override %q: %w", class, err)
			}
		}
	}
	return nil
}

// Load reads Settings from environment variables, in the teacher's
// mustEnv/getEnv idiom, and validates the result before returning.
func Load() (*Settings, error) {
	s := &Settings{
		Symbols:      splitCSV(getEnv("SCANNER_SYMBOLS", "BTCUSDT,ETHUSDT")),
		Timeframes:   splitCSV(getEnv("SCANNER_TIMEFRAMES", "5m,15m,1h")),
		PollInterval: getEnvDuration("SCANNER_POLL_INTERVAL", 30*time.Second),

		IndicatorParams:  indicator.DefaultParams(),
		StrategyParams:   strategy.DefaultParamSet(),
		RegimeThresholds: regime.DefaultThresholds(),
		Policy:           filter.DefaultPolicy(),

		EnabledStrategies: map[strategy.Name]bool{},
		AssetOverrides:    defaultAssetOverrides(),

		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/scanner.db"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		DataProviders: splitCSV(getEnv("DATA_PROVIDERS", "primary_ws,secondary_ws,http_fallback")),

		MaxConsecutiveDataFailures: getEnvInt("MAX_CONSECUTIVE_DATA_FAILURES", 5),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	warnUnrecognizedSymbols(s.Symbols)
	return s, nil
}

// warnUnrecognizedSymbols logs once, at startup, for every configured
// symbol that canonicalizes to "other" — spec §4.1 "unknown symbols
// default to other with conservative parameters and a startup warning".
func warnUnrecognizedSymbols(symbols []string) {
	for _, sym := range symbols {
		if datasource.ClassOf(sym) == datasource.ClassOther {
			log.Printf("[config] symbol %q does not canonicalize to a known asset class, "+
				"defaulting to class %q with conservative parameters", sym, datasource.ClassOther)
		}
	}
}

// MustLoad is Load, but fatal on error, for use from cmd/ entrypoints
// the way the teacher's main.go called config.Load() unconditionally.
func MustLoad() *Settings {
	s, err := Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return s
}

// defaultAssetOverrides implements spec §4.4's tuning example directly:
// higher-volatility index futures demand a higher volume confirmation
// (1.5x vs crypto's 1.3x baseline), while calmer metals loosen it.
func defaultAssetOverrides() map[string]AssetOverride {
	indexParams := strategy.DefaultParamSet()
	indexParams.VolumeRatioScale = 1.5 / 1.3

	metalParams := strategy.DefaultParamSet()
	metalParams.VolumeRatioScale = 1.2 / 1.3

	return map[string]AssetOverride{
		"index": {Class: "index", StrategyParams: &indexParams},
		"metal": {Class: "metal", StrategyParams: &metalParams},
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
