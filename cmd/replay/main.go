// Command replay re-runs a recorded candle fixture through the full
// scanner pipeline twice and asserts the emitted signal set is
// identical both times (spec §8's round-trip property: "replaying the
// same candle sequence through the full pipeline produces the same
// emitted signal set"). It computes no P&L and holds no broker
// connection — unlike the teacher's cmd/backtest, which replays ticks
// for strategy validation against realized outcomes, this tool only
// checks determinism and prints a diagnostic summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/signalforge/scanner/config"
	"github.com/signalforge/scanner/internal/dispatch"
	"github.com/signalforge/scanner/internal/metrics"
	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/scanner"
)

// fixtureSet is the on-disk shape: one Buffer per (symbol, timeframe).
type fixtureSet struct {
	Buffers []model.Buffer `json:"buffers"`
}

// fixtureSource is a model.CandleSource that serves a fixed set of
// buffers loaded once at startup; every Fetch returns the full buffer
// for that key, always reporting fresh.
type fixtureSource struct {
	byKey map[string]model.Buffer
}

func newFixtureSource(set fixtureSet) *fixtureSource {
	byKey := make(map[string]model.Buffer, len(set.Buffers))
	for _, b := range set.Buffers {
		byKey[b.Key()] = b
	}
	return &fixtureSource{byKey: byKey}
}

func (f *fixtureSource) Connect(ctx context.Context) error { return nil }

func (f *fixtureSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, bool, error) {
	buf, ok := f.byKey[symbol+":"+string(tf)]
	if !ok {
		return model.Buffer{}, false, fmt.Errorf("replay: no fixture data for %s:%s", symbol, tf)
	}
	return buf, true, nil
}

func (f *fixtureSource) Close() error { return nil }

// memoryWriter discards every row and report; replay never persists
// anything, since it exists only to check pipeline determinism.
type memoryWriter struct{}

func (memoryWriter) WriteScanRow(ctx context.Context, row model.ScanRow) error           { return nil }
func (memoryWriter) WriteDiagnosticReport(ctx context.Context, r model.DiagnosticReport) error { return nil }
func (memoryWriter) Close() error                                                       { return nil }

func main() {
	fixturePath := flag.String("fixture", "", "path to a JSON candle fixture ({\"buffers\":[...]})")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "replay: -fixture is required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: read fixture: %v\n", err)
		os.Exit(1)
	}
	var set fixtureSet
	if err := json.Unmarshal(raw, &set); err != nil {
		fmt.Fprintf(os.Stderr, "replay: parse fixture: %v\n", err)
		os.Exit(1)
	}

	cfg := buildSettings(set)

	firstRun := runOnce(cfg, set)
	secondRun := runOnce(cfg, set)

	fmt.Printf("replay: first run emitted %d signal(s), second run emitted %d signal(s)\n",
		len(firstRun), len(secondRun))

	if signalSetsEqual(firstRun, secondRun) {
		fmt.Println("replay: round-trip OK — emitted signal set is stable across runs")
		return
	}
	fmt.Println("replay: round-trip FAILED — emitted signal set differs between runs")
	os.Exit(1)
}

// buildSettings derives a minimal Settings from the fixture's own
// (symbol, timeframe) pairs, so the scanner only evaluates what the
// fixture actually provides.
func buildSettings(set fixtureSet) *config.Settings {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Settings{}
	}

	symbolSeen := map[string]bool{}
	tfSeen := map[string]bool{}
	var symbols, timeframes []string
	for _, b := range set.Buffers {
		if !symbolSeen[b.Symbol] {
			symbolSeen[b.Symbol] = true
			symbols = append(symbols, b.Symbol)
		}
		tf := string(b.Timeframe)
		if !tfSeen[tf] {
			tfSeen[tf] = true
			timeframes = append(timeframes, tf)
		}
	}
	cfg.Symbols = symbols
	cfg.Timeframes = timeframes
	return cfg
}

// signalKey is the comparable projection of a Signal the round-trip
// check cares about — ID and CreatedAt are expected to differ run to
// run and are deliberately excluded.
type signalKey struct {
	Symbol     string
	Direction  string
	Strategy   string
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
}

func runOnce(cfg *config.Settings, set fixtureSet) []signalKey {
	source := newFixtureSource(set)
	disp := dispatch.New()
	collector := dispatch.NewChannelSink(256)
	disp.Register(collector)

	s := scanner.New(cfg, source, memoryWriter{}, disp, nil, metrics.NewHealthStatus())
	ctx := context.Background()
	if err := source.Connect(ctx); err == nil {
		s.Tick(ctx)
	}
	collector.Close()

	var out []signalKey
	for ev := range collector.Events() {
		if ev.Kind != model.EventSignalEmitted || ev.Signal == nil {
			continue
		}
		sig := ev.Signal
		out = append(out, signalKey{
			Symbol:     sig.Symbol,
			Direction:  string(sig.Direction),
			Strategy:   sig.StrategyName,
			EntryPrice: sig.EntryPrice,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
		})
	}
	return out
}

func signalSetsEqual(a, b []signalKey) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Slice(a, func(i, j int) bool { return fmt.Sprint(a[i]) < fmt.Sprint(a[j]) })
	sort.Slice(b, func(i, j int) bool { return fmt.Sprint(b[i]) < fmt.Sprint(b[j]) })
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
