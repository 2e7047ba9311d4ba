// Package scanner implements the driver (spec §4.9): one periodic loop
// per (config, symbol-set) that threads a tick through every pipeline
// stage — fetch, enrich, validate, classify, orchestrate strategies,
// filter, emit, update tracker, record diagnostics — and sleeps until
// the next one. Grounded on the teacher's cmd/indengine/main.go
// wiring shape (context + signal.Notify + deferred resource Close) and
// its goroutine-per-concern layout, generalized from a stream consumer
// into a poll-and-process loop scheduled with robfig/cron instead of a
// hand-rolled time.Ticker.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/signalforge/scanner/config"
	"github.com/signalforge/scanner/internal/datasource"
	"github.com/signalforge/scanner/internal/diagnostics"
	"github.com/signalforge/scanner/internal/dispatch"
	"github.com/signalforge/scanner/internal/filter"
	"github.com/signalforge/scanner/internal/indicator"
	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/metrics"
	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/orchestrator"
	"github.com/signalforge/scanner/internal/regime"
	"github.com/signalforge/scanner/internal/strategy"
	"github.com/signalforge/scanner/internal/tracker"
)

// backoffDuration is how long a scanner pauses after emitting the
// repeated-failure operational alert, before resuming its normal cadence.
const backoffDuration = 2 * time.Minute

// assetParams bundles the per-class parameter set a tick uses, cached
// per asset class so config.EffectiveParams isn't re-merged every tick.
type assetParams struct {
	engine     *indicator.Engine
	fetchCount int
	strategies strategy.ParamSet
	thresholds regime.Thresholds
	policy     filter.Policy
	filterInst *filter.Filter
}

// Scanner runs the full C1-C8 pipeline for one configured symbol set and
// dispatches outbound events through Sinks. Per spec §5 its internals
// are single-threaded cooperative — one tick evaluates one (symbol,
// timeframe) pair at a time — so Tracker/Counters/Filter need no
// additional locking beyond what they already carry for cross-scanner
// sharing.
type Scanner struct {
	settings *config.Settings
	source   model.CandleSource
	writer   model.ReportWriter
	disp     *dispatch.Dispatcher
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus

	tracker *tracker.Tracker
	diag    *diagnostics.Counters

	byClass map[string]*assetParams

	consecutiveFailures map[string]int // keyed by "symbol:timeframe"
	backoffUntil        time.Time
}

// New builds a Scanner from settings and its wired dependencies. The
// caller owns source/writer/disp's lifecycle (Connect/Close) except for
// source.Connect, which Run calls itself before its first tick.
func New(settings *config.Settings, source model.CandleSource, writer model.ReportWriter, disp *dispatch.Dispatcher, m *metrics.Metrics, health *metrics.HealthStatus) *Scanner {
	return &Scanner{
		settings:            settings,
		source:              source,
		writer:              writer,
		disp:                disp,
		metrics:             m,
		health:              health,
		tracker:             tracker.New(),
		diag:                diagnostics.New(time.Now()),
		byClass:             make(map[string]*assetParams),
		consecutiveFailures: make(map[string]int),
	}
}

func (s *Scanner) paramsFor(class string) (*assetParams, error) {
	if p, ok := s.byClass[class]; ok {
		return p, nil
	}
	ip, sp, rt, pol := s.settings.EffectiveParams(class)
	engine, err := indicator.NewEngine(ip)
	if err != nil {
		return nil, fmt.Errorf("scanner: build indicator engine for class %q: %w", class, err)
	}
	p := &assetParams{engine: engine, fetchCount: ip.MinRows, strategies: sp, thresholds: rt, policy: pol}
	s.byClass[class] = p
	return p, nil
}

// Run starts the cron-scheduled tick loop and blocks until ctx is
// cancelled. On cancellation it lets the in-flight tick finish, flushes
// diagnostics, serializes unclosed trades, and returns.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.source.Connect(ctx); err != nil {
		return fmt.Errorf("scanner: connect data source: %w", err)
	}
	s.health.SetDataSourceConnected(true)

	sched := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", s.settings.PollInterval)
	tickCh := make(chan struct{}, 1)
	_, err := sched.AddFunc(spec, func() {
		select {
		case tickCh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("scanner: schedule tick: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	logger.Default.Info().Str("poll_interval", s.settings.PollInterval.String()).
		Strs("symbols", s.settings.Symbols).Msg("scanner: started")

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-tickCh:
			if time.Now().Before(s.backoffUntil) {
				continue
			}
			s.runTick(ctx)
		}
	}
}

func (s *Scanner) shutdown() error {
	logger.Default.Info().Msg("scanner: shutdown signal received, finishing in-flight work")
	report := s.diag.Summarize(time.Now())
	if err := s.writer.WriteDiagnosticReport(context.Background(), report); err != nil {
		logger.Default.Warn().Err(err).Msg("scanner: failed to persist final diagnostic report")
	}
	unclosed, err := s.tracker.ShutdownReport()
	if err != nil {
		logger.Default.Warn().Err(err).Msg("scanner: failed to serialize unclosed trades")
	} else {
		logger.Default.Info().Int("bytes", len(unclosed)).Msg("scanner: unclosed trades report serialized")
	}
	return nil
}

// Tick runs exactly one pass over every configured (symbol, timeframe)
// pair, bypassing the cron schedule. Exported for the replay tool's
// round-trip check (spec §8), which needs to drive ticks deterministically
// rather than wait on a timer.
func (s *Scanner) Tick(ctx context.Context) {
	s.runTick(ctx)
}

// runTick evaluates every configured (symbol, timeframe) pair once, then
// advances every open trade against a freshly fetched close price.
func (s *Scanner) runTick(ctx context.Context) {
	start := time.Now()
	for _, symbol := range s.settings.Symbols {
		class := datasource.ClassOf(symbol)
		for _, tfStr := range s.settings.Timeframes {
			tf := model.Timeframe(tfStr)
			s.scanOne(ctx, symbol, tf, class)
		}
	}
	s.advanceTrades(ctx)

	report := s.diag.Summarize(time.Now())
	s.disp.DispatchDiagnostic(&report)
	if err := s.writer.WriteDiagnosticReport(ctx, report); err != nil {
		logger.Default.Warn().Err(err).Msg("scanner: write diagnostic report")
	}

	s.health.SetLastScanAt(time.Now())
	if s.metrics != nil {
		s.metrics.ScanDur.Observe(time.Since(start).Seconds())
	}
}

// scanOne runs the full C1-C6 pipeline for one (symbol, timeframe) pair,
// skipping (not failing) the tick on any data-quality problem.
func (s *Scanner) scanOne(ctx context.Context, symbol string, tf model.Timeframe, class string) {
	key := symbol + ":" + string(tf)
	params, err := s.paramsFor(class)
	if err != nil {
		logger.Default.Error().Err(err).Str("class", class).Msg("scanner: asset params")
		return
	}

	buf, fresh, err := s.source.Fetch(ctx, symbol, tf, params.fetchCount)
	if err != nil {
		s.recordDataFailure(key, "fetch_error")
		return
	}
	if !fresh {
		s.diag.RecordDataQuality("data_stale")
		s.writeSkipRow(ctx, symbol, tf, "data_stale")
		return
	}

	enriched, err := params.engine.Enrich(buf)
	if err != nil {
		s.recordDataFailure(key, classifyEnrichError(err))
		s.writeSkipRow(ctx, symbol, tf, classifyEnrichError(err))
		return
	}
	s.consecutiveFailures[key] = 0

	last, ok := enriched.Last()
	if !ok {
		s.diag.RecordDataQuality("empty_buffer")
		return
	}

	condition, reg := regime.Classify(last, params.thresholds)
	if reg == regime.Undefined {
		s.diag.RecordDataQuality("undefined_regime")
		s.writeSkipRow(ctx, symbol, tf, "undefined_regime")
		return
	}
	if s.metrics != nil {
		s.metrics.RegimeClassifyTotal.WithLabelValues(string(reg)).Inc()
	}

	regimeKey := orchestrator.RegimeKey(
		condition.TrendStrength == model.TrendStrong,
		condition.Volatility == model.VolatilityHigh,
		condition.Volatility == model.VolatilityLow,
		condition.IsRanging,
	)
	detectors := orchestrator.Select(regimeKey, s.settings.EnabledStrategies)

	for _, d := range detectors {
		s.diag.RecordAttempt(string(d.Name()))
		if s.metrics != nil {
			s.metrics.StrategyAttemptsTotal.WithLabelValues(string(d.Name())).Inc()
		}
	}

	sig, conflicts, attemptErrs := orchestrator.Run(detectors, strategy.Input{
		Buf: enriched, Condition: condition, Regime: reg, Params: params.strategies,
	})
	for _, ae := range attemptErrs {
		s.diag.RecordRejection("detector_error")
		if s.metrics != nil {
			s.metrics.StrategyErrorsTotal.WithLabelValues(ae.Strategy).Inc()
		}
		logger.Default.Warn().Str("strategy", ae.Strategy).Err(ae.Err).Msg("detector error")
	}
	for range conflicts {
		s.diag.RecordRejection("conflict")
	}

	if sig == nil {
		s.writeSkipRow(ctx, symbol, tf, "no_signal")
		return
	}

	fltr := s.filterForParams(params)
	outcome := fltr.Evaluate(sig)
	if !outcome.Accepted {
		s.diag.RecordRejection(outcome.Reason)
		if s.metrics != nil {
			s.metrics.SignalsRejectedTotal.WithLabelValues(outcome.Reason).Inc()
		}
		s.writeSkipRow(ctx, symbol, tf, "filter_"+outcome.Reason)
		return
	}

	s.diag.RecordSuccess(sig.StrategyName, sig.CreatedAt)
	if s.metrics != nil {
		s.metrics.SignalsEmittedTotal.WithLabelValues(sig.StrategyName, string(sig.Direction)).Inc()
		s.metrics.StrategySuccessesTotal.WithLabelValues(sig.StrategyName).Inc()
	}
	s.disp.DispatchSignal(ctx, sig)
	s.tracker.Open(*sig, time.Now())

	row := model.ScanRow{Symbol: symbol, Timeframe: tf, At: time.Now().Unix(), Condition: condition, EmittedSignal: sig}
	if err := s.writer.WriteScanRow(ctx, row); err != nil {
		logger.Default.Warn().Err(err).Msg("scanner: write scan row")
	}
}

func (s *Scanner) filterForParams(p *assetParams) *filter.Filter {
	if p.filterInst == nil {
		p.filterInst = filter.New(p.policy)
	}
	return p.filterInst
}

// advanceTrades updates every open trade against the close of a new
// one-candle fetch for its own symbol/timeframe (skipping the trade when
// that fetch fails or is stale), dispatching any terminal or
// lifecycle event that fires and pruning terminal trades afterward.
func (s *Scanner) advanceTrades(ctx context.Context) {
	now := time.Now()
	for _, trade := range s.tracker.OpenTrades() {
		buf, fresh, err := s.source.Fetch(ctx, trade.Signal.Symbol, trade.Signal.Timeframe, 1)
		if err != nil || !fresh {
			continue
		}
		last, ok := buf.Last()
		if !ok {
			continue
		}
		ev := s.tracker.Update(trade, last.Close, now)
		if ev == nil {
			continue
		}
		s.disp.DispatchTrade(ctx, ev)
		if s.metrics != nil {
			s.metrics.TradeEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		}
	}
	s.tracker.Prune()
	if s.metrics != nil {
		s.metrics.OpenTradesGauge.Set(float64(len(s.tracker.OpenTrades())))
	}
}

// recordDataFailure records one data-quality failure for key, and once
// consecutive failures reach the alert floor, dispatches an operational
// alert and enters a cooldown backoff (spec §4.9).
func (s *Scanner) recordDataFailure(key, reason string) {
	s.diag.RecordDataQuality(reason)
	s.consecutiveFailures[key]++
	floor := s.settings.MaxConsecutiveDataFailures
	if floor <= 0 {
		floor = 5
	}
	if s.consecutiveFailures[key] < floor {
		return
	}
	s.backoffUntil = time.Now().Add(backoffDuration)
	s.disp.DispatchAlert(&model.OperationalAlert{
		Level: model.AlertWarn,
		Text:  fmt.Sprintf("%s: %d consecutive data failures (%s), backing off for %s", key, s.consecutiveFailures[key], reason, backoffDuration),
		At:    time.Now(),
	})
	s.health.SetConsecutiveFailures(s.consecutiveFailures[key])
}

func (s *Scanner) writeSkipRow(ctx context.Context, symbol string, tf model.Timeframe, reason string) {
	row := model.ScanRow{Symbol: symbol, Timeframe: tf, At: time.Now().Unix(), SkipReason: reason}
	if err := s.writer.WriteScanRow(ctx, row); err != nil {
		logger.Default.Warn().Err(err).Msg("scanner: write skip row")
	}
}

func classifyEnrichError(err error) string {
	var insufficient *indicator.InsufficientHistoryError
	var invalid *indicator.InvalidDataError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_history"
	case errors.As(err, &invalid):
		return "invalid_data"
	default:
		return "enrich_error"
	}
}
