// Package metrics exposes the scanner's Prometheus metric families and
// an HTTP /metrics + /healthz server, carried over from the teacher's
// ambient observability stack and renamed for this pipeline's stages
// (spec §11 "supplemented features": operational visibility beyond the
// outbound dispatch sink).
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric the scanner pipeline emits.
type Metrics struct {
	CandlesFetchedTotal   *prometheus.CounterVec // labels: symbol, timeframe, provider
	ProviderFailoversTotal prometheus.Counter
	DataErrorsTotal       *prometheus.CounterVec // labels: kind (connect/timeout/rate_limited/unavailable/auth/transient/unknown)

	IndicatorComputeDur prometheus.Histogram
	RegimeClassifyTotal *prometheus.CounterVec // labels: regime

	StrategyAttemptsTotal  *prometheus.CounterVec // labels: strategy
	StrategySuccessesTotal *prometheus.CounterVec // labels: strategy
	StrategyErrorsTotal    *prometheus.CounterVec // labels: strategy

	SignalsEmittedTotal   *prometheus.CounterVec // labels: strategy, direction
	SignalsRejectedTotal  *prometheus.CounterVec // labels: reason
	OpenTradesGauge       prometheus.Gauge
	TradeEventsTotal      *prometheus.CounterVec // labels: kind

	DispatchDropsTotal  *prometheus.CounterVec // labels: sink, priority
	DispatchLatencyDur  prometheus.Histogram

	RingBufOverflow prometheus.Counter

	CircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CircuitBreakerTrips prometheus.Counter

	ScanDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesFetchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_candles_fetched_total",
			Help: "Candle buffers fetched from a data-source adapter",
		}, []string{"symbol", "timeframe", "provider"}),
		ProviderFailoversTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_provider_failovers_total",
			Help: "Times the data source fell back to the next provider in the chain",
		}),
		DataErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_data_errors_total",
			Help: "Data-source errors by classified kind",
		}, []string{"kind"}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_indicator_compute_duration_seconds",
			Help:    "Indicator engine enrich() latency per buffer",
			Buckets: prometheus.DefBuckets,
		}),
		RegimeClassifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_regime_classify_total",
			Help: "Market regime classifications by resulting regime",
		}, []string{"regime"}),

		StrategyAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_strategy_attempts_total",
			Help: "Strategy Detect() invocations, by strategy",
		}, []string{"strategy"}),
		StrategySuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_strategy_successes_total",
			Help: "Strategy Detect() calls that produced a signal, by strategy",
		}, []string{"strategy"}),
		StrategyErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_strategy_errors_total",
			Help: "Strategy Detect() calls that returned an error, by strategy",
		}, []string{"strategy"}),

		SignalsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_emitted_total",
			Help: "Signals that survived the quality filter, by strategy and direction",
		}, []string{"strategy", "direction"}),
		SignalsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_rejected_total",
			Help: "Signals rejected by the quality filter, by reason",
		}, []string{"reason"}),
		OpenTradesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_open_trades",
			Help: "Trades currently tracked as open",
		}),
		TradeEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_trade_events_total",
			Help: "Trade lifecycle events, by kind",
		}, []string{"kind"}),

		DispatchDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_dispatch_drops_total",
			Help: "Events dropped by the dispatch sink under backpressure, by sink and priority",
		}, []string{"sink", "priority"}),
		DispatchLatencyDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_dispatch_latency_seconds",
			Help:    "Sink.Accept latency",
			Buckets: prometheus.DefBuckets,
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped entries)",
		}),

		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_circuit_breaker_state",
			Help: "Data-source circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_circuit_breaker_trips_total",
			Help: "Times the data-source circuit breaker tripped open",
		}),

		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_tick_duration_seconds",
			Help:    "Wall-clock duration of one full scan tick across all symbols/timeframes",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.CandlesFetchedTotal, m.ProviderFailoversTotal, m.DataErrorsTotal,
		m.IndicatorComputeDur, m.RegimeClassifyTotal,
		m.StrategyAttemptsTotal, m.StrategySuccessesTotal, m.StrategyErrorsTotal,
		m.SignalsEmittedTotal, m.SignalsRejectedTotal, m.OpenTradesGauge, m.TradeEventsTotal,
		m.DispatchDropsTotal, m.DispatchLatencyDur,
		m.RingBufOverflow,
		m.CircuitBreakerState, m.CircuitBreakerTrips,
		m.ScanDur,
	)

	return m
}

// HealthStatus represents the scanner's operational health.
type HealthStatus struct {
	mu sync.RWMutex

	DataSourceConnected bool      `json:"data_source_connected"`
	LastScanAt          time.Time `json:"last_scan_at"`
	DispatchSinkOK      bool      `json:"dispatch_sink_ok"`
	ReportWriterOK      bool      `json:"report_writer_ok"`
	ConsecutiveFailures int       `json:"consecutive_failures"`

	StartedAt time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetDataSourceConnected(v bool) {
	h.mu.Lock()
	h.DataSourceConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastScanAt(t time.Time) {
	h.mu.Lock()
	h.LastScanAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetDispatchSinkOK(v bool) {
	h.mu.Lock()
	h.DispatchSinkOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetReportWriterOK(v bool) {
	h.mu.Lock()
	h.ReportWriterOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetConsecutiveFailures(n int) {
	h.mu.Lock()
	h.ConsecutiveFailures = n
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.DataSourceConnected || !h.DispatchSinkOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.DataSourceConnected && !h.ReportWriterOK {
		overallStatus = "unhealthy"
	}

	scanAge := ""
	if !h.LastScanAt.IsZero() {
		scanAge = time.Since(h.LastScanAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status              string `json:"status"`
		Uptime              string `json:"uptime"`
		DataSourceConnected bool   `json:"data_source_connected"`
		LastScanAt          string `json:"last_scan_at"`
		ScanAge             string `json:"scan_age"`
		DispatchSinkOK      bool   `json:"dispatch_sink_ok"`
		ReportWriterOK      bool   `json:"report_writer_ok"`
		ConsecutiveFailures int    `json:"consecutive_failures"`
	}{
		Status:              overallStatus,
		Uptime:              time.Since(h.StartedAt).Round(time.Second).String(),
		DataSourceConnected: h.DataSourceConnected,
		LastScanAt:          h.LastScanAt.Format(time.RFC3339),
		ScanAge:             scanAge,
		DispatchSinkOK:      h.DispatchSinkOK,
		ReportWriterOK:      h.ReportWriterOK,
		ConsecutiveFailures: h.ConsecutiveFailures,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start(onErr func(error)) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if onErr != nil {
				onErr(err)
			}
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
