package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/config"
	"github.com/signalforge/scanner/internal/dispatch"
	"github.com/signalforge/scanner/internal/filter"
	"github.com/signalforge/scanner/internal/indicator"
	"github.com/signalforge/scanner/internal/metrics"
	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/regime"
	"github.com/signalforge/scanner/internal/strategy"
)

var errFetch = errors.New("fetch failed")

// erroringSource always fails Fetch, for the consecutive-failure backoff test.
type erroringSource struct{ calls int }

func (e *erroringSource) Connect(ctx context.Context) error { return nil }
func (e *erroringSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, bool, error) {
	e.calls++
	return model.Buffer{}, false, errFetch
}
func (e *erroringSource) Close() error { return nil }

// staleSource always returns a buffer but reports it as not fresh.
type staleSource struct{}

func (staleSource) Connect(ctx context.Context) error { return nil }
func (staleSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, bool, error) {
	return model.Buffer{Symbol: symbol, Timeframe: tf}, false, nil
}
func (staleSource) Close() error { return nil }

// recordingWriter captures every row and report written to it.
type recordingWriter struct {
	rows    []model.ScanRow
	reports []model.DiagnosticReport
}

func (w *recordingWriter) WriteScanRow(ctx context.Context, row model.ScanRow) error {
	w.rows = append(w.rows, row)
	return nil
}
func (w *recordingWriter) WriteDiagnosticReport(ctx context.Context, r model.DiagnosticReport) error {
	w.reports = append(w.reports, r)
	return nil
}
func (w *recordingWriter) Close() error { return nil }

func testSettings() *config.Settings {
	return &config.Settings{
		Symbols:                    []string{"BTCUSDT"},
		Timeframes:                 []string{"1h"},
		PollInterval:               time.Second,
		IndicatorParams:            indicator.DefaultParams(),
		StrategyParams:             strategy.DefaultParamSet(),
		RegimeThresholds:           regime.DefaultThresholds(),
		Policy:                     filter.DefaultPolicy(),
		EnabledStrategies:          map[strategy.Name]bool{},
		AssetOverrides:             map[string]config.AssetOverride{},
		MaxConsecutiveDataFailures: 5,
	}
}

func TestTick_RepeatedFetchFailuresTriggerBackoffAlert(t *testing.T) {
	cfg := testSettings()
	source := &erroringSource{}
	writer := &recordingWriter{}
	disp := dispatch.New()
	alerts := dispatch.NewChannelSink(16)
	disp.Register(alerts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	s := New(cfg, source, writer, disp, nil, metrics.NewHealthStatus())

	for i := 0; i < cfg.MaxConsecutiveDataFailures; i++ {
		s.Tick(ctx)
	}

	// Every tick also dispatches a diagnostic report; skip those.
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-alerts.Events():
			if ev.Kind == model.EventDiagnosticReport {
				continue
			}
			require.Equal(t, model.EventOperationalAlert, ev.Kind)
			require.Equal(t, model.AlertWarn, ev.Alert.Level)
		case <-timeout:
			t.Fatal("expected an operational alert after repeated fetch failures")
		}
		break
	}
	require.Equal(t, cfg.MaxConsecutiveDataFailures, source.calls)
}

func TestTick_StaleBufferSkipsWithoutEmittingSignal(t *testing.T) {
	cfg := testSettings()
	writer := &recordingWriter{}
	disp := dispatch.New()
	signals := dispatch.NewChannelSink(4)
	disp.Register(signals)

	s := New(cfg, staleSource{}, writer, disp, nil, metrics.NewHealthStatus())
	s.Tick(context.Background())

	require.Len(t, writer.rows, 1)
	require.Equal(t, "data_stale", writer.rows[0].SkipReason)
	require.Nil(t, writer.rows[0].EmittedSignal)

	select {
	case <-signals.Events():
		t.Fatal("no signal should have been dispatched for a stale buffer")
	default:
	}
}

func TestTick_InsufficientHistorySkipsWithReason(t *testing.T) {
	cfg := testSettings()
	writer := &recordingWriter{}
	disp := dispatch.New()

	params := indicator.DefaultParams()
	shortBuf := model.Buffer{
		Symbol:    "BTCUSDT",
		Timeframe: model.TF1h,
		Candles:   make([]model.Candle, params.MinRows-1),
	}
	source := &fixedSource{buf: shortBuf}

	s := New(cfg, source, writer, disp, nil, metrics.NewHealthStatus())
	s.Tick(context.Background())

	require.Len(t, writer.rows, 1)
	require.Equal(t, "insufficient_history", writer.rows[0].SkipReason)
}

type fixedSource struct{ buf model.Buffer }

func (f *fixedSource) Connect(ctx context.Context) error { return nil }
func (f *fixedSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, bool, error) {
	return f.buf, true, nil
}
func (f *fixedSource) Close() error { return nil }

func TestShutdown_PersistsFinalDiagnosticReport(t *testing.T) {
	cfg := testSettings()
	writer := &recordingWriter{}
	disp := dispatch.New()

	s := New(cfg, staleSource{}, writer, disp, nil, metrics.NewHealthStatus())
	require.NoError(t, s.shutdown())
	require.Len(t, writer.reports, 1)
}
