// Package notification implements a dispatch sink that formats
// structured events (spec §6 "Sink.accept(event)") into one human
// readable log line each, the same role the teacher's LogNotifier
// played for free-text alerts, generalized here to the scanner's full
// event envelope instead of a single Alert{Level,Title,Message} shape.
package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/model"
)

// LogSink formats every dispatched event into a structured log entry.
// It implements model.Sink.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink that writes through log. A logger whose
// level is zerolog.NoLevel is replaced by logger.Default; the zero-value
// Logger (DebugLevel) is not detected and is used as given.
func NewLogSink(log zerolog.Logger) *LogSink {
	if log.GetLevel() == zerolog.NoLevel {
		log = logger.Default
	}
	return &LogSink{log: log}
}

// Accept formats ev at a level keyed off its kind and severity.
func (s *LogSink) Accept(ctx context.Context, ev model.Event) error {
	l := s.log

	switch ev.Kind {
	case model.EventSignalEmitted:
		sig := ev.Signal
		l.Info().
			Str("symbol", sig.Symbol).
			Str("timeframe", string(sig.Timeframe)).
			Str("strategy", sig.StrategyName).
			Str("direction", string(sig.Direction)).
			Float64("entry", sig.EntryPrice).
			Float64("risk_reward", sig.RiskReward).
			Int("confidence", sig.Confidence).
			Bool("bypass", sig.BypassTagged).
			Msg("signal emitted")

	case model.EventTradeEvent:
		tr := ev.Trade
		l.Info().
			Str("trade_id", tr.TradeID).
			Str("kind", string(tr.Kind)).
			Float64("price", tr.Price).
			Float64("pnl_pct", tr.PnLPct).
			Msg(tr.Note)

	case model.EventDiagnosticReport:
		rep := ev.Report
		l.Info().
			Dur("runtime", rep.Runtime).
			Int("goroutines", rep.Goroutines).
			Strs("recommendations", rep.Recommendations).
			Msg("diagnostic report")

	case model.EventOperationalAlert:
		alert := ev.Alert
		l.WithLevel(zerologLevel(alert.Level)).
			Time("at", alert.At).
			Msg(alert.Text)
	}
	return nil
}

// Close is a no-op; LogSink owns no resources.
func (s *LogSink) Close() error { return nil }

func zerologLevel(level model.AlertLevel) zerolog.Level {
	switch level {
	case model.AlertWarn:
		return zerolog.WarnLevel
	case model.AlertError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TODO: TelegramSink, DiscordSink, and a webhook sink would wrap the
// same Accept contract around their respective HTTP APIs.
