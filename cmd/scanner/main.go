// Command scanner runs the multi-asset signal engine as a single
// long-lived process: it wires C1 (data source) through C8 (diagnostics)
// into one internal/scanner.Scanner per configured symbol set and blocks
// until SIGINT/SIGTERM, the same env-driven config / sequential
// resource-setup / deferred-Close / signal-channel shutdown shape as the
// teacher's cmd/indengine/main.go.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalforge/scanner/config"
	"github.com/signalforge/scanner/internal/datasource"
	"github.com/signalforge/scanner/internal/dispatch"
	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/metrics"
	"github.com/signalforge/scanner/internal/notification"
	"github.com/signalforge/scanner/internal/scanner"
	"github.com/signalforge/scanner/internal/store/sqlite"
)

func main() {
	log := logger.Init("scanner", zerolog.InfoLevel)
	log.Info().Msg("starting signal engine...")

	cfg := config.MustLoad()
	log.Info().Strs("symbols", cfg.Symbols).Strs("timeframes", cfg.Timeframes).
		Str("poll_interval", cfg.PollInterval.String()).Msg("config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- C1: data source, primary WS -> secondary WS -> HTTP fallback ----
	adapters := buildAdapters(cfg.DataProviders, log)
	source := datasource.NewSource(adapters, cfg.MaxConsecutiveDataFailures, 30*time.Second, log)
	source.OnFailover(func(from, to string) {
		log.Warn().Str("from", from).Str("to", to).Msg("data source failover")
	})
	defer source.Close()

	// ---- persisted scan/diagnostic reports ----
	if err := os.MkdirAll("data", 0o755); err != nil {
		log.Warn().Err(err).Msg("mkdir data dir")
	}
	writer, err := sqlite.New(sqlite.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatal().Err(err).Msg("sqlite writer init failed")
	}
	defer writer.Close()

	// ---- outbound dispatch ----
	disp := dispatch.New()
	disp.Register(notification.NewLogSink(log))

	redisSink, err := dispatch.NewRedisSink(dispatch.RedisSinkConfig{Addr: cfg.RedisAddr})
	if err != nil {
		log.Warn().Err(err).Msg("redis sink unavailable, continuing with log sink only")
	} else {
		disp.Register(redisSink)
	}
	defer disp.Close()
	go disp.Run(ctx)

	// ---- metrics + health ----
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start(func(err error) {
		log.Error().Err(err).Msg("metrics server error")
	})
	defer func() {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutCancel()
		metricsSrv.Stop(shutCtx)
	}()

	s := scanner.New(cfg, source, writer, disp, m, health)

	log.Info().Msg("╔════════════════════════════════════════════════╗")
	log.Info().Msg("║  signal engine active                          ║")
	log.Info().Str("metrics_addr", cfg.MetricsAddr).Msg("metrics and health endpoints")
	log.Info().Msg("╚════════════════════════════════════════════════╝")

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- s.Run(ctx) }()

	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received")
		cancel()
		<-runErrCh
	case err := <-runErrCh:
		if err != nil {
			log.Error().Err(err).Msg("scanner exited")
		}
	}

	log.Info().Msg("shutdown complete")
}

// buildAdapters constructs the provider fallback chain in the order
// names lists, skipping any name it doesn't recognize (spec §4.1's
// adapter registry is closed to these three).
func buildAdapters(names []string, log zerolog.Logger) []datasource.Adapter {
	baseURL := getEnv("MARKET_DATA_HTTP_URL", "https://api.example-market-data.invalid")
	primaryURL := getEnv("MARKET_DATA_WS_PRIMARY_URL", "wss://ws-primary.example-market-data.invalid")
	secondaryURL := getEnv("MARKET_DATA_WS_SECONDARY_URL", "wss://ws-secondary.example-market-data.invalid")

	adapters := make([]datasource.Adapter, 0, len(names))
	for _, name := range names {
		switch name {
		case "primary_ws":
			adapters = append(adapters, datasource.NewPrimaryWSAdapter(primaryURL, log))
		case "secondary_ws":
			adapters = append(adapters, datasource.NewSecondaryWSAdapter(secondaryURL, log))
		case "http_fallback":
			adapters = append(adapters, datasource.NewHTTPFallbackAdapter(baseURL, log))
		default:
			log.Warn().Str("provider", name).Msg("unknown data provider, skipping")
		}
	}
	return adapters
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
