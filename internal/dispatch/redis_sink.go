package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/model"
)

// signalStreamMaxLen and reportStreamMaxLen bound the Redis Streams this
// sink writes to, the same approximate-trim idiom the teacher's redis
// writer uses for candle/indicator streams.
const (
	signalStreamMaxLen = 5000
	reportStreamMaxLen = 500
)

// RedisSinkConfig configures RedisSink.
type RedisSinkConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisSink publishes every dispatched event to Redis: signals, trade
// events and diagnostic reports go to XADD streams plus a PUBLISH for
// live subscribers, while alerts get a lighter PUBLISH-only treatment.
// Adapted from the teacher's redis.Writer, which does the same
// XADD+SET+PUBLISH pipeline for candles and indicator results.
type RedisSink struct {
	client *goredis.Client
}

// NewRedisSink creates a RedisSink and pings the server.
func NewRedisSink(cfg RedisSinkConfig) (*RedisSink, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Default.Info().Str("addr", cfg.Addr).Msg("dispatch: connected to redis")
	return &RedisSink{client: client}, nil
}

// Accept implements model.Sink.
func (s *RedisSink) Accept(ctx context.Context, ev model.Event) error {
	switch ev.Kind {
	case model.EventSignalEmitted:
		return s.writeStream(ctx, "signal:"+ev.Signal.Symbol, signalStreamMaxLen, "pub:signal:"+ev.Signal.Symbol, ev.Signal)
	case model.EventTradeEvent:
		return s.writeStream(ctx, "trade:"+ev.Trade.TradeID, signalStreamMaxLen, "pub:trade", ev.Trade)
	case model.EventDiagnosticReport:
		return s.writeStream(ctx, "diagnostics", reportStreamMaxLen, "pub:diagnostics", ev.Report)
	case model.EventOperationalAlert:
		return s.publishOnly(ctx, "pub:alert", ev.Alert)
	default:
		return nil
	}
}

func (s *RedisSink) writeStream(ctx context.Context, streamKey string, maxLen int64, pubsubCh string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streamKey, err)
	}

	pipe := s.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Publish(ctx, pubsubCh, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for %s: %w", streamKey, err)
	}
	return nil
}

func (s *RedisSink) publishOnly(ctx context.Context, pubsubCh string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := s.client.Publish(ctx, pubsubCh, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", pubsubCh, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
