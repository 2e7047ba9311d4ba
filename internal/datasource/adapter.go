// Package datasource implements C1: candle retrieval with automatic
// provider fallback (spec §4.1). Each Adapter wraps one upstream
// provider; Source chains them in priority order behind a circuit
// breaker per adapter, so a provider that starts failing is skipped
// without blocking the scan loop on its timeout every tick.
package datasource

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalforge/scanner/internal/model"
)

// Adapter is one upstream OHLCV provider.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, error)
	Close() error
}

// Source chains Adapters in priority order and implements
// model.CandleSource, falling back to the next adapter whenever the
// current one's circuit breaker is open or its call fails (spec §4.1
// "provider fallback chain").
type Source struct {
	adapters []Adapter
	breakers []*CircuitBreaker
	log      zerolog.Logger

	onFailover func(from, to string)
}

// NewSource builds a fallback chain over adapters, in the given
// priority order. maxFailures/resetTimeout tune each adapter's breaker.
func NewSource(adapters []Adapter, maxFailures int, resetTimeout time.Duration, log zerolog.Logger) *Source {
	breakers := make([]*CircuitBreaker, len(adapters))
	for i := range adapters {
		breakers[i] = NewCircuitBreaker(maxFailures, resetTimeout)
	}
	return &Source{adapters: adapters, breakers: breakers, log: log}
}

// OnFailover registers a callback invoked whenever the chain moves from
// one adapter to the next within a single Fetch call.
func (s *Source) OnFailover(fn func(from, to string)) {
	s.onFailover = fn
}

// Connect connects every adapter in the chain. A connect failure on a
// lower-priority adapter is logged but not fatal — it will simply stay
// unusable until its next Connect attempt.
func (s *Source) Connect(ctx context.Context) error {
	var firstErr error
	connectedAny := false
	for _, a := range s.adapters {
		if err := a.Connect(ctx); err != nil {
			s.log.Warn().Str("provider", a.Name()).Err(err).Msg("datasource: adapter connect failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		connectedAny = true
	}
	if !connectedAny {
		return firstErr
	}
	return nil
}

// Fetch tries each adapter in priority order, skipping any whose
// breaker is open, and returns the first successful result. The bool
// return mirrors model.CandleSource's freshness contract: a buffer is
// fresh if its last candle is within 2x the timeframe's duration.
func (s *Source) Fetch(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, bool, error) {
	var lastErr error
	for i, a := range s.adapters {
		// An open breaker rejects the call with ErrCircuitOpen without
		// touching the adapter, until its reset timeout allows a probe.
		var buf model.Buffer
		err := s.breakers[i].Execute(func() error {
			var fetchErr error
			buf, fetchErr = a.FetchCandles(ctx, symbol, tf, count)
			return fetchErr
		})
		if err != nil {
			lastErr = err
			if i+1 < len(s.adapters) && s.onFailover != nil {
				s.onFailover(a.Name(), s.adapters[i+1].Name())
			}
			continue
		}

		return buf, buf.IsFresh(nowProvider()), nil
	}
	if lastErr == nil {
		lastErr = &ProviderError{Provider: "none", Kind: ErrUnavailable, Err: context.DeadlineExceeded}
	}
	return model.Buffer{}, false, lastErr
}

// Close closes every adapter in the chain, returning the first error.
func (s *Source) Close() error {
	var firstErr error
	for _, a := range s.adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// nowProvider is a seam so tests can't accidentally depend on wall-clock
// freshness of fixtures; production always uses time.Now.
var nowProvider = time.Now
