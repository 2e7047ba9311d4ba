// Package dispatch fans out the structured events a scanner tick produces
// (signals, trade lifecycle events, diagnostic reports, operational
// alerts) to every registered model.Sink, with the asymmetric
// backpressure policy spec §5 requires: signals and trade events are
// always delivered, diagnostic reports and alerts are queued behind a
// bounded buffer that drops its oldest entry rather than stall the tick.
//
// The broadcast shape is grounded on the teacher's bus.FanOut (candle
// fan-out to N subscriber channels, drop-on-full with an OnDrop hook);
// this package keeps that shape but splits it into two delivery lanes
// instead of FanOut's single uniform one, since the spec forbids
// dropping signals and trade events outright.
package dispatch

import (
	"context"
	"sync"

	"github.com/signalforge/scanner/internal/logger"
	"github.com/signalforge/scanner/internal/model"
)

// queueCapacity bounds the diagnostic/alert lane (spec §5 "bounded
// capacity"). Signals and trade events never pass through this queue.
const queueCapacity = 64

// Dispatcher broadcasts events to every registered sink. It is safe for
// concurrent use; a scanner driver typically holds one Dispatcher and
// calls DispatchSignal/DispatchTrade inline on its tick goroutine while
// Run drains the bounded lane on its own goroutine.
type Dispatcher struct {
	mu    sync.Mutex
	sinks []model.Sink
	queue []model.Event

	notify chan struct{}

	// Dropped counts diagnostic/alert events evicted by a full queue, for
	// the diagnostic recorder's data-quality counters.
	Dropped int
}

// New returns a Dispatcher with no sinks registered.
func New() *Dispatcher {
	return &Dispatcher{notify: make(chan struct{}, 1)}
}

// Register adds sink to the broadcast set. Not safe to call concurrently
// with Run once sinks are being actively dispatched to; call it during
// setup.
func (d *Dispatcher) Register(sink model.Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// DispatchSignal broadcasts a signal-emitted event synchronously to
// every sink. Per spec §5 this lane is never dropped; a slow or failing
// sink only logs, it does not block its peers.
func (d *Dispatcher) DispatchSignal(ctx context.Context, sig *model.Signal) {
	d.broadcastNow(ctx, model.Event{Kind: model.EventSignalEmitted, Signal: sig})
}

// DispatchTrade broadcasts a trade lifecycle event synchronously, same
// never-drop guarantee as DispatchSignal.
func (d *Dispatcher) DispatchTrade(ctx context.Context, ev *model.TradeEvent) {
	d.broadcastNow(ctx, model.Event{Kind: model.EventTradeEvent, Trade: ev})
}

// DispatchDiagnostic enqueues a diagnostic report onto the bounded lane,
// dropping the oldest queued entry if the queue is already full.
func (d *Dispatcher) DispatchDiagnostic(report *model.DiagnosticReport) {
	d.enqueue(model.Event{Kind: model.EventDiagnosticReport, Report: report})
}

// DispatchAlert enqueues an operational alert onto the bounded lane,
// same drop-oldest policy as DispatchDiagnostic.
func (d *Dispatcher) DispatchAlert(alert *model.OperationalAlert) {
	d.enqueue(model.Event{Kind: model.EventOperationalAlert, Alert: alert})
}

// broadcastNow delivers event to every sink inline. A sink error is
// logged, never propagated — one failing sink must not stop the others
// or the caller's tick.
func (d *Dispatcher) broadcastNow(ctx context.Context, event model.Event) {
	d.mu.Lock()
	sinks := append([]model.Sink(nil), d.sinks...)
	d.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Accept(ctx, event); err != nil {
			logger.Default.Warn().Err(err).Str("event_kind", string(event.Kind)).Msg("sink accept failed")
		}
	}
}

// enqueue pushes event onto the bounded queue, evicting the oldest entry
// on overflow, and wakes Run.
func (d *Dispatcher) enqueue(event model.Event) {
	d.mu.Lock()
	if len(d.queue) >= queueCapacity {
		d.queue = d.queue[1:]
		d.Dropped++
	}
	d.queue = append(d.queue, event)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Run drains the bounded diagnostic/alert lane, broadcasting each event
// to every sink, until ctx is cancelled. Call it once, on its own
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.notify:
			for {
				event, ok := d.dequeue()
				if !ok {
					break
				}
				d.broadcastNow(ctx, event)
			}
		}
	}
}

func (d *Dispatcher) dequeue() (model.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return model.Event{}, false
	}
	event := d.queue[0]
	d.queue = d.queue[1:]
	return event, true
}

// Close closes every registered sink, collecting the first error.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	sinks := append([]model.Sink(nil), d.sinks...)
	d.mu.Unlock()

	var first error
	for _, sink := range sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
