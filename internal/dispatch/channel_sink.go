package dispatch

import (
	"context"

	"github.com/signalforge/scanner/internal/model"
)

// ChannelSink forwards every accepted event onto a buffered Go channel.
// It implements model.Sink and is the simplest possible consumer: wire
// it in for an in-process subscriber (a websocket hub, a CLI replay
// printer, a test) that wants the raw event stream without a broker.
type ChannelSink struct {
	ch chan model.Event
}

// NewChannelSink returns a ChannelSink with the given channel buffer
// size. A full channel drops the event rather than block the
// dispatcher — callers that need every event should drain Events()
// promptly.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan model.Event, buffer)}
}

// Events returns the channel events are forwarded onto.
func (s *ChannelSink) Events() <-chan model.Event {
	return s.ch
}

// Accept forwards event, dropping it silently if the channel is full.
func (s *ChannelSink) Accept(ctx context.Context, ev model.Event) error {
	select {
	case s.ch <- ev:
	default:
	}
	return nil
}

// Close closes the underlying channel. Not safe to call concurrently
// with Accept.
func (s *ChannelSink) Close() error {
	close(s.ch)
	return nil
}
