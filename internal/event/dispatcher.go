package event

import (
	"context"
	"log/slog"
	"sync"

	"risk_market/internal/infra"
)

// Sink receives dispatched events. Deliver is called from the dispatcher goroutine only.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher fans events out to sinks from a single goroutine.
//
// Publishing never blocks the caller: when the inbox is full the event is dropped and counted.
// Sequence numbers are assigned in delivery order, starting at 1.
type Dispatcher struct {
	inbox   chan Event
	nextSeq uint64
	metrics *infra.Metrics

	mu    sync.RWMutex
	sinks []Sink
}

// NewDispatcher creates a dispatcher with an inbox of the given size.
func NewDispatcher(inboxSize int, metrics *infra.Metrics, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		inbox:   make(chan Event, inboxSize),
		nextSeq: 1,
		metrics: metrics,
		sinks:   sinks,
	}
}

// AddSink registers another sink. Safe to call while Run is active.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
}

// Publish enqueues ev and reports whether it was accepted.
func (d *Dispatcher) Publish(ev Event) bool {
	select {
	case d.inbox <- ev:
		return true
	default:
		d.metrics.RecordDropped()
		slog.Warn("Event dropped, inbox full", slog.String("type", string(ev.GetType())))
		return false
	}
}

// Run delivers events until ctx is cancelled. It MUST be run in a single goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("Event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event dispatcher stopping...")
			return
		case ev := <-d.inbox:
			ev.setSeq(d.nextSeq)
			d.nextSeq++
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	d.mu.RLock()
	sinks := d.sinks
	d.mu.RUnlock()

	for _, s := range sinks {
		d.deliver(ctx, s, ev)
	}
}

// deliver isolates sinks from each other: an error or panic in one never reaches the rest.
func (d *Dispatcher) deliver(ctx context.Context, s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordError()
			slog.Error("Sink panicked",
				slog.String("sink", s.Name()),
				slog.Any("panic", r),
			)
		}
	}()

	if err := s.Deliver(ctx, ev); err != nil {
		d.metrics.RecordError()
		slog.Error("Event delivery failed",
			slog.String("sink", s.Name()),
			slog.String("type", string(ev.GetType())),
			slog.Uint64("seq", ev.GetSeq()),
			slog.Any("error", err),
		)
	}
}
