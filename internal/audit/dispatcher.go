package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Queued    int
}

// Dispatcher hands events to a single background worker that feeds the sink.
// The zero *Dispatcher (nil) accepts and discards every call.
type Dispatcher struct {
	sink       Sink
	clock      func() time.Time
	dropIfFull bool

	mu      sync.RWMutex
	queue   chan Event
	stopped bool
	worker  chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher starts the worker. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink, now func() time.Time) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}

	d := &Dispatcher{
		sink:       sink,
		clock:      now,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		worker:     make(chan struct{}),
	}
	go d.consume()
	return d
}

// consume exits once the queue is closed and empty.
func (d *Dispatcher) consume() {
	defer close(d.worker)
	ctx := context.Background()
	for ev := range d.queue {
		d.sink.Emit(ctx, ev)
		d.delivered.Add(1)
	}
}

// Emit stamps event and queues it. A full queue drops the event when the
// dispatcher was built with DropIfFull; otherwise Emit waits for room or for
// ctx to end, counting the event as dropped in the latter case.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	event.Stamp(d.clock())

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var cancelled <-chan struct{}
	if ctx != nil {
		cancelled = ctx.Done()
	}
	select {
	case d.queue <- event:
	case <-cancelled:
		d.dropped.Add(1)
	}
}

// Close refuses further events, then blocks until everything already queued
// has reached the sink. Calling it more than once is harmless.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.worker
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Queued:    len(d.queue),
	}
}

func (d *Dispatcher) Dropped() uint64 { return d.Stats().Dropped }

func (d *Dispatcher) Delivered() uint64 { return d.Stats().Delivered }
