package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds non-critical events when the buffer is full instead
	// of waiting for room. See [Critical].
	DropIfFull bool
}

// Dispatcher queues events for one background goroutine that writes them to
// the sink, so sink I/O never runs on the request path.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	dropped       atomic.Uint64
	droppedByType [eventTypeCount]atomic.Uint64
	droppedOther  atomic.Uint64
	now           func() time.Time
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is
// disabled. Every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
		now:  time.Now,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit stamps event with an id and UTC timestamp when missing and queues it.
//
// Non-critical events are dropped when the buffer is full and DropIfFull is
// set. Otherwise Emit waits for room until ctx ends; a nil ctx waits until
// Close, which suits events such as logout that have no request context.
// Every event that is not queued is counted in [Dispatcher.Dropped].
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if d.closed.Load() {
		d.drop(event.EventType)
		return
	}
	d.stamp(&event)

	if d.cfg.DropIfFull && !Critical(event.EventType) {
		select {
		case d.ch <- event:
		case <-d.done:
			d.drop(event.EventType)
		default:
			d.drop(event.EventType)
		}
		return
	}

	var ctxDone <-chan struct{}
	if ctx != nil {
		ctxDone = ctx.Done()
	}
	select {
	case d.ch <- event:
	case <-ctxDone:
		d.drop(event.EventType)
	case <-d.done:
		d.drop(event.EventType)
	}
}

func (d *Dispatcher) stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropped.Add(1)
	if i := eventIndex(eventType); i != eventOther {
		d.droppedByType[i].Add(1)
		return
	}
	d.droppedOther.Add(1)
}

// Close stops accepting events, delivers the queued ones and waits for the
// sink. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of events that were never queued.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns per-type drop counts, keyed by event type, for every
// type with at least one drop. Unknown types are grouped under "other".
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	for i, t := range EventTypes {
		if n := d.droppedByType[i].Load(); n > 0 {
			out[t] = n
		}
	}
	if n := d.droppedOther.Load(); n > 0 {
		out["other"] = n
	}
	return out
}
