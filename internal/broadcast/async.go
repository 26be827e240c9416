package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Async decouples a network publisher from the request path.  Publish
// enqueues and returns immediately; a single goroutine forwards messages
// to the wrapped publisher in enqueue order.  When the queue is full the
// message is dropped and counted.
type Async struct {
	next Publisher
	log  *slog.Logger
	name string

	queue chan Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

// NewAsync starts the forwarding goroutine.  Close must be called to
// flush the queue and stop it.
func NewAsync(name string, next Publisher, buffer int, log *slog.Logger) *Async {
	if buffer < 1 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Async{
		next:  next,
		log:   log,
		name:  name,
		queue: make(chan Message, buffer),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for m := range a.queue {
		a.next.Publish(context.Background(), m.Topic, m.Payload)
	}
}

// Publish implements Publisher.
func (a *Async) Publish(_ context.Context, topic string, payload any) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- Message{Topic: topic, Payload: payload}:
	default:
		n := a.dropped.Add(1)
		a.log.Warn("broadcast: queue full, event dropped", "publisher", a.name, "topic", topic, "dropped_total", n)
	}
}

// Dropped reports how many messages were discarded on a full queue.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Close stops accepting messages and waits until queued ones have been
// forwarded or ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
