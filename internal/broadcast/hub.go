package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is a serialized message as delivered to subscribers.
type Event struct {
	Topic string
	Data  json.RawMessage
}

// Subscription receives the events of the topics it was created for.
type Subscription struct {
	C <-chan Event

	hub    *Hub
	ch     chan Event
	topics []string
	once   sync.Once
}

// Close detaches the subscription from the hub and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub is the in-process topic fan-out.  Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event.
type Hub struct {
	log *slog.Logger

	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}

	dropped atomic.Uint64
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers for one or more topics.  buf is the per-subscriber
// queue depth; values below one are raised to one.
func (h *Hub) Subscribe(buf int, topics ...string) *Subscription {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Event, buf)
	sub := &Subscription{C: ch, hub: h, ch: ch, topics: topics}
	h.mu.Lock()
	for _, t := range topics {
		set, ok := h.topics[t]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.topics[t] = set
		}
		set[sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	for _, t := range sub.topics {
		if set, ok := h.topics[t]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.topics, t)
			}
		}
	}
	close(sub.ch)
	h.mu.Unlock()
}

// Publish implements Publisher.
func (h *Hub) Publish(_ context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("broadcast: encode payload", "topic", topic, "err", err)
		return
	}
	h.Deliver(topic, data)
}

// Deliver fans already-serialized data out to the subscribers of topic.
// Relays from other transports use it to avoid a decode/encode round trip.
func (h *Hub) Deliver(topic string, data []byte) {
	ev := Event{Topic: topic, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- ev:
		default:
			n := h.dropped.Add(1)
			h.log.Debug("broadcast: subscriber full, event dropped", "topic", topic, "dropped_total", n)
		}
	}
}

// Subscribers reports how many subscriptions currently listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
