// Package broadcast delivers committed seat and baggage changes to
// subscribers.  Publishing is fire-and-forget: a Publisher never reports
// an error to the caller and a slow or unreachable transport never
// blocks or rolls back a committed change.
//
// Topics are named per flight:
//
//	flight.<flightId>.seats    carries model.SeatEvent
//	flight.<flightId>.baggage  carries model.BaggageEvent
package broadcast

import (
	"context"
	"strings"
	"sync"
)

// Publisher sends a payload to every subscriber of topic.  Payloads are
// serialized as JSON by the transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// TopicPrefix is shared by every flight topic.
const TopicPrefix = "flight."

// SeatTopic returns the topic carrying seat state changes of a flight.
func SeatTopic(flightID string) string { return TopicPrefix + flightID + ".seats" }

// BaggageTopic returns the topic carrying baggage totals of a flight.
func BaggageTopic(flightID string) string { return TopicPrefix + flightID + ".baggage" }

// FlightOf extracts the flight id from a flight topic.  ok is false for
// topics that do not follow the flight.<id>.<kind> layout.
func FlightOf(topic string) (flightID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix)
	if !found {
		return "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}

// Multi fans a publish out to several publishers in order.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, topic string, payload any) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, topic, payload)
		}
	}
}

// Discard drops every message.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, string, any) {}

// Message is one recorded publish.
type Message struct {
	Topic   string
	Payload any
}

// Recorder keeps every published message in memory.  Tests use it to
// assert on broadcast order and content.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, topic string, payload any) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Topic: topic, Payload: payload})
	r.mu.Unlock()
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
