package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/testutil"
)

func TestTopics(t *testing.T) {
	if got := SeatTopic("FL123"); got != "flight.FL123.seats" {
		t.Fatalf("SeatTopic = %q", got)
	}
	if got := BaggageTopic("FL123"); got != "flight.FL123.baggage" {
		t.Fatalf("BaggageTopic = %q", got)
	}
	for topic, want := range map[string]string{
		"flight.FL123.seats":  "FL123",
		"flight.KL.1.baggage": "KL.1",
		"other.FL123.seats":   "",
		"flight.seats":        "",
	} {
		got, ok := FlightOf(topic)
		if got != want || ok != (want != "") {
			t.Fatalf("FlightOf(%q) = %q, %v; want %q", topic, got, ok, want)
		}
	}
}

func TestSeatPayloadShape(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(4, SeatTopic("FL1"))
	defer sub.Close()

	holder := "session-1"
	hub.Publish(context.Background(), SeatTopic("FL1"), model.SeatEventFor(model.Seat{
		FlightID: "FL1", SeatID: "1A", Status: model.SeatLocked, LockedBy: &holder,
	}))
	hub.Publish(context.Background(), SeatTopic("FL1"), model.SeatEventFor(model.Seat{
		FlightID: "FL1", SeatID: "1A", Status: model.SeatAvailable,
	}))

	locked := testutil.RequireReceive(t, sub.C, time.Second, "locked event")
	if got, want := string(locked.Data), `{"flightId":"FL1","seatId":"1A","status":"LOCKED","sessionId":"session-1"}`; got != want {
		t.Fatalf("locked payload = %s, want %s", got, want)
	}
	avail := testutil.RequireReceive(t, sub.C, time.Second, "available event")
	if got, want := string(avail.Data), `{"flightId":"FL1","seatId":"1A","status":"AVAILABLE","sessionId":null}`; got != want {
		t.Fatalf("available payload = %s, want %s", got, want)
	}
}

func TestHubRoutesByTopic(t *testing.T) {
	hub := NewHub(nil)
	both := hub.Subscribe(4, SeatTopic("FL1"), BaggageTopic("FL1"))
	other := hub.Subscribe(4, SeatTopic("FL2"))
	defer other.Close()

	hub.Publish(context.Background(), BaggageTopic("FL1"), model.BaggageEvent{FlightID: "FL1", Count: 3})
	ev := testutil.RequireReceive(t, both.C, time.Second, "baggage event")
	var got model.BaggageEvent
	if err := json.Unmarshal(ev.Data, &got); err != nil {
		t.Fatal(err)
	}
	if ev.Topic != BaggageTopic("FL1") || got.Count != 3 {
		t.Fatalf("event = %s %+v", ev.Topic, got)
	}
	testutil.RequireNoReceive(t, other.C, 20*time.Millisecond, "FL2 subscriber")

	both.Close()
	both.Close()
	if n := hub.Subscribers(SeatTopic("FL1")); n != 0 {
		t.Fatalf("Subscribers after Close = %d, want 0", n)
	}
	if _, ok := <-both.C; ok {
		t.Fatal("closed subscription still delivers")
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(1, SeatTopic("FL1"))
	defer sub.Close()

	for i := 0; i < 3; i++ {
		hub.Publish(context.Background(), SeatTopic("FL1"), model.SeatEvent{FlightID: "FL1", SeatID: "1A"})
	}
	if got := hub.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
}

type blockingPublisher struct {
	release chan struct{}
	rec     Recorder
}

func (b *blockingPublisher) Publish(ctx context.Context, topic string, payload any) {
	<-b.release
	b.rec.Publish(ctx, topic, payload)
}

func TestAsyncDoesNotBlockAndPreservesOrder(t *testing.T) {
	next := &blockingPublisher{release: make(chan struct{})}
	a := NewAsync("test", next, 2, nil)

	start := time.Now()
	for i := 0; i < 5; i++ {
		a.Publish(context.Background(), "t", i)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Publish blocked for %v", elapsed)
	}
	close(next.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	msgs := next.rec.Messages()
	if len(msgs)+int(a.Dropped()) != 5 {
		t.Fatalf("delivered %d + dropped %d, want 5", len(msgs), a.Dropped())
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].Payload.(int) >= msgs[i].Payload.(int) {
			t.Fatalf("out of order: %v", msgs)
		}
	}
	// Publishing after Close is a no-op.
	a.Publish(context.Background(), "t", 99)
}

func TestMultiFansOut(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b, Discard{}}
	m.Publish(context.Background(), "t", "x")
	if len(a.Messages()) != 1 || len(b.Messages()) != 1 {
		t.Fatalf("a=%v b=%v", a.Messages(), b.Messages())
	}
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.Publish(context.Background(), SeatTopic("FL1"), j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				hub.Subscribe(2, SeatTopic("FL1")).Close()
			}
		}()
	}
	wg.Wait()
}
