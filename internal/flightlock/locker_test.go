package flightlock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalExcludesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "FL1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	if got := maxSeen.Load(); got != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", got)
	}
}

func TestLocalIndependentKeys(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), SeatKey("FL1"))
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, key := range []string{SeatKey("FL2"), BaggageKey("FL1")} {
		u, err := l.Lock(ctx, key)
		if err != nil {
			t.Fatalf("Lock(%q) while FL1 held: %v", key, err)
		}
		u()
	}
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	unlock, _ := l.Lock(context.Background(), "FL1")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "FL1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestLocalUnlockIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, _ := l.Lock(context.Background(), "FL1")
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := l.Lock(ctx, "FL1")
	if err != nil {
		t.Fatalf("Lock after double unlock: %v", err)
	}
	u()
	// A stray second unlock must not free a lock held by someone else.
	held, _ := l.Lock(ctx, "FL1")
	unlock()
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if _, err := l.Lock(short, "FL1"); err == nil {
		t.Fatal("stale unlock released a lock it did not own")
	}
	held()
}

func TestRedisKeyLayout(t *testing.T) {
	for prefix, want := range map[string]string{
		"kiosk:flightlock":  "kiosk:flightlock:FL1",
		"kiosk:flightlock:": "kiosk:flightlock:FL1",
		"":                  "flightlock:FL1",
	} {
		if got := NewRedis(nil, prefix, 0, nil).keyFor(SeatKey("FL1")); got != want {
			t.Fatalf("keyFor with prefix %q = %q, want %q", prefix, got, want)
		}
	}
}

// TestRedisLocker runs against a real server when FLIGHTLOCK_REDIS_ADDR
// is set, e.g. FLIGHTLOCK_REDIS_ADDR=localhost:6379.
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("FLIGHTLOCK_REDIS_ADDR")
	if addr == "" {
		t.Skip("FLIGHTLOCK_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	l := NewRedis(rdb, "flightlock-test-"+time.Now().Format("150405.000000"), 2*time.Second, nil)
	unlock, err := l.Lock(context.Background(), "FL1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "FL1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock err = %v, want DeadlineExceeded", err)
	}

	unlock()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	u, err := l.Lock(ctx2, "FL1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	u()
}
