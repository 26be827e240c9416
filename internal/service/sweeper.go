package service

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the period of the background lock sweep.
const DefaultSweepInterval = 10 * time.Second

// Sweeper periodically reclaims expired seat locks on flights where this
// instance granted a lock, so seat-map reads reflect expiry without
// waiting for the next Lock call.  Lock correctness does not depend on
// it; Lock always sweeps first.
type Sweeper struct {
	seats    *SeatService
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper returns a sweeper visiting seats' active flights every
// interval.
func NewSweeper(seats *SeatService, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{seats: seats, interval: interval, log: log}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.log.Info("sweeper: started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("sweeper: stopped")
			return
		case <-t.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce sweeps every active flight once and returns the number of
// seats released.  Failures are logged and do not stop the pass.
func (w *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for _, flightID := range w.seats.ActiveFlights() {
		if ctx.Err() != nil {
			break
		}
		started := w.seats.clock.Now()
		n, err := w.seats.SweepExpiredLocks(ctx, flightID)
		if err != nil {
			w.log.Warn("sweeper: sweep failed", "flight_id", flightID, "err", err)
			continue
		}
		total += n
		w.seats.forgetIfIdle(flightID, started)
	}
	return total
}
