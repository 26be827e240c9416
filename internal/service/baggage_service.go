package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/airport-kiosk/internal/broadcast"
	"github.com/iliyamo/airport-kiosk/internal/clock"
	"github.com/iliyamo/airport-kiosk/internal/flightlock"
	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/iliyamo/airport-kiosk/internal/utils"
)

// BaggageDeps bundles the collaborators of BaggageService.
type BaggageDeps struct {
	Baggage   repository.BaggageStore
	Counters  repository.CounterStore
	Tx        repository.Transactor
	Locks     flightlock.Locker
	Publisher broadcast.Publisher
	Clock     clock.Clock
	Log       *slog.Logger
}

// BaggageService keeps one baggage record per booking and flight and the
// flight's baggage_count equal to the sum of those records.
type BaggageService struct {
	baggage  repository.BaggageStore
	counters repository.CounterStore
	tx       repository.Transactor
	locks    flightlock.Locker
	pub      broadcast.Publisher
	clock    clock.Clock
	log      *slog.Logger
}

// NewBaggageService wires a BaggageService.
func NewBaggageService(d BaggageDeps) *BaggageService {
	s := &BaggageService{
		baggage:  d.Baggage,
		counters: d.Counters,
		tx:       d.Tx,
		locks:    d.Locks,
		pub:      d.Publisher,
		clock:    d.Clock,
		log:      d.Log,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.pub == nil {
		s.pub = broadcast.Discard{}
	}
	return s
}

// CheckIn records pieces bags weighing weight in total for bookingID on
// flightID.  Repeating it for the same booking overwrites the earlier
// record in place (same id and tag number) instead of adding to it.
// Duplicate records left by earlier faults are folded into the first
// one.  The flight total moves by one net delta.
func (s *BaggageService) CheckIn(ctx context.Context, bookingID, flightID string, weight float64, pieces int) (model.BaggageRecord, error) {
	if err := requireIDs("bookingId", bookingID, "flightId", flightID); err != nil {
		return model.BaggageRecord{}, err
	}
	if pieces < 0 || weight < 0 {
		return model.BaggageRecord{}, fmt.Errorf("weight and count must not be negative: %w", repository.ErrInvalidInput)
	}
	if _, err := s.counters.GetCounters(ctx, flightID); err != nil {
		return model.BaggageRecord{}, err
	}
	booking := utils.NormalizeBookingID(bookingID)

	unlock, err := s.locks.Lock(ctx, flightlock.BaggageKey(flightID))
	if err != nil {
		return model.BaggageRecord{}, fmt.Errorf("acquire baggage lock %s: %w", flightID, err)
	}
	var (
		rec     model.BaggageRecord
		total   int
		removed []string
	)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		removed = removed[:0]
		now := s.clock.Now()
		existing, err := s.baggage.ListBaggageByBooking(ctx, flightID, booking)
		if err != nil {
			return err
		}

		var delta int
		if len(existing) == 0 {
			rec = model.BaggageRecord{
				BaggageID:   utils.NewBaggageID(),
				BookingID:   booking,
				FlightID:    flightID,
				Weight:      weight,
				Count:       pieces,
				TagNumber:   utils.NewTagNumber(flightID),
				CheckInTime: now,
			}
			if err := s.baggage.InsertBaggage(ctx, rec); err != nil {
				return err
			}
			delta = pieces
		} else {
			rec = existing[0]
			delta = pieces - rec.Count
			rec.Weight = weight
			rec.Count = pieces
			rec.CheckInTime = now
			if err := s.baggage.UpdateBaggage(ctx, rec); err != nil {
				return err
			}
			for _, extra := range existing[1:] {
				if err := s.baggage.DeleteBaggage(ctx, extra.BaggageID); err != nil {
					return err
				}
				delta -= extra.Count
				removed = append(removed, extra.BaggageID)
			}
		}

		counters, err := s.counters.ApplyDelta(ctx, flightID, model.CounterBaggageCount, delta)
		if err != nil {
			return err
		}
		total = counters.BaggageCount
		return nil
	})
	unlock()
	if err != nil {
		return model.BaggageRecord{}, err
	}

	if len(removed) > 0 {
		s.log.Warn("baggage-service: merged duplicate baggage records",
			"flight_id", flightID, "booking_id", booking, "kept", rec.BaggageID, "removed", strings.Join(removed, ","))
	}
	s.pub.Publish(ctx, broadcast.BaggageTopic(flightID), model.BaggageEvent{FlightID: flightID, Count: total})
	return rec, nil
}

// Records lists the flight's baggage records.  The flight must exist.
func (s *BaggageService) Records(ctx context.Context, flightID string) ([]model.BaggageRecord, error) {
	if err := requireIDs("flightId", flightID); err != nil {
		return nil, err
	}
	if _, err := s.counters.GetCounters(ctx, flightID); err != nil {
		return nil, err
	}
	recs, err := s.baggage.ListBaggageByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []model.BaggageRecord{}
	}
	return recs, nil
}

// Count returns the flight's checked baggage total.
func (s *BaggageService) Count(ctx context.Context, flightID string) (int, error) {
	c, err := s.counters.GetCounters(ctx, flightID)
	if err != nil {
		return 0, err
	}
	return c.BaggageCount, nil
}
