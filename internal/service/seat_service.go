// Package service implements the kiosk engines on top of the storage
// contracts in package repository.
//
// Seat and baggage mutations run under a per-flight lock from package
// flightlock and inside a repository.Transactor unit.  Broadcasts are
// collected while the unit runs and published only after it committed
// and the flight lock was released, so subscribers never see a state a
// rollback could undo.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/broadcast"
	"github.com/iliyamo/airport-kiosk/internal/clock"
	"github.com/iliyamo/airport-kiosk/internal/flightlock"
	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/iliyamo/airport-kiosk/internal/utils"
)

// DefaultLockTTL is how long a seat lock stays valid after it was granted.
const DefaultLockTTL = 30 * time.Second

// SeatDeps bundles the collaborators of SeatService.
type SeatDeps struct {
	Seats     repository.SeatStore
	Counters  repository.CounterStore
	Flights   repository.FlightStore
	Bookings  repository.BookingStore
	Tx        repository.Transactor
	Locks     flightlock.Locker
	Publisher broadcast.Publisher
	Clock     clock.Clock
	Log       *slog.Logger
	LockTTL   time.Duration
}

// SeatService is the seat reservation engine.  It owns the seat state
// machine AVAILABLE -> LOCKED -> RESERVED -> AVAILABLE, keeps the
// flight's available_seats counter in step with reservations and
// broadcasts every committed transition on the flight's seat topic.
type SeatService struct {
	seats    repository.SeatStore
	counters repository.CounterStore
	flights  repository.FlightStore
	bookings repository.BookingStore
	tx       repository.Transactor
	locks    flightlock.Locker
	pub      broadcast.Publisher
	clock    clock.Clock
	log      *slog.Logger
	lockTTL  time.Duration

	// activeMu guards active: flight id -> latest lock expiry granted
	// by this instance.  The periodic sweeper only visits these flights.
	activeMu sync.Mutex
	active   map[string]time.Time
}

// NewSeatService wires a SeatService.  Clock, Log, Publisher and LockTTL
// fall back to the real clock, slog.Default, a discarding publisher and
// DefaultLockTTL.
func NewSeatService(d SeatDeps) *SeatService {
	s := &SeatService{
		seats:    d.Seats,
		counters: d.Counters,
		flights:  d.Flights,
		bookings: d.Bookings,
		tx:       d.Tx,
		locks:    d.Locks,
		pub:      d.Publisher,
		clock:    d.Clock,
		log:      d.Log,
		lockTTL:  d.LockTTL,
		active:   make(map[string]time.Time),
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
	if s.lockTTL <= 0 {
		s.lockTTL = DefaultLockTTL
	}
	return s
}

// LockTTL reports the configured lock validity window.
func (s *SeatService) LockTTL() time.Duration { return s.lockTTL }

// Lock tries to take seatID on flightID for holder.  Expired locks of
// the flight are swept first.  It reports false when the seat is not
// AVAILABLE; only a missing seat or a store failure is an error.
func (s *SeatService) Lock(ctx context.Context, flightID, seatID, holder string) (bool, error) {
	if err := requireIDs("flightId", flightID, "seatId", seatID, "sessionId", holder); err != nil {
		return false, err
	}
	var (
		locked bool
		expiry time.Time
	)
	err := s.withFlight(ctx, flightID, func(ctx context.Context, out *outbox) error {
		now := s.clock.Now()
		if _, err := s.sweep(ctx, flightID, now, out); err != nil {
			return err
		}
		seat, err := s.seats.GetSeat(ctx, flightID, seatID)
		if err != nil {
			return err
		}
		if seat.Status != model.SeatAvailable {
			return nil
		}
		expiry = now.Add(s.lockTTL)
		next := seat.LockedFor(holder, expiry)
		ok, err := s.seats.CompareAndSwapSeat(ctx, next, seat.Version)
		if err != nil || !ok {
			return err
		}
		locked = true
		out.add(next)
		return nil
	})
	if err != nil {
		return false, err
	}
	if locked {
		s.markActive(flightID, expiry)
	}
	return locked, nil
}

// Confirm turns holder's lock on seatID into a reservation for
// bookingID.  Every other seat of the flight reserved for the same
// booking is released in the same unit, so a booking holds at most one
// seat per flight.  It reports false, without side effects, unless the
// seat is LOCKED by holder and the lock has not expired.  Losing a
// conditional write to another writer also rolls the unit back and
// reports false.
func (s *SeatService) Confirm(ctx context.Context, flightID, seatID, bookingID, holder string) (bool, error) {
	if err := requireIDs("flightId", flightID, "seatId", seatID, "bookingId", bookingID, "sessionId", holder); err != nil {
		return false, err
	}
	booking := utils.NormalizeBookingID(bookingID)
	var confirmed bool
	err := s.withFlight(ctx, flightID, func(ctx context.Context, out *outbox) error {
		seat, err := s.seats.GetSeat(ctx, flightID, seatID)
		if err != nil {
			return err
		}
		if seat.Status != model.SeatLocked || !seat.HeldBy(holder) || seat.LockExpired(s.clock.Now()) {
			return nil
		}

		var staged outbox
		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			all, err := s.seats.ListSeatsByFlight(ctx, flightID)
			if err != nil {
				return err
			}
			var released []string
			for _, other := range all {
				if other.SeatID == seatID || other.Status != model.SeatReserved || other.BookingID == nil {
					continue
				}
				if !utils.SameBooking(*other.BookingID, booking) {
					continue
				}
				freed := other.Released()
				if err := s.cas(ctx, freed, other.Version); err != nil {
					return err
				}
				if _, err := s.counters.ApplyDelta(ctx, flightID, model.CounterAvailableSeats, +1); err != nil {
					return err
				}
				staged.add(freed)
				released = append(released, other.SeatID)
			}
			if len(released) > 1 {
				s.log.Warn("seat-service: repaired multiple reservations for one booking",
					"flight_id", flightID, "booking_id", booking, "released", released)
			}

			reserved := seat.ReservedFor(booking)
			if err := s.cas(ctx, reserved, seat.Version); err != nil {
				return err
			}
			if _, err := s.counters.ApplyDelta(ctx, flightID, model.CounterAvailableSeats, -1); err != nil {
				return err
			}
			staged.add(reserved)
			return nil
		})
		if errors.Is(err, errSeatMoved) {
			s.log.Info("seat-service: confirm lost a concurrent write, rolled back",
				"flight_id", flightID, "seat_id", seatID, "err", err)
			return nil
		}
		if err != nil {
			return err
		}
		out.merge(&staged)
		confirmed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// Unlock releases holder's lock on seatID.  It reports false when the
// seat is not LOCKED by holder.  Counters are untouched: a lock never
// counted against available_seats.
func (s *SeatService) Unlock(ctx context.Context, flightID, seatID, holder string) (bool, error) {
	if err := requireIDs("flightId", flightID, "seatId", seatID, "sessionId", holder); err != nil {
		return false, err
	}
	var unlocked bool
	err := s.withFlight(ctx, flightID, func(ctx context.Context, out *outbox) error {
		seat, err := s.seats.GetSeat(ctx, flightID, seatID)
		if err != nil {
			return err
		}
		if seat.Status != model.SeatLocked || !seat.HeldBy(holder) {
			return nil
		}
		freed := seat.Released()
		ok, err := s.seats.CompareAndSwapSeat(ctx, freed, seat.Version)
		if err != nil || !ok {
			return err
		}
		unlocked = true
		out.add(freed)
		return nil
	})
	if err != nil {
		return false, err
	}
	return unlocked, nil
}

// SweepExpiredLocks resets every LOCKED seat of the flight whose expiry
// has passed and returns how many seats it released.
func (s *SeatService) SweepExpiredLocks(ctx context.Context, flightID string) (int, error) {
	if err := requireIDs("flightId", flightID); err != nil {
		return 0, err
	}
	var n int
	err := s.withFlight(ctx, flightID, func(ctx context.Context, out *outbox) error {
		var err error
		n, err = s.sweep(ctx, flightID, s.clock.Now(), out)
		return err
	})
	return n, err
}

// sweep runs under the flight lock.  Released seats are committed as one
// unit before they are queued for broadcast.
func (s *SeatService) sweep(ctx context.Context, flightID string, now time.Time, out *outbox) (int, error) {
	expired, err := s.seats.ListExpiredLocks(ctx, flightID, now)
	if err != nil || len(expired) == 0 {
		return 0, err
	}
	var staged outbox
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, seat := range expired {
			freed := seat.Released()
			ok, err := s.seats.CompareAndSwapSeat(ctx, freed, seat.Version)
			if err != nil {
				return err
			}
			if ok {
				staged.add(freed)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n := len(staged.seats); n > 0 {
		s.log.Debug("seat-service: swept expired locks", "flight_id", flightID, "released", n)
	}
	out.merge(&staged)
	return len(staged.seats), nil
}

// errSeatMoved aborts a unit whose conditional write found a newer
// version.  It never leaves the service: the caller reports false.
var errSeatMoved = errors.New("seat changed concurrently")

// cas is CompareAndSwapSeat for multi-step units: losing the race aborts
// the whole unit with errSeatMoved.
func (s *SeatService) cas(ctx context.Context, seat model.Seat, expected int64) error {
	ok, err := s.seats.CompareAndSwapSeat(ctx, seat, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("seat %s/%s at version %d: %w", seat.FlightID, seat.SeatID, expected, errSeatMoved)
	}
	return nil
}

// withFlight runs fn under the flight's seat lock, then releases the
// lock and broadcasts whatever fn committed, even when fn failed after
// an earlier unit (such as the sweep) had already committed.
func (s *SeatService) withFlight(ctx context.Context, flightID string, fn func(ctx context.Context, out *outbox) error) error {
	unlock, err := s.locks.Lock(ctx, flightlock.SeatKey(flightID))
	if err != nil {
		return fmt.Errorf("acquire flight lock %s: %w", flightID, err)
	}
	var out outbox
	err = fn(ctx, &out)
	unlock()
	topic := broadcast.SeatTopic(flightID)
	for _, seat := range out.seats {
		s.pub.Publish(ctx, topic, model.SeatEventFor(seat))
	}
	return err
}

func (s *SeatService) markActive(flightID string, expiry time.Time) {
	s.activeMu.Lock()
	if expiry.After(s.active[flightID]) {
		s.active[flightID] = expiry
	}
	s.activeMu.Unlock()
}

// ActiveFlights lists flights on which this instance granted a lock that
// may still be outstanding.
func (s *SeatService) ActiveFlights() []string {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	out := make([]string, 0, len(s.active))
	for id := range s.active {
		out = append(out, id)
	}
	return out
}

// forgetIfIdle drops flightID from the active set once every lock this
// instance granted on it has expired and been swept.
func (s *SeatService) forgetIfIdle(flightID string, now time.Time) {
	s.activeMu.Lock()
	if latest, ok := s.active[flightID]; ok && latest.Before(now) {
		delete(s.active, flightID)
	}
	s.activeMu.Unlock()
}

// SeatMap is the seat map of one flight.
type SeatMap struct {
	Seats          []model.Seat `json:"seats"`
	AvailableCount int          `json:"availableCount"`
}

// SeatMap returns every seat of the flight with the number of seats
// currently AVAILABLE.  It is a plain read and does not sweep.
func (s *SeatService) SeatMap(ctx context.Context, flightID string) (SeatMap, error) {
	if _, err := s.counters.GetCounters(ctx, flightID); err != nil {
		return SeatMap{}, err
	}
	seats, err := s.seats.ListSeatsByFlight(ctx, flightID)
	if err != nil {
		return SeatMap{}, err
	}
	m := SeatMap{Seats: seats}
	if m.Seats == nil {
		m.Seats = []model.Seat{}
	}
	for _, seat := range seats {
		if seat.Status == model.SeatAvailable {
			m.AvailableCount++
		}
	}
	return m, nil
}

// Seat returns the current state of one seat.
func (s *SeatService) Seat(ctx context.Context, flightID, seatID string) (model.Seat, error) {
	if err := requireIDs("flightId", flightID, "seatId", seatID); err != nil {
		return model.Seat{}, err
	}
	return s.seats.GetSeat(ctx, flightID, seatID)
}

// Assignments lists the reserved seats of a flight joined with their
// booking and flight details.  A booking that cannot be resolved leaves
// the passenger fields empty.
func (s *SeatService) Assignments(ctx context.Context, flightID string) ([]model.SeatAssignment, error) {
	flight, err := s.flights.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seats.ListSeatsByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	out := []model.SeatAssignment{}
	for _, seat := range seats {
		if seat.Status != model.SeatReserved || seat.BookingID == nil {
			continue
		}
		a := model.SeatAssignment{
			SeatID:           seat.SeatID,
			SeatNumber:       seat.SeatNumber,
			SeatClass:        string(seat.Class),
			SeatStatus:       string(seat.Status),
			BookingID:        *seat.BookingID,
			FlightID:         flight.FlightID,
			FlightNumber:     flight.FlightNumber,
			DepartureAirport: flight.DepartureAirport,
			ArrivalAirport:   flight.ArrivalAirport,
			DepartureTime:    flight.DepartureTime.Format(time.RFC3339),
			ArrivalTime:      flight.ArrivalTime.Format(time.RFC3339),
		}
		if b, err := s.bookings.FindBooking(ctx, *seat.BookingID); err == nil {
			a.PassengerName = b.PassengerName
			a.PassportNumber = b.PassportNumber
			a.Email = b.Email
			a.Phone = b.Phone
		}
		out = append(out, a)
	}
	return out, nil
}

// outbox collects committed seat states awaiting broadcast.
type outbox struct {
	seats []model.Seat
}

func (o *outbox) add(seat model.Seat) { o.seats = append(o.seats, seat) }

func (o *outbox) merge(other *outbox) { o.seats = append(o.seats, other.seats...) }

// requireIDs takes name/value pairs and fails with ErrInvalidInput on the
// first blank value.
func requireIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%s is required: %w", pairs[i], repository.ErrInvalidInput)
		}
	}
	return nil
}
