package repository

import (
	"context"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/model"
)

// SeatStore holds the per-flight seat records.  Writes go exclusively
// through CompareAndSwapSeat, which succeeds only while the stored
// version still equals expectedVersion and bumps the version by one.
type SeatStore interface {
	// GetSeat returns the seat or ErrSeatNotFound.
	GetSeat(ctx context.Context, flightID, seatID string) (model.Seat, error)
	// ListSeatsByFlight returns every seat of the flight ordered by seat number.
	ListSeatsByFlight(ctx context.Context, flightID string) ([]model.Seat, error)
	// ListExpiredLocks returns LOCKED seats whose expiry is before now.
	ListExpiredLocks(ctx context.Context, flightID string, now time.Time) ([]model.Seat, error)
	// CompareAndSwapSeat replaces the mutable fields of the stored seat
	// with those of seat when the stored version equals expectedVersion.
	// It reports false, without error, when the version moved on.
	CompareAndSwapSeat(ctx context.Context, seat model.Seat, expectedVersion int64) (bool, error)
}

// CounterStore holds the derived per-flight aggregates.  ApplyDelta is a
// single indivisible operation: the store never hands the current value
// to the caller for a read-modify-write.
type CounterStore interface {
	// ApplyDelta adds delta to field and returns the counters after the
	// change.  It fails with ErrFlightNotFound or ErrCounterOutOfRange.
	ApplyDelta(ctx context.Context, flightID string, field model.CounterField, delta int) (model.FlightCounters, error)
	// GetCounters returns the current aggregates or ErrFlightNotFound.
	GetCounters(ctx context.Context, flightID string) (model.FlightCounters, error)
}

// BaggageStore holds baggage records.
type BaggageStore interface {
	// ListBaggageByBooking returns the records of a booking on a flight,
	// oldest check-in first.  More than one record means an earlier
	// invariant violation that the caller is expected to repair.
	ListBaggageByBooking(ctx context.Context, flightID, bookingID string) ([]model.BaggageRecord, error)
	// ListBaggageByFlight returns every record of a flight ordered by tag.
	ListBaggageByFlight(ctx context.Context, flightID string) ([]model.BaggageRecord, error)
	InsertBaggage(ctx context.Context, rec model.BaggageRecord) error
	UpdateBaggage(ctx context.Context, rec model.BaggageRecord) error
	DeleteBaggage(ctx context.Context, baggageID string) error
}

// FlightStore is the read side of flights.
type FlightStore interface {
	GetFlight(ctx context.Context, flightID string) (model.Flight, error)
	ListFlights(ctx context.Context) ([]model.Flight, error)
}

// BookingStore resolves bookings case-insensitively.
type BookingStore interface {
	FindBooking(ctx context.Context, bookingID string) (model.Booking, error)
	FindBookingByPassport(ctx context.Context, passportNumber string) (model.Booking, error)
}

// Transactor groups store calls into one atomic unit.  Store calls made
// with the context passed to fn join the unit; if fn returns an error
// every write performed inside it is undone.  Nested InTx calls join the
// outer unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var (
	_ SeatStore    = (*MemoryStore)(nil)
	_ CounterStore = (*MemoryStore)(nil)
	_ BaggageStore = (*MemoryStore)(nil)
	_ FlightStore  = (*MemoryStore)(nil)
	_ BookingStore = (*MemoryStore)(nil)
	_ Transactor   = (*MemoryStore)(nil)

	_ SeatStore    = (*SeatRepo)(nil)
	_ CounterStore = (*FlightRepo)(nil)
	_ FlightStore  = (*FlightRepo)(nil)
	_ BaggageStore = (*BaggageRepo)(nil)
	_ BookingStore = (*BookingRepo)(nil)
	_ Transactor   = (*TxManager)(nil)
)
