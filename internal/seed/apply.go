package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
)

// Sink receives fixture rows.
type Sink interface {
	UpsertFlight(ctx context.Context, f model.Flight) error
	InsertSeat(ctx context.Context, seat model.Seat) error
	UpsertBooking(ctx context.Context, b model.Booking) error
}

// Result counts what Apply wrote.
type Result struct {
	Flights  int
	Seats    int
	Skipped  int
	Bookings int
}

// Apply writes the fixture to sink: flights first, then their seats,
// then bookings.  Seats that already exist are skipped so that a
// fixture can be re-applied to a live database without touching seat
// state.
func Apply(ctx context.Context, sink Sink, f *Fixture, log *slog.Logger) (Result, error) {
	if log == nil {
		log = slog.Default()
	}
	var res Result
	for _, fl := range f.Flights {
		seats := fl.seats()
		if err := sink.UpsertFlight(ctx, fl.flight(seats)); err != nil {
			return res, fmt.Errorf("flight %s: %w", fl.FlightID, err)
		}
		res.Flights++
		for _, s := range seats {
			err := sink.InsertSeat(ctx, s)
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				res.Skipped++
			case err != nil:
				return res, fmt.Errorf("seat %s on flight %s: %w", s.SeatID, fl.FlightID, err)
			default:
				res.Seats++
			}
		}
	}
	for _, b := range f.Bookings {
		if err := sink.UpsertBooking(ctx, b.booking()); err != nil {
			return res, fmt.Errorf("booking %s: %w", b.BookingID, err)
		}
		res.Bookings++
	}
	log.Info("seed: fixture applied", "flights", res.Flights, "seats", res.Seats, "skipped_seats", res.Skipped, "bookings", res.Bookings)
	return res, nil
}

// MemorySink writes into a MemoryStore.
type MemorySink struct {
	Store *repository.MemoryStore
}

func (m MemorySink) UpsertFlight(_ context.Context, f model.Flight) error {
	m.Store.PutFlight(f)
	return nil
}

func (m MemorySink) InsertSeat(ctx context.Context, seat model.Seat) error {
	if _, err := m.Store.GetSeat(ctx, seat.FlightID, seat.SeatID); err == nil {
		return fmt.Errorf("seat %s on flight %s: %w", seat.SeatID, seat.FlightID, repository.ErrDuplicate)
	}
	return m.Store.PutSeat(seat)
}

func (m MemorySink) UpsertBooking(_ context.Context, b model.Booking) error {
	m.Store.PutBooking(b)
	return nil
}

// SQLSink writes through the MySQL repositories.
type SQLSink struct {
	Flights  *repository.FlightRepo
	Seats    *repository.SeatRepo
	Bookings *repository.BookingRepo
}

func (s SQLSink) UpsertFlight(ctx context.Context, f model.Flight) error {
	return s.Flights.UpsertFlight(ctx, f)
}

func (s SQLSink) InsertSeat(ctx context.Context, seat model.Seat) error {
	return s.Seats.InsertSeat(ctx, seat)
}

func (s SQLSink) UpsertBooking(ctx context.Context, b model.Booking) error {
	return s.Bookings.UpsertBooking(ctx, b)
}

// Discard counts rows without writing them.  cmd/seed uses it for
// --dry-run.
type Discard struct{}

func (Discard) UpsertFlight(context.Context, model.Flight) error   { return nil }
func (Discard) InsertSeat(context.Context, model.Seat) error       { return nil }
func (Discard) UpsertBooking(context.Context, model.Booking) error { return nil }
