package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/airport-kiosk/internal/model"
)

// FlightRepo provides access to the flights table.  Besides the flight
// itself, each row carries the available_seats and baggage_count
// aggregates, which are only ever changed through ApplyDelta.
type FlightRepo struct {
	db *sql.DB
}

// NewFlightRepo returns a new FlightRepo bound to the provided database.
func NewFlightRepo(db *sql.DB) *FlightRepo { return &FlightRepo{db: db} }

const flightColumns = `flight_id, flight_number, departure_airport, arrival_airport, departure_time,
        arrival_time, total_seats, available_seats, baggage_count, flight_status, created_at, updated_at`

// Delta statements keep the range check in the WHERE clause so that the
// test and the write are one statement; a zero row count means either
// the flight is missing or the delta would leave the allowed range.
const (
	applyAvailableSeatsSQL = `UPDATE flights
        SET available_seats = available_seats + ?, updated_at = UTC_TIMESTAMP()
        WHERE flight_id = ? AND available_seats + ? >= 0 AND available_seats + ? <= total_seats`
	applyBaggageCountSQL = `UPDATE flights
        SET baggage_count = baggage_count + ?, updated_at = UTC_TIMESTAMP()
        WHERE flight_id = ? AND baggage_count + ? >= 0`
)

// ApplyDelta adds delta to one aggregate in a single UPDATE and returns
// the counters as seen by the same connection afterwards.
func (r *FlightRepo) ApplyDelta(ctx context.Context, flightID string, field model.CounterField, delta int) (model.FlightCounters, error) {
	var (
		stmt string
		args []any
	)
	switch field {
	case model.CounterAvailableSeats:
		stmt, args = applyAvailableSeatsSQL, []any{delta, flightID, delta, delta}
	case model.CounterBaggageCount:
		stmt, args = applyBaggageCountSQL, []any{delta, flightID, delta}
	default:
		return model.FlightCounters{}, fmt.Errorf("unknown counter field %q", field)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, stmt, args...)
	if err != nil {
		return model.FlightCounters{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.FlightCounters{}, err
	}
	counters, err := r.GetCounters(ctx, flightID)
	if err != nil {
		return model.FlightCounters{}, err
	}
	if n == 0 && delta != 0 {
		return model.FlightCounters{}, fmt.Errorf("%s%+d on flight %s: %w", field, delta, flightID, ErrCounterOutOfRange)
	}
	return counters, nil
}

// GetCounters reads the aggregates of a flight.
func (r *FlightRepo) GetCounters(ctx context.Context, flightID string) (model.FlightCounters, error) {
	var c model.FlightCounters
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT flight_id, total_seats, available_seats, baggage_count FROM flights WHERE flight_id = ?`,
		flightID,
	).Scan(&c.FlightID, &c.TotalSeats, &c.AvailableSeats, &c.BaggageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FlightCounters{}, fmt.Errorf("flight %s: %w", flightID, ErrFlightNotFound)
	}
	return c, err
}

// GetFlight loads a flight by id.
func (r *FlightRepo) GetFlight(ctx context.Context, flightID string) (model.Flight, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE flight_id = ?`, flightID)
	f, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flight{}, fmt.Errorf("flight %s: %w", flightID, ErrFlightNotFound)
	}
	return f, err
}

// ListFlights returns every flight ordered by departure time.
func (r *FlightRepo) ListFlights(ctx context.Context) ([]model.Flight, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights ORDER BY departure_time, flight_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertFlight creates a flight or refreshes its schedule fields.  The
// aggregates are only written on insert; an existing row keeps its
// counters untouched.
func (r *FlightRepo) UpsertFlight(ctx context.Context, f model.Flight) error {
	status := f.Status
	if status == "" {
		status = model.FlightScheduled
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO flights (flight_id, flight_number, departure_airport, arrival_airport, departure_time,
                              arrival_time, total_seats, available_seats, baggage_count, flight_status)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE flight_number = VALUES(flight_number),
             departure_airport = VALUES(departure_airport), arrival_airport = VALUES(arrival_airport),
             departure_time = VALUES(departure_time), arrival_time = VALUES(arrival_time),
             flight_status = VALUES(flight_status), updated_at = UTC_TIMESTAMP()`,
		f.FlightID, f.FlightNumber, f.DepartureAirport, f.ArrivalAirport, f.DepartureTime.UTC(),
		f.ArrivalTime.UTC(), f.TotalSeats, f.AvailableSeats, f.BaggageCount, string(status),
	)
	return err
}

func scanFlight(s rowScanner) (model.Flight, error) {
	var (
		f      model.Flight
		status string
	)
	if err := s.Scan(&f.FlightID, &f.FlightNumber, &f.DepartureAirport, &f.ArrivalAirport, &f.DepartureTime,
		&f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BaggageCount, &status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return model.Flight{}, err
	}
	f.Status = model.FlightStatus(status)
	return f, nil
}
