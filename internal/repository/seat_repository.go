package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/model"
)

// SeatRepo encapsulates database operations for the seats table.  All
// writes are optimistic: the version column must still hold the value
// the caller read, otherwise the update matches no row.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `flight_id, seat_id, seat_number, seat_class, seat_status, booking_id,
        locked_by, lock_expiry, version, created_at, updated_at`

// GetSeat loads one seat.  It returns ErrSeatNotFound when the
// (flight_id, seat_id) pair does not exist.
func (r *SeatRepo) GetSeat(ctx context.Context, flightID, seatID string) (model.Seat, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE flight_id = ? AND seat_id = ?`,
		flightID, seatID,
	)
	seat, err := scanSeat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, fmt.Errorf("seat %s on flight %s: %w", seatID, flightID, ErrSeatNotFound)
	}
	return seat, err
}

// ListSeatsByFlight returns the full seat map of a flight ordered by
// seat number.
func (r *SeatRepo) ListSeatsByFlight(ctx context.Context, flightID string) ([]model.Seat, error) {
	return r.query(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE flight_id = ? ORDER BY seat_number, seat_id`,
		flightID,
	)
}

// ListExpiredLocks returns LOCKED seats of a flight whose lock_expiry is
// strictly before now.  The caller supplies now so that expiry follows
// the same clock that granted the lock.
func (r *SeatRepo) ListExpiredLocks(ctx context.Context, flightID string, now time.Time) ([]model.Seat, error) {
	return r.query(ctx,
		`SELECT `+seatColumns+` FROM seats
         WHERE flight_id = ? AND seat_status = 'LOCKED' AND lock_expiry < ?
         ORDER BY seat_number, seat_id`,
		flightID, now.UTC(),
	)
}

// CompareAndSwapSeat writes status, booking, holder and expiry of seat
// and bumps the version, but only while the stored version equals
// expectedVersion.  It returns false when another writer got there
// first and ErrSeatNotFound when the seat does not exist at all.
func (r *SeatRepo) CompareAndSwapSeat(ctx context.Context, seat model.Seat, expectedVersion int64) (bool, error) {
	var expiry sql.NullTime
	if seat.LockExpiry != nil {
		expiry = sql.NullTime{Time: seat.LockExpiry.UTC(), Valid: true}
	}
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx,
		`UPDATE seats
         SET seat_status = ?, booking_id = ?, locked_by = ?, lock_expiry = ?,
             version = version + 1, updated_at = UTC_TIMESTAMP()
         WHERE flight_id = ? AND seat_id = ? AND version = ?`,
		string(seat.Status), nullString(seat.BookingID), nullString(seat.LockedBy), expiry,
		seat.FlightID, seat.SeatID, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	// Distinguish a lost race from a missing seat.
	var one int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM seats WHERE flight_id = ? AND seat_id = ?`, seat.FlightID, seat.SeatID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("seat %s on flight %s: %w", seat.SeatID, seat.FlightID, ErrSeatNotFound)
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// InsertSeat creates a seat at flight setup time.  Duplicate seat ids or
// seat numbers within a flight yield ErrDuplicate.
func (r *SeatRepo) InsertSeat(ctx context.Context, seat model.Seat) error {
	status := seat.Status
	if status == "" {
		status = model.SeatAvailable
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO seats (flight_id, seat_id, seat_number, seat_class, seat_status, booking_id, version)
         VALUES (?, ?, ?, ?, ?, ?, 0)`,
		seat.FlightID, seat.SeatID, seat.SeatNumber, string(seat.Class), string(status), nullString(seat.BookingID),
	)
	if isDuplicateKey(err) {
		return fmt.Errorf("seat %s on flight %s: %w", seat.SeatID, seat.FlightID, ErrDuplicate)
	}
	return err
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(s rowScanner) (model.Seat, error) {
	var (
		seat      model.Seat
		class     string
		status    string
		bookingID sql.NullString
		lockedBy  sql.NullString
		expiry    sql.NullTime
	)
	if err := s.Scan(&seat.FlightID, &seat.SeatID, &seat.SeatNumber, &class, &status, &bookingID,
		&lockedBy, &expiry, &seat.Version, &seat.CreatedAt, &seat.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	seat.Class = model.SeatClass(class)
	seat.Status = model.SeatStatus(status)
	seat.BookingID = stringPtr(bookingID)
	seat.LockedBy = stringPtr(lockedBy)
	if expiry.Valid {
		t := expiry.Time.UTC()
		seat.LockExpiry = &t
	}
	return seat, nil
}
