package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/airport-kiosk/internal/model"
)

// BaggageRepo provides data access to the baggage_records table.  The
// table has a unique index on tag_number; uniqueness of
// (flight_id, booking_id) is maintained by the baggage service, which
// also repairs historical duplicates.
type BaggageRepo struct {
	db *sql.DB
}

// NewBaggageRepo returns a new BaggageRepo bound to the provided database.
func NewBaggageRepo(db *sql.DB) *BaggageRepo { return &BaggageRepo{db: db} }

// ListBaggageByBooking returns the records for a booking on a flight,
// oldest check-in first.  Booking references are compared
// case-insensitively so that rows written before normalization are
// still found.
func (r *BaggageRepo) ListBaggageByBooking(ctx context.Context, flightID, bookingID string) ([]model.BaggageRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT baggage_id, booking_id, flight_id, baggage_weight, baggage_count, tag_number, check_in_time
         FROM baggage_records
         WHERE flight_id = ? AND UPPER(booking_id) = UPPER(?)
         ORDER BY check_in_time, baggage_id
         FOR UPDATE`,
		flightID, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBaggage(rows)
}

// ListBaggageByFlight returns the flight's records ordered by tag number.
func (r *BaggageRepo) ListBaggageByFlight(ctx context.Context, flightID string) ([]model.BaggageRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT baggage_id, booking_id, flight_id, baggage_weight, baggage_count, tag_number, check_in_time
         FROM baggage_records
         WHERE flight_id = ?
         ORDER BY tag_number`,
		flightID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBaggage(rows)
}

func scanBaggage(rows *sql.Rows) ([]model.BaggageRecord, error) {
	var out []model.BaggageRecord
	for rows.Next() {
		var rec model.BaggageRecord
		if err := rows.Scan(&rec.BaggageID, &rec.BookingID, &rec.FlightID, &rec.Weight, &rec.Count,
			&rec.TagNumber, &rec.CheckInTime); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertBaggage creates a record.  A clashing id or tag number yields
// ErrDuplicate.
func (r *BaggageRepo) InsertBaggage(ctx context.Context, rec model.BaggageRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO baggage_records (baggage_id, booking_id, flight_id, baggage_weight, baggage_count, tag_number, check_in_time)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.BaggageID, rec.BookingID, rec.FlightID, rec.Weight, rec.Count, rec.TagNumber, rec.CheckInTime.UTC(),
	)
	if isDuplicateKey(err) {
		return fmt.Errorf("baggage %s / tag %s: %w", rec.BaggageID, rec.TagNumber, ErrDuplicate)
	}
	return err
}

// UpdateBaggage overwrites weight, count and check-in time in place.
// The tag number is never touched.
func (r *BaggageRepo) UpdateBaggage(ctx context.Context, rec model.BaggageRecord) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE baggage_records SET baggage_weight = ?, baggage_count = ?, check_in_time = ? WHERE baggage_id = ?`,
		rec.Weight, rec.Count, rec.CheckInTime.UTC(), rec.BaggageID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res, rec.BaggageID)
}

// DeleteBaggage removes a record by id.
func (r *BaggageRepo) DeleteBaggage(ctx context.Context, baggageID string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM baggage_records WHERE baggage_id = ?`, baggageID)
	if err != nil {
		return err
	}
	return requireOneRow(res, baggageID)
}

func requireOneRow(res sql.Result, baggageID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("baggage %s: %w", baggageID, ErrBaggageNotFound)
	}
	return nil
}
