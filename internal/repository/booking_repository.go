package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/airport-kiosk/internal/model"
)

// BookingRepo provides read access to the bookings table.  Lookups are
// case-insensitive on both the booking reference and the passport
// number.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `booking_id, passenger_name, passport_number, email, phone, flight_id,
        booking_status, created_at, updated_at`

// FindBooking resolves a booking reference case-insensitively.
func (r *BookingRepo) FindBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	return r.findOne(ctx, `UPPER(booking_id) = UPPER(?)`, strings.TrimSpace(bookingID), "booking "+bookingID)
}

// FindBookingByPassport resolves a booking by passport number,
// case-insensitively.
func (r *BookingRepo) FindBookingByPassport(ctx context.Context, passportNumber string) (model.Booking, error) {
	return r.findOne(ctx, `UPPER(passport_number) = UPPER(?)`, strings.TrimSpace(passportNumber), "booking for passport "+passportNumber)
}

// UpsertBooking creates or replaces a booking.  Used by the seed loader.
func (r *BookingRepo) UpsertBooking(ctx context.Context, b model.Booking) error {
	status := b.Status
	if status == "" {
		status = model.BookingConfirmed
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO bookings (booking_id, passenger_name, passport_number, email, phone, flight_id, booking_status)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE passenger_name = VALUES(passenger_name), passport_number = VALUES(passport_number),
             email = VALUES(email), phone = VALUES(phone), flight_id = VALUES(flight_id),
             booking_status = VALUES(booking_status), updated_at = UTC_TIMESTAMP()`,
		b.BookingID, b.PassengerName, b.PassportNumber, b.Email, b.Phone, b.FlightID, string(status),
	)
	return err
}

func (r *BookingRepo) findOne(ctx context.Context, where, arg, what string) (model.Booking, error) {
	if arg == "" {
		return model.Booking{}, fmt.Errorf("%s: %w", what, ErrBookingNotFound)
	}
	var (
		b        model.Booking
		passport sql.NullString
		email    sql.NullString
		phone    sql.NullString
		status   string
	)
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+where+` LIMIT 1`, arg,
	).Scan(&b.BookingID, &b.PassengerName, &passport, &email, &phone, &b.FlightID, &status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%s: %w", what, ErrBookingNotFound)
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.PassportNumber = passport.String
	b.Email = email.String
	b.Phone = phone.String
	b.Status = model.BookingStatus(status)
	return b, nil
}
