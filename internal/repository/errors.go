// Package repository defines the storage contracts of the kiosk core and
// their implementations (an in-memory store and MySQL repositories).
//
// The sentinel errors below are shared by every implementation so that
// services and handlers can distinguish failure classes with errors.Is
// regardless of the backing store.  Store unavailability is never
// mapped to a sentinel; driver errors are returned unchanged.
package repository

import "errors"

// ErrSeatNotFound is returned when no seat exists for the given flight
// and seat identifier.  Handlers translate it into HTTP 404.
var ErrSeatNotFound = errors.New("seat not found")

// ErrFlightNotFound is returned when a flight (and therefore its
// counters) does not exist.  Handlers translate it into HTTP 404.
var ErrFlightNotFound = errors.New("flight not found")

// ErrBookingNotFound is returned when a booking reference or passport
// number matches no booking.  Handlers translate it into HTTP 404.
var ErrBookingNotFound = errors.New("booking not found")

// ErrBaggageNotFound is returned when updating or deleting a baggage
// record that no longer exists.
var ErrBaggageNotFound = errors.New("baggage record not found")

// ErrCounterOutOfRange is returned when a counter delta would push
// available_seats below zero or above total_seats, or baggage_count
// below zero.  The counter is left untouched.  Seeing this error means
// the aggregate has drifted from the seat set; handlers answer 409.
var ErrCounterOutOfRange = errors.New("counter delta out of range")

// ErrDuplicate is returned when an insert violates a uniqueness rule
// such as the baggage tag number.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidInput is returned by the services when a request carries an
// empty identifier or a negative weight or piece count.  Handlers
// translate it into HTTP 400.
var ErrInvalidInput = errors.New("invalid input")
