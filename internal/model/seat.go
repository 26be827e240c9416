package model

import "time"

// SeatClass is the cabin class of a seat.
type SeatClass string

const (
	SeatClassEconomy  SeatClass = "ECONOMY"
	SeatClassBusiness SeatClass = "BUSINESS"
	SeatClassFirst    SeatClass = "FIRST"
)

// Valid reports whether c is one of the known cabin classes.
func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

// SeatStatus is the position of a seat in the reservation state machine.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatLocked    SeatStatus = "LOCKED"
	SeatReserved  SeatStatus = "RESERVED"
	SeatOccupied  SeatStatus = "OCCUPIED"
)

// Valid reports whether s is one of the known seat states.
func (s SeatStatus) Valid() bool {
	switch s {
	case SeatAvailable, SeatLocked, SeatReserved, SeatOccupied:
		return true
	}
	return false
}

// Seat describes one seat on one flight.  Seats are identified by
// (FlightID, SeatID) and are also unique by (FlightID, SeatNumber).
// A seat is created when the flight is set up and is only mutated by
// the seat reservation engine afterwards.
//
// Fields:
//  FlightID   – flight the seat belongs to.
//  SeatID     – opaque seat identifier, unique per flight.
//  SeatNumber – printed seat label such as "12C".
//  Class      – cabin class (ECONOMY, BUSINESS, FIRST).
//  Status     – AVAILABLE, LOCKED, RESERVED or OCCUPIED.
//  BookingID  – canonical booking reference owning the seat (RESERVED only).
//  LockedBy   – holder token of the kiosk session holding the lock (LOCKED only).
//  LockExpiry – when the current lock lapses (LOCKED only).
//  Version    – bumped by one on every successful write; backs compare-and-swap.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	FlightID   string     `json:"flightId"`             // seats.flight_id
	SeatID     string     `json:"seatId"`               // seats.seat_id
	SeatNumber string     `json:"seatNumber"`           // seats.seat_number
	Class      SeatClass  `json:"seatClass"`            // seats.seat_class
	Status     SeatStatus `json:"seatStatus"`           // seats.seat_status
	BookingID  *string    `json:"bookingId,omitempty"`  // seats.booking_id (nullable)
	LockedBy   *string    `json:"lockedBy,omitempty"`   // seats.locked_by (nullable)
	LockExpiry *time.Time `json:"lockExpiry,omitempty"` // seats.lock_expiry (nullable)
	Version    int64      `json:"version"`              // seats.version
	CreatedAt  time.Time  `json:"createdAt"`            // seats.created_at
	UpdatedAt  time.Time  `json:"updatedAt"`            // seats.updated_at
}

// LockExpired reports whether the seat carries a lock whose expiry is
// strictly before now.
func (s Seat) LockExpired(now time.Time) bool {
	return s.Status == SeatLocked && s.LockExpiry != nil && s.LockExpiry.Before(now)
}

// HeldBy reports whether the seat is LOCKED by holder.
func (s Seat) HeldBy(holder string) bool {
	return s.Status == SeatLocked && s.LockedBy != nil && *s.LockedBy == holder
}

// Released returns a copy of the seat reset to AVAILABLE with booking,
// holder and expiry cleared.
func (s Seat) Released() Seat {
	s.Status = SeatAvailable
	s.BookingID = nil
	s.LockedBy = nil
	s.LockExpiry = nil
	return s
}

// LockedFor returns a copy of the seat LOCKED by holder until expiry.
func (s Seat) LockedFor(holder string, expiry time.Time) Seat {
	s.Status = SeatLocked
	s.BookingID = nil
	s.LockedBy = &holder
	s.LockExpiry = &expiry
	return s
}

// ReservedFor returns a copy of the seat RESERVED for bookingID with the
// lock cleared.
func (s Seat) ReservedFor(bookingID string) Seat {
	s.Status = SeatReserved
	s.BookingID = &bookingID
	s.LockedBy = nil
	s.LockExpiry = nil
	return s
}

// SeatAssignment is a reserved seat joined with its booking and flight,
// as shown on the staff assignments view.
type SeatAssignment struct {
	SeatID           string `json:"seatId"`
	SeatNumber       string `json:"seatNumber"`
	SeatClass        string `json:"seatClass"`
	SeatStatus       string `json:"seatStatus"`
	BookingID        string `json:"bookingId"`
	PassengerName    string `json:"passengerName,omitempty"`
	PassportNumber   string `json:"passportNumber,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	FlightID         string `json:"flightId"`
	FlightNumber     string `json:"flightNumber,omitempty"`
	DepartureAirport string `json:"departureAirport,omitempty"`
	ArrivalAirport   string `json:"arrivalAirport,omitempty"`
	DepartureTime    string `json:"departureTime,omitempty"`
	ArrivalTime      string `json:"arrivalTime,omitempty"`
}
