package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCheckedIn BookingStatus = "CHECKED_IN"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking is a passenger's reservation on one flight.  Booking
// references are matched case-insensitively; inside the kiosk core they
// are always handled in their upper-case canonical form.
type Booking struct {
	BookingID      string        `json:"bookingId"`      // bookings.booking_id
	PassengerName  string        `json:"passengerName"`  // bookings.passenger_name
	PassportNumber string        `json:"passportNumber"` // bookings.passport_number
	Email          string        `json:"email"`          // bookings.email
	Phone          string        `json:"phone"`          // bookings.phone
	FlightID       string        `json:"flightId"`       // bookings.flight_id
	Status         BookingStatus `json:"bookingStatus"`  // bookings.booking_status
	CreatedAt      time.Time     `json:"createdAt"`      // bookings.created_at
	UpdatedAt      time.Time     `json:"updatedAt"`      // bookings.updated_at
}

// BoardingPass is the data printed on a kiosk boarding pass.  Gate and
// boarding time are placeholders; no real gate assignment exists here.
type BoardingPass struct {
	BookingID        string `json:"bookingId"`
	PassengerName    string `json:"passengerName"`
	FlightNumber     string `json:"flightNumber"`
	SeatNumber       string `json:"seatNumber"`
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	DepartureTime    string `json:"departureTime"`
	ArrivalTime      string `json:"arrivalTime"`
	Gate             string `json:"gate"`
	BoardingTime     string `json:"boardingTime"`
	QRCode           string `json:"qrCode"`
}
