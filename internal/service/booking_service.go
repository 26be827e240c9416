package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/iliyamo/airport-kiosk/internal/utils"
)

// boardingLead is how long before departure boarding is printed to open.
const boardingLead = 30 * time.Minute

// passTimeLayout is the local date-time layout printed on passes.
const passTimeLayout = "2006-01-02T15:04:05"

// placeholderGate is printed until gate assignment is integrated.
const placeholderGate = "TBD"

// BookingService resolves bookings and the flights they belong to, and
// issues boarding passes.
type BookingService struct {
	bookings repository.BookingStore
	flights  repository.FlightStore
	seats    repository.SeatStore
}

// NewBookingService returns a BookingService.
func NewBookingService(bookings repository.BookingStore, flights repository.FlightStore, seats repository.SeatStore) *BookingService {
	return &BookingService{bookings: bookings, flights: flights, seats: seats}
}

// BookingWithFlight is a search hit.
type BookingWithFlight struct {
	Booking model.Booking `json:"booking"`
	Flight  model.Flight  `json:"flight"`
}

// Search finds a booking by reference or, when reference is blank, by
// passport number.  Both are matched case-insensitively.
func (s *BookingService) Search(ctx context.Context, reference, passport string) (BookingWithFlight, error) {
	var (
		b   model.Booking
		err error
	)
	switch {
	case strings.TrimSpace(reference) != "":
		b, err = s.bookings.FindBooking(ctx, reference)
	case strings.TrimSpace(passport) != "":
		b, err = s.bookings.FindBookingByPassport(ctx, passport)
	default:
		return BookingWithFlight{}, fmt.Errorf("either bookingReference or passportNumber must be provided: %w", repository.ErrInvalidInput)
	}
	if err != nil {
		return BookingWithFlight{}, err
	}
	f, err := s.flights.GetFlight(ctx, b.FlightID)
	if err != nil {
		return BookingWithFlight{}, err
	}
	return BookingWithFlight{Booking: b, Flight: f}, nil
}

// Get resolves a booking reference case-insensitively.
func (s *BookingService) Get(ctx context.Context, bookingID string) (model.Booking, error) {
	if err := requireIDs("bookingId", bookingID); err != nil {
		return model.Booking{}, err
	}
	return s.bookings.FindBooking(ctx, bookingID)
}

// GetWithFlight resolves a booking reference and loads its flight.
func (s *BookingService) GetWithFlight(ctx context.Context, bookingID string) (BookingWithFlight, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return BookingWithFlight{}, err
	}
	f, err := s.flights.GetFlight(ctx, b.FlightID)
	if err != nil {
		return BookingWithFlight{}, err
	}
	return BookingWithFlight{Booking: b, Flight: f}, nil
}

// CanonicalID maps a client-supplied booking reference to the canonical
// upper-case id.  An unknown reference is still normalized so that the
// seat engine can decide on it.
func (s *BookingService) CanonicalID(ctx context.Context, bookingID string) string {
	if b, err := s.bookings.FindBooking(ctx, bookingID); err == nil {
		return utils.NormalizeBookingID(b.BookingID)
	}
	return utils.NormalizeBookingID(bookingID)
}

// BoardingPass builds the boarding pass of a booking.  The booking must
// hold a reserved seat on its flight.  Gate and boarding time are
// placeholders.
func (s *BookingService) BoardingPass(ctx context.Context, bookingID string) (model.BoardingPass, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return model.BoardingPass{}, err
	}
	f, err := s.flights.GetFlight(ctx, b.FlightID)
	if err != nil {
		return model.BoardingPass{}, err
	}
	seats, err := s.seats.ListSeatsByFlight(ctx, f.FlightID)
	if err != nil {
		return model.BoardingPass{}, err
	}
	var seat *model.Seat
	for i := range seats {
		if seats[i].Status == model.SeatReserved && seats[i].BookingID != nil && utils.SameBooking(*seats[i].BookingID, b.BookingID) {
			seat = &seats[i]
			break
		}
	}
	if seat == nil {
		return model.BoardingPass{}, fmt.Errorf("no seat reserved for booking %s: %w", b.BookingID, repository.ErrSeatNotFound)
	}
	return model.BoardingPass{
		BookingID:        b.BookingID,
		PassengerName:    b.PassengerName,
		FlightNumber:     f.FlightNumber,
		SeatNumber:       seat.SeatNumber,
		DepartureAirport: f.DepartureAirport,
		ArrivalAirport:   f.ArrivalAirport,
		DepartureTime:    f.DepartureTime.Format(passTimeLayout),
		ArrivalTime:      f.ArrivalTime.Format(passTimeLayout),
		Gate:             placeholderGate,
		BoardingTime:     f.DepartureTime.Add(-boardingLead).Format(passTimeLayout),
		QRCode:           utils.NewQRPayload(b.BookingID, f.FlightNumber, seat.SeatNumber),
	}, nil
}

// FlightService is the read side of flights.
type FlightService struct {
	flights repository.FlightStore
}

// NewFlightService returns a FlightService.
func NewFlightService(flights repository.FlightStore) *FlightService {
	return &FlightService{flights: flights}
}

// List returns every flight ordered by departure time.
func (s *FlightService) List(ctx context.Context) ([]model.Flight, error) {
	fl, err := s.flights.ListFlights(ctx)
	if err != nil {
		return nil, err
	}
	if fl == nil {
		fl = []model.Flight{}
	}
	return fl, nil
}

// Get loads one flight.
func (s *FlightService) Get(ctx context.Context, flightID string) (model.Flight, error) {
	return s.flights.GetFlight(ctx, flightID)
}
