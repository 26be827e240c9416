// Package seed loads flights, seats and bookings from a YAML fixture
// into a store.  It is used at startup (SEED_FILE) and by cmd/seed.
package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/utils"
)

// Fixture is the top-level document.
type Fixture struct {
	Flights  []FlightFixture  `yaml:"flights"`
	Bookings []BookingFixture `yaml:"bookings"`
}

// FlightFixture describes one flight.  Seats are either listed
// explicitly or generated from Layout; explicit seats win.
type FlightFixture struct {
	FlightID         string        `yaml:"flight_id"`
	FlightNumber     string        `yaml:"flight_number"`
	DepartureAirport string        `yaml:"departure_airport"`
	ArrivalAirport   string        `yaml:"arrival_airport"`
	DepartureTime    time.Time     `yaml:"departure_time"`
	ArrivalTime      time.Time     `yaml:"arrival_time"`
	Status           string        `yaml:"status"`
	Layout           *Layout       `yaml:"layout"`
	Seats            []SeatFixture `yaml:"seats"`
}

// Layout generates rows x columns seats numbered "<row><column>".
// Rows up to FirstRows are FIRST, the next BusinessRows are BUSINESS and
// the rest ECONOMY.
type Layout struct {
	Rows         int    `yaml:"rows"`
	Columns      string `yaml:"columns"`
	FirstRows    int    `yaml:"first_rows"`
	BusinessRows int    `yaml:"business_rows"`
}

// SeatFixture is an explicitly listed seat.  A RESERVED seat must name
// its booking; LOCKED and OCCUPIED seats cannot be seeded.
type SeatFixture struct {
	SeatID    string `yaml:"seat_id"`
	Number    string `yaml:"number"`
	Class     string `yaml:"class"`
	Status    string `yaml:"status"`
	BookingID string `yaml:"booking_id"`
}

// BookingFixture is one passenger booking.
type BookingFixture struct {
	BookingID      string `yaml:"booking_id"`
	PassengerName  string `yaml:"passenger_name"`
	PassportNumber string `yaml:"passport_number"`
	Email          string `yaml:"email"`
	Phone          string `yaml:"phone"`
	FlightID       string `yaml:"flight_id"`
	Status         string `yaml:"status"`
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks references and value ranges.
func (f *Fixture) Validate() error {
	flights := make(map[string]bool, len(f.Flights))
	for i, fl := range f.Flights {
		if fl.FlightID == "" || fl.FlightNumber == "" {
			return fmt.Errorf("flight %d: flight_id and flight_number are required", i)
		}
		if flights[fl.FlightID] {
			return fmt.Errorf("flight %q: listed twice", fl.FlightID)
		}
		flights[fl.FlightID] = true
		if fl.Status != "" && !validFlightStatus(model.FlightStatus(strings.ToUpper(fl.Status))) {
			return fmt.Errorf("flight %q: unknown status %q", fl.FlightID, fl.Status)
		}
		if len(fl.Seats) == 0 {
			if fl.Layout == nil || fl.Layout.Rows <= 0 || fl.Layout.Columns == "" {
				return fmt.Errorf("flight %q: seats or a layout with rows and columns is required", fl.FlightID)
			}
		}
		seen := make(map[string]bool)
		for _, s := range fl.seats() {
			if seen[s.SeatNumber] {
				return fmt.Errorf("flight %q: seat number %s listed twice", fl.FlightID, s.SeatNumber)
			}
			seen[s.SeatNumber] = true
			if !s.Class.Valid() {
				return fmt.Errorf("flight %q seat %s: unknown class %q", fl.FlightID, s.SeatID, s.Class)
			}
			switch s.Status {
			case model.SeatAvailable:
			case model.SeatReserved:
				if s.BookingID == nil {
					return fmt.Errorf("flight %q seat %s: reserved seat without booking_id", fl.FlightID, s.SeatID)
				}
			default:
				return fmt.Errorf("flight %q seat %s: status %q cannot be seeded", fl.FlightID, s.SeatID, s.Status)
			}
		}
	}
	for i, b := range f.Bookings {
		if b.BookingID == "" || b.PassengerName == "" {
			return fmt.Errorf("booking %d: booking_id and passenger_name are required", i)
		}
		if !flights[b.FlightID] {
			return fmt.Errorf("booking %q: unknown flight %q", b.BookingID, b.FlightID)
		}
	}
	return nil
}

func validFlightStatus(s model.FlightStatus) bool {
	switch s {
	case model.FlightScheduled, model.FlightBoarding, model.FlightDeparted, model.FlightCancelled:
		return true
	}
	return false
}

// seats expands the fixture into seat rows, all at version 0.
func (fl FlightFixture) seats() []model.Seat {
	var out []model.Seat
	if len(fl.Seats) > 0 {
		for _, s := range fl.Seats {
			number := strings.ToUpper(strings.TrimSpace(s.Number))
			id := s.SeatID
			if id == "" {
				id = number
			}
			seat := model.Seat{
				FlightID:   fl.FlightID,
				SeatID:     id,
				SeatNumber: number,
				Class:      model.SeatClass(defaultUpper(s.Class, string(model.SeatClassEconomy))),
				Status:     model.SeatStatus(defaultUpper(s.Status, string(model.SeatAvailable))),
			}
			if b := utils.NormalizeBookingID(s.BookingID); b != "" {
				seat.BookingID = &b
			}
			out = append(out, seat)
		}
		return out
	}
	l := fl.Layout
	for row := 1; row <= l.Rows; row++ {
		class := model.SeatClassEconomy
		switch {
		case row <= l.FirstRows:
			class = model.SeatClassFirst
		case row <= l.FirstRows+l.BusinessRows:
			class = model.SeatClassBusiness
		}
		for _, col := range strings.ToUpper(l.Columns) {
			number := fmt.Sprintf("%d%c", row, col)
			out = append(out, model.Seat{
				FlightID:   fl.FlightID,
				SeatID:     number,
				SeatNumber: number,
				Class:      class,
				Status:     model.SeatAvailable,
			})
		}
	}
	return out
}

// flight builds the flight row.  Aggregates are derived from the seats:
// every seat counts towards total_seats, every non-reserved one towards
// available_seats.
func (fl FlightFixture) flight(seats []model.Seat) model.Flight {
	f := model.Flight{
		FlightID:         fl.FlightID,
		FlightNumber:     fl.FlightNumber,
		DepartureAirport: strings.ToUpper(fl.DepartureAirport),
		ArrivalAirport:   strings.ToUpper(fl.ArrivalAirport),
		DepartureTime:    fl.DepartureTime.UTC(),
		ArrivalTime:      fl.ArrivalTime.UTC(),
		TotalSeats:       len(seats),
		Status:           model.FlightStatus(defaultUpper(fl.Status, string(model.FlightScheduled))),
	}
	for _, s := range seats {
		if s.Status != model.SeatReserved {
			f.AvailableSeats++
		}
	}
	return f
}

func (b BookingFixture) booking() model.Booking {
	return model.Booking{
		BookingID:      utils.NormalizeBookingID(b.BookingID),
		PassengerName:  b.PassengerName,
		PassportNumber: strings.TrimSpace(b.PassportNumber),
		Email:          b.Email,
		Phone:          b.Phone,
		FlightID:       b.FlightID,
		Status:         model.BookingStatus(defaultUpper(b.Status, string(model.BookingConfirmed))),
	}
}

func defaultUpper(v, def string) string {
	if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
		return v
	}
	return def
}
