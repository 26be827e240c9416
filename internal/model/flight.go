package model

import "time"

// FlightStatus is the operational state of a flight.
type FlightStatus string

const (
	FlightScheduled FlightStatus = "SCHEDULED"
	FlightBoarding  FlightStatus = "BOARDING"
	FlightDeparted  FlightStatus = "DEPARTED"
	FlightCancelled FlightStatus = "CANCELLED"
)

// Flight represents a scheduled flight served by the kiosks.  The seat
// and baggage aggregates live on the same row so that they can be
// adjusted with single atomic updates.
//
// Fields:
//  FlightID         – primary key identifier.
//  FlightNumber     – marketing flight number, e.g. "KL1234".
//  DepartureAirport – IATA code of the origin.
//  ArrivalAirport   – IATA code of the destination.
//  DepartureTime    – scheduled departure.
//  ArrivalTime      – scheduled arrival.
//  TotalSeats       – number of seats on the aircraft; immutable.
//  AvailableSeats   – TotalSeats minus seats currently RESERVED.
//  BaggageCount     – sum of checked pieces across baggage records.
//  Status           – SCHEDULED, BOARDING, DEPARTED or CANCELLED.
type Flight struct {
	FlightID         string       `json:"flightId"`         // flights.flight_id
	FlightNumber     string       `json:"flightNumber"`     // flights.flight_number
	DepartureAirport string       `json:"departureAirport"` // flights.departure_airport
	ArrivalAirport   string       `json:"arrivalAirport"`   // flights.arrival_airport
	DepartureTime    time.Time    `json:"departureTime"`    // flights.departure_time
	ArrivalTime      time.Time    `json:"arrivalTime"`      // flights.arrival_time
	TotalSeats       int          `json:"totalSeats"`       // flights.total_seats
	AvailableSeats   int          `json:"availableSeats"`   // flights.available_seats
	BaggageCount     int          `json:"baggageCount"`     // flights.baggage_count
	Status           FlightStatus `json:"flightStatus"`     // flights.flight_status
	CreatedAt        time.Time    `json:"createdAt"`        // flights.created_at
	UpdatedAt        time.Time    `json:"updatedAt"`        // flights.updated_at
}

// Counters returns the derived aggregates of the flight.
func (f Flight) Counters() FlightCounters {
	return FlightCounters{
		FlightID:       f.FlightID,
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
		BaggageCount:   f.BaggageCount,
	}
}

// CounterField names one of the mutable flight aggregates.
type CounterField string

const (
	CounterAvailableSeats CounterField = "available_seats"
	CounterBaggageCount   CounterField = "baggage_count"
)

// FlightCounters holds the derived per-flight aggregates.  TotalSeats is
// fixed at setup; AvailableSeats starts at TotalSeats and BaggageCount
// starts at zero.
type FlightCounters struct {
	FlightID       string `json:"flightId"`
	TotalSeats     int    `json:"totalSeats"`
	AvailableSeats int    `json:"availableSeats"`
	BaggageCount   int    `json:"baggageCount"`
}
