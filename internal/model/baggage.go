package model

import "time"

// BaggageRecord is the checked-baggage entry of one booking on one
// flight.  There is at most one record per (FlightID, BookingID); a
// repeated check-in overwrites Weight, Count and CheckInTime in place
// and keeps BaggageID and TagNumber.
//
// Fields:
//  BaggageID   – opaque generated identifier.
//  BookingID   – canonical booking reference.
//  FlightID    – flight the bags travel on.
//  Weight      – total weight in kilograms.
//  Count       – number of pieces.
//  TagNumber   – printed bag tag, generated once and never changed.
//  CheckInTime – time of the latest check-in.
type BaggageRecord struct {
	BaggageID   string    `json:"baggageId"`     // baggage_records.baggage_id
	BookingID   string    `json:"bookingId"`     // baggage_records.booking_id
	FlightID    string    `json:"flightId"`      // baggage_records.flight_id
	Weight      float64   `json:"baggageWeight"` // baggage_records.baggage_weight
	Count       int       `json:"baggageCount"`  // baggage_records.baggage_count
	TagNumber   string    `json:"tagNumber"`     // baggage_records.tag_number
	CheckInTime time.Time `json:"checkInTime"`   // baggage_records.check_in_time
}
