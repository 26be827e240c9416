package model

// SeatEvent is broadcast on flight.<flightId>.seats whenever a seat
// changes state.  SessionID is only set for LOCKED events and is
// serialized as null otherwise.
type SeatEvent struct {
	FlightID  string     `json:"flightId"`
	SeatID    string     `json:"seatId"`
	Status    SeatStatus `json:"status"`
	SessionID *string    `json:"sessionId"`
}

// BaggageEvent is broadcast on flight.<flightId>.baggage with the new
// flight-level baggage total.
type BaggageEvent struct {
	FlightID string `json:"flightId"`
	Count    int    `json:"count"`
}

// SeatEventFor builds the broadcast payload describing seat's current
// committed state.
func SeatEventFor(seat Seat) SeatEvent {
	ev := SeatEvent{FlightID: seat.FlightID, SeatID: seat.SeatID, Status: seat.Status}
	if seat.Status == SeatLocked && seat.LockedBy != nil {
		holder := *seat.LockedBy
		ev.SessionID = &holder
	}
	return ev
}
