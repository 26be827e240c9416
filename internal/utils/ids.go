package utils // package utils provides identifier helpers shared by services and handlers

import (
	"strings" // trimming and case folding for booking references

	"github.com/google/uuid" // random identifiers for baggage records and tags
)

// NormalizeBookingID returns the canonical form of a booking reference:
// surrounding whitespace removed and upper-cased.  Every comparison of
// booking references inside the kiosk core uses this form.
func NormalizeBookingID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// SameBooking reports whether two booking references denote the same
// booking once normalized.  An empty reference never matches.
func SameBooking(a, b string) bool {
	na := NormalizeBookingID(a)
	return na != "" && na == NormalizeBookingID(b)
}

// NewBaggageID returns a fresh opaque identifier for a baggage record.
func NewBaggageID() string {
	return uuid.NewString()
}

// NewTagNumber builds a bag tag of the form <flightId>-<8 upper hex>.
// The suffix comes from a random UUID; the tag is generated once per
// baggage record and never regenerated.
func NewTagNumber(flightID string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return flightID + "-" + strings.ToUpper(id[:8])
}

// NewQRPayload builds the text encoded in a boarding pass QR code.  The
// trailing UUID makes every issued pass distinguishable.
func NewQRPayload(bookingID, flightNumber, seatNumber string) string {
	return strings.Join([]string{bookingID, flightNumber, seatNumber, uuid.NewString()}, "|")
}
