package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
)

const fixtureYAML = `
flights:
  - flight_id: FL1
    flight_number: KL1001
    departure_airport: ams
    arrival_airport: jfk
    departure_time: 2026-05-04T12:00:00Z
    arrival_time: 2026-05-04T20:00:00Z
    layout:
      rows: 3
      columns: AB
      first_rows: 1
      business_rows: 1
  - flight_id: FL2
    flight_number: KL1002
    seats:
      - number: 1a
      - number: 1b
        status: reserved
        booking_id: def456
bookings:
  - booking_id: abc123
    passenger_name: Grace Hopper
    flight_id: FL1
  - booking_id: DEF456
    passenger_name: Ada Lovelace
    flight_id: FL2
`

func TestApplyToMemoryStore(t *testing.T) {
	f, err := Parse([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store := repository.NewMemoryStore()
	ctx := context.Background()
	res, err := Apply(ctx, MemorySink{Store: store}, f, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res != (Result{Flights: 2, Seats: 8, Bookings: 2}) {
		t.Fatalf("Result = %+v", res)
	}

	fl1, err := store.GetFlight(ctx, "FL1")
	if err != nil {
		t.Fatal(err)
	}
	if fl1.TotalSeats != 6 || fl1.AvailableSeats != 6 || fl1.DepartureAirport != "AMS" || fl1.Status != model.FlightScheduled {
		t.Fatalf("FL1 = %+v", fl1)
	}
	for id, want := range map[string]model.SeatClass{"1A": model.SeatClassFirst, "2B": model.SeatClassBusiness, "3A": model.SeatClassEconomy} {
		s, err := store.GetSeat(ctx, "FL1", id)
		if err != nil || s.Class != want || s.Status != model.SeatAvailable {
			t.Fatalf("seat %s = %+v, %v; want class %s", id, s, err, want)
		}
	}

	c, _ := store.GetCounters(ctx, "FL2")
	if c.TotalSeats != 2 || c.AvailableSeats != 1 {
		t.Fatalf("FL2 counters = %+v", c)
	}
	reserved, _ := store.GetSeat(ctx, "FL2", "1B")
	if reserved.BookingID == nil || *reserved.BookingID != "DEF456" {
		t.Fatalf("reserved seat = %+v", reserved)
	}
	if b, err := store.FindBooking(ctx, "ABC123"); err != nil || b.Status != model.BookingConfirmed {
		t.Fatalf("booking = %+v, %v", b, err)
	}

	// Re-applying keeps existing seats.
	res, err = Apply(ctx, MemorySink{Store: store}, f, nil)
	if err != nil || res.Seats != 0 || res.Skipped != 8 {
		t.Fatalf("second Apply = %+v, %v", res, err)
	}
}

func TestValidateRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no seats":         "flights:\n  - flight_id: F\n    flight_number: N\n",
		"locked seat":      "flights:\n  - flight_id: F\n    flight_number: N\n    seats:\n      - number: 1A\n        status: locked\n",
		"reserved no bkg":  "flights:\n  - flight_id: F\n    flight_number: N\n    seats:\n      - number: 1A\n        status: reserved\n",
		"bad class":        "flights:\n  - flight_id: F\n    flight_number: N\n    seats:\n      - number: 1A\n        class: premium\n",
		"duplicate number": "flights:\n  - flight_id: F\n    flight_number: N\n    seats:\n      - number: 1A\n      - number: 1a\n",
		"unknown flight":   "flights:\n  - flight_id: F\n    flight_number: N\n    seats:\n      - number: 1A\nbookings:\n  - booking_id: B\n    passenger_name: P\n    flight_id: G\n",
		"not yaml":         "flights: [",
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: Parse accepted an invalid fixture", name)
		}
	}
}

func TestDemoFixtureParses(t *testing.T) {
	path := filepath.Join("..", "..", "fixtures", "kiosk.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("demo fixture not present")
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	res, err := Apply(context.Background(), Discard{}, f, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Flights == 0 || res.Bookings == 0 || !strings.HasPrefix(f.Flights[0].FlightID, "FL") {
		t.Fatalf("demo fixture = %+v", res)
	}
}
