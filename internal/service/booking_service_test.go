package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
)

func TestBookingSearch(t *testing.T) {
	h := newHarness(t)
	h.store.PutBooking(model.Booking{BookingID: "ABC123", PassengerName: "Grace Hopper", PassportNumber: "X99", FlightID: "FL1"})
	svc := NewBookingService(h.store, h.store, h.store)
	ctx := context.Background()

	hit, err := svc.Search(ctx, "abc123", "")
	if err != nil || hit.Booking.BookingID != "ABC123" || hit.Flight.FlightNumber != "KL1001" {
		t.Fatalf("Search by reference = %+v, %v", hit, err)
	}
	if hit, err = svc.Search(ctx, "  ", "x99"); err != nil || hit.Booking.BookingID != "ABC123" {
		t.Fatalf("Search by passport = %+v, %v", hit, err)
	}
	if _, err := svc.Search(ctx, "", ""); !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("empty search err = %v", err)
	}
	if _, err := svc.Search(ctx, "ZZZ", ""); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("unknown booking err = %v", err)
	}
	if got := svc.CanonicalID(ctx, " abc123"); got != "ABC123" {
		t.Fatalf("CanonicalID = %q", got)
	}
}

func TestBoardingPass(t *testing.T) {
	h := newHarness(t)
	h.store.PutBooking(model.Booking{BookingID: "ABC123", PassengerName: "Grace Hopper", FlightID: "FL1"})
	svc := NewBookingService(h.store, h.store, h.store)
	ctx := context.Background()

	if _, err := svc.BoardingPass(ctx, "abc123"); !errors.Is(err, repository.ErrSeatNotFound) {
		t.Fatalf("pass without seat err = %v, want ErrSeatNotFound", err)
	}
	h.seats.Lock(ctx, "FL1", "2A", "s")
	h.seats.Confirm(ctx, "FL1", "2A", "abc123", "s")

	bp, err := svc.BoardingPass(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if bp.SeatNumber != "2A" || bp.Gate != "TBD" || bp.FlightNumber != "KL1001" {
		t.Fatalf("pass = %+v", bp)
	}
	if bp.DepartureTime != "2026-05-04T12:00:00" || bp.BoardingTime != "2026-05-04T11:30:00" {
		t.Fatalf("times = %s / %s", bp.DepartureTime, bp.BoardingTime)
	}
	parts := strings.Split(bp.QRCode, "|")
	if len(parts) != 4 || parts[0] != "ABC123" || parts[1] != "KL1001" || parts[2] != "2A" || len(parts[3]) != 36 {
		t.Fatalf("QRCode = %q", bp.QRCode)
	}
}
