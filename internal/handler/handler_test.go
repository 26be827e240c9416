package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-kiosk/internal/broadcast"
	"github.com/iliyamo/airport-kiosk/internal/clock"
	"github.com/iliyamo/airport-kiosk/internal/flightlock"
	"github.com/iliyamo/airport-kiosk/internal/handler"
	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/iliyamo/airport-kiosk/internal/router"
	"github.com/iliyamo/airport-kiosk/internal/service"
)

var epoch = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type api struct {
	e     *echo.Echo
	store *repository.MemoryStore
	hub   *broadcast.Hub
	seats *service.SeatService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutFlight(model.Flight{
		FlightID: "FL1", FlightNumber: "KL1001",
		DepartureAirport: "AMS", ArrivalAirport: "JFK",
		DepartureTime: epoch.Add(4 * time.Hour), ArrivalTime: epoch.Add(12 * time.Hour),
		TotalSeats: 2, AvailableSeats: 2,
	})
	for _, id := range []string{"1A", "1B"} {
		if err := store.PutSeat(model.Seat{FlightID: "FL1", SeatID: id, SeatNumber: id, Class: model.SeatClassEconomy, Status: model.SeatAvailable}); err != nil {
			t.Fatal(err)
		}
	}
	store.PutBooking(model.Booking{BookingID: "ABC123", PassengerName: "Grace Hopper", PassportNumber: "X99", FlightID: "FL1"})

	hub := broadcast.NewHub(nil)
	clk := clock.Fake(epoch)
	locks := flightlock.NewLocal()
	seats := service.NewSeatService(service.SeatDeps{
		Seats: store, Counters: store, Flights: store, Bookings: store,
		Tx: store, Locks: locks, Publisher: hub, Clock: clk,
	})
	baggage := service.NewBaggageService(service.BaggageDeps{
		Baggage: store, Counters: store, Tx: store, Locks: locks, Publisher: hub, Clock: clk,
	})
	bookings := service.NewBookingService(store, store, store)

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Flights:  handler.NewFlightHandler(service.NewFlightService(store)),
		Bookings: handler.NewBookingHandler(bookings),
		Seats:    handler.NewSeatHandler(seats, bookings),
		Baggage:  handler.NewBaggageHandler(baggage, bookings),
		Events:   handler.NewEventsHandler(hub, 16, nil),
	}, router.Middleware{})
	return &api{e: e, store: store, hub: hub, seats: seats}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *api) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: body %q is not an envelope: %v", method, path, rec.Body.String(), err)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Fatalf("%s %s: timestamp %q: %v", method, path, env.Timestamp, err)
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

type outcome struct {
	Success bool        `json:"success"`
	Seat    *model.Seat `json:"seat"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("/healthz = %d %q", rec.Code, rec.Body.String())
	}
	code, env := a.do(t, http.MethodGet, "/api/health", "")
	data := decode[map[string]string](t, env.Data)
	if code != http.StatusOK || !env.Success || data["status"] != "UP" {
		t.Fatalf("/api/health = %d %+v", code, env)
	}
}

func TestFlights(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(t, http.MethodGet, "/api/flights", "")
	flights := decode[[]model.Flight](t, env.Data)
	if code != http.StatusOK || len(flights) != 1 || flights[0].FlightNumber != "KL1001" {
		t.Fatalf("list = %d %s", code, env.Data)
	}
	code, env = a.do(t, http.MethodGet, "/api/flights/NOPE", "")
	if code != http.StatusNotFound || env.Success || env.Error == nil || env.Error.Code != "FLIGHT_NOT_FOUND" {
		t.Fatalf("unknown flight = %d %+v", code, env)
	}
}

func TestBookingSearch(t *testing.T) {
	a := newAPI(t)
	for _, body := range []string{`{"bookingReference":"abc123"}`, `{"passportNumber":"x99"}`} {
		code, env := a.do(t, http.MethodPost, "/api/bookings/search", body)
		hit := decode[service.BookingWithFlight](t, env.Data)
		if code != http.StatusOK || hit.Booking.BookingID != "ABC123" || hit.Flight.FlightID != "FL1" {
			t.Fatalf("search %s = %d %s", body, code, env.Data)
		}
	}
	code, env := a.do(t, http.MethodPost, "/api/bookings/search", `{}`)
	if code != http.StatusBadRequest || env.Error.Code != "INVALID_INPUT" {
		t.Fatalf("empty search = %d %+v", code, env)
	}
	code, env = a.do(t, http.MethodGet, "/api/bookings/zzz", "")
	if code != http.StatusNotFound || env.Error.Code != "BOOKING_NOT_FOUND" {
		t.Fatalf("unknown booking = %d %+v", code, env)
	}
}

func TestSeatFlow(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(t, http.MethodPost, "/api/flights/FL1/seats/1A/lock", `{"sessionId":"s1"}`)
	if code != http.StatusOK || !decode[outcome](t, env.Data).Success {
		t.Fatalf("lock = %d %s", code, env.Data)
	}
	// A taken seat is a normal outcome, not an error.
	code, env = a.do(t, http.MethodPost, "/api/flights/FL1/seats/1A/lock", `{"sessionId":"s2"}`)
	if code != http.StatusOK || !env.Success || decode[outcome](t, env.Data).Success {
		t.Fatalf("second lock = %d %s", code, env.Data)
	}
	code, env = a.do(t, http.MethodPost, "/api/flights/FL1/seats/1A/confirm", `{"bookingId":"abc123","sessionId":"s2"}`)
	if code != http.StatusOK || decode[outcome](t, env.Data).Success {
		t.Fatalf("confirm by other session = %d %s", code, env.Data)
	}

	code, env = a.do(t, http.MethodPost, "/api/flights/FL1/seats/1A/confirm", `{"bookingId":" abc123","sessionId":"s1"}`)
	out := decode[outcome](t, env.Data)
	if code != http.StatusOK || !out.Success || out.Seat == nil {
		t.Fatalf("confirm = %d %s", code, env.Data)
	}
	if out.Seat.Status != model.SeatReserved || out.Seat.BookingID == nil || *out.Seat.BookingID != "ABC123" {
		t.Fatalf("confirmed seat = %+v", out.Seat)
	}

	_, env = a.do(t, http.MethodGet, "/api/flights/FL1/seats", "")
	m := decode[service.SeatMap](t, env.Data)
	if len(m.Seats) != 2 || m.AvailableCount != 1 {
		t.Fatalf("seat map = %s", env.Data)
	}
	_, env = a.do(t, http.MethodGet, "/api/flights/FL1/seats/assignments", "")
	asg := decode[struct {
		Assignments []model.SeatAssignment `json:"assignments"`
		Count       int                    `json:"count"`
	}](t, env.Data)
	if asg.Count != 1 || asg.Assignments[0].PassengerName != "Grace Hopper" {
		t.Fatalf("assignments = %s", env.Data)
	}

	a.do(t, http.MethodPost, "/api/flights/FL1/seats/1B/lock", `{"sessionId":"s3"}`)
	_, env = a.do(t, http.MethodDelete, "/api/flights/FL1/seats/1B/unlock?sessionId=s1", "")
	if decode[outcome](t, env.Data).Success {
		t.Fatal("unlock by a foreign session succeeded")
	}
	_, env = a.do(t, http.MethodDelete, "/api/flights/FL1/seats/1B/unlock?sessionId=s3", "")
	if !decode[outcome](t, env.Data).Success {
		t.Fatal("unlock by the holder failed")
	}
}

func TestSeatErrors(t *testing.T) {
	a := newAPI(t)
	for _, tc := range []struct {
		method, path, body string
		status             int
		code               string
	}{
		{http.MethodPost, "/api/flights/FL1/seats/9Z/lock", `{"sessionId":"s1"}`, http.StatusNotFound, "SEAT_NOT_FOUND"},
		{http.MethodPost, "/api/flights/FL1/seats/1A/lock", `{}`, http.StatusBadRequest, "INVALID_INPUT"},
		{http.MethodPost, "/api/flights/FL1/seats/1A/lock", `{"sessionId":`, http.StatusBadRequest, "INVALID_INPUT"},
		{http.MethodGet, "/api/flights/NOPE/seats", "", http.StatusNotFound, "FLIGHT_NOT_FOUND"},
	} {
		code, env := a.do(t, tc.method, tc.path, tc.body)
		if code != tc.status || env.Success || env.Error == nil || env.Error.Code != tc.code {
			t.Fatalf("%s %s %s = %d %+v, want %d %s", tc.method, tc.path, tc.body, code, env, tc.status, tc.code)
		}
	}
}

func TestBaggageAndBoardingPass(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(t, http.MethodPost, "/api/bookings/abc123/baggage", `{"weight":23.5,"count":2}`)
	res := decode[struct {
		Baggage   model.BaggageRecord `json:"baggage"`
		TagNumber string              `json:"tagNumber"`
	}](t, env.Data)
	if code != http.StatusOK || res.Baggage.BookingID != "ABC123" || !strings.HasPrefix(res.TagNumber, "FL1-") {
		t.Fatalf("check-in = %d %s", code, env.Data)
	}
	_, env = a.do(t, http.MethodGet, "/api/flights/FL1/baggage/count", "")
	if got := decode[map[string]int](t, env.Data)["count"]; got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	code, env = a.do(t, http.MethodGet, "/api/flights/FL1/baggage", "")
	list := decode[struct {
		Baggage []model.BaggageRecord `json:"baggage"`
		Count   int                   `json:"count"`
	}](t, env.Data)
	if code != http.StatusOK || list.Count != 1 || list.Baggage[0].TagNumber != res.TagNumber {
		t.Fatalf("baggage list = %d %s", code, env.Data)
	}
	if code, env = a.do(t, http.MethodGet, "/api/flights/NOPE/baggage", ""); code != http.StatusNotFound || env.Error.Code != "FLIGHT_NOT_FOUND" {
		t.Fatalf("baggage list of unknown flight = %d %+v", code, env)
	}
	code, env = a.do(t, http.MethodPost, "/api/bookings/abc123/baggage", `{"weight":1,"count":-1}`)
	if code != http.StatusBadRequest || env.Error.Code != "INVALID_INPUT" {
		t.Fatalf("negative count = %d %+v", code, env)
	}

	code, _ = a.do(t, http.MethodPost, "/api/bookings/ABC123/boarding-pass", "")
	if code != http.StatusNotFound {
		t.Fatalf("pass without a seat = %d, want 404", code)
	}
	a.do(t, http.MethodPost, "/api/flights/FL1/seats/1B/lock", `{"sessionId":"s1"}`)
	a.do(t, http.MethodPost, "/api/flights/FL1/seats/1B/confirm", `{"bookingId":"ABC123","sessionId":"s1"}`)
	code, env = a.do(t, http.MethodPost, "/api/bookings/abc123/boarding-pass", "")
	pass := decode[struct {
		BoardingPass model.BoardingPass `json:"boardingPass"`
		PDFURL       string             `json:"pdfUrl"`
	}](t, env.Data)
	if code != http.StatusOK || pass.BoardingPass.SeatNumber != "1B" || pass.PDFURL != "/api/bookings/ABC123/boarding-pass/pdf" {
		t.Fatalf("boarding pass = %d %s", code, env.Data)
	}
}

func TestEventStream(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/flights/FL1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	r := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		return strings.TrimRight(line, "\n")
	}
	if line := readLine(); !strings.HasPrefix(line, ": subscribed") {
		t.Fatalf("first line = %q", line)
	}
	readLine()

	if ok, err := a.seats.Lock(context.Background(), "FL1", "1A", "s1"); !ok || err != nil {
		t.Fatalf("Lock = %v, %v", ok, err)
	}
	if line := readLine(); line != "event: seats" {
		t.Fatalf("event line = %q", line)
	}
	want := `data: {"flightId":"FL1","seatId":"1A","status":"LOCKED","sessionId":"s1"}`
	if line := readLine(); line != want {
		t.Fatalf("data line = %q, want %q", line, want)
	}
}
