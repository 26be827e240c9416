package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/model"
	"github.com/iliyamo/airport-kiosk/internal/utils"
)

// MemoryStore keeps flights, seats, bookings and baggage records in
// process memory.  Every exported method is one critical section on the
// store mutex, which makes CompareAndSwapSeat and ApplyDelta atomic with
// respect to each other.  It implements SeatStore, CounterStore,
// BaggageStore, FlightStore, BookingStore and Transactor, and is the
// default backend for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	flights  map[string]*model.Flight
	seats    map[string]map[string]model.Seat
	bookings map[string]model.Booking
	baggage  map[string]baggageEntry
	seq      uint64
}

type baggageEntry struct {
	rec model.BaggageRecord
	seq uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flights:  make(map[string]*model.Flight),
		seats:    make(map[string]map[string]model.Seat),
		bookings: make(map[string]model.Booking),
		baggage:  make(map[string]baggageEntry),
	}
}

// ---- setup ----

// PutFlight inserts or replaces a flight row including its counters.
func (s *MemoryStore) PutFlight(f model.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	s.flights[f.FlightID] = &f
}

// PutSeat inserts or replaces a seat exactly as given, version included.
// It is meant for flight setup and fixtures, not for reservation flow.
func (s *MemoryStore) PutSeat(seat model.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySeat := s.seats[seat.FlightID]
	if bySeat == nil {
		bySeat = make(map[string]model.Seat)
		s.seats[seat.FlightID] = bySeat
	}
	for id, other := range bySeat {
		if id != seat.SeatID && other.SeatNumber == seat.SeatNumber {
			return fmt.Errorf("seat number %s on flight %s: %w", seat.SeatNumber, seat.FlightID, ErrDuplicate)
		}
	}
	now := time.Now().UTC()
	if seat.CreatedAt.IsZero() {
		seat.CreatedAt = now
	}
	if seat.UpdatedAt.IsZero() {
		seat.UpdatedAt = now
	}
	bySeat[seat.SeatID] = cloneSeat(seat)
	return nil
}

// PutBooking inserts or replaces a booking.  The lookup key is the
// canonical booking reference.
func (s *MemoryStore) PutBooking(b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[utils.NormalizeBookingID(b.BookingID)] = b
}

// ---- SeatStore ----

func (s *MemoryStore) GetSeat(ctx context.Context, flightID, seatID string) (model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[flightID][seatID]
	if !ok {
		return model.Seat{}, fmt.Errorf("seat %s on flight %s: %w", seatID, flightID, ErrSeatNotFound)
	}
	return cloneSeat(seat), nil
}

func (s *MemoryStore) ListSeatsByFlight(ctx context.Context, flightID string) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Seat, 0, len(s.seats[flightID]))
	for _, seat := range s.seats[flightID] {
		out = append(out, cloneSeat(seat))
	}
	sortSeats(out)
	return out, nil
}

func (s *MemoryStore) ListExpiredLocks(ctx context.Context, flightID string, now time.Time) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Seat
	for _, seat := range s.seats[flightID] {
		if seat.LockExpired(now) {
			out = append(out, cloneSeat(seat))
		}
	}
	sortSeats(out)
	return out, nil
}

func (s *MemoryStore) CompareAndSwapSeat(ctx context.Context, seat model.Seat, expectedVersion int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.seats[seat.FlightID][seat.SeatID]
	if !ok {
		return false, fmt.Errorf("seat %s on flight %s: %w", seat.SeatID, seat.FlightID, ErrSeatNotFound)
	}
	if current.Version != expectedVersion {
		return false, nil
	}
	next := current
	next.Status = seat.Status
	next.BookingID = seat.BookingID
	next.LockedBy = seat.LockedBy
	next.LockExpiry = seat.LockExpiry
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	s.seats[seat.FlightID][seat.SeatID] = cloneSeat(next)
	s.journal(ctx, func() { s.seats[current.FlightID][current.SeatID] = current })
	return true, nil
}

// ---- CounterStore ----

func (s *MemoryStore) ApplyDelta(ctx context.Context, flightID string, field model.CounterField, delta int) (model.FlightCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[flightID]
	if !ok {
		return model.FlightCounters{}, fmt.Errorf("flight %s: %w", flightID, ErrFlightNotFound)
	}
	switch field {
	case model.CounterAvailableSeats:
		next := f.AvailableSeats + delta
		if next < 0 || next > f.TotalSeats {
			return model.FlightCounters{}, fmt.Errorf("available_seats %d%+d on flight %s: %w", f.AvailableSeats, delta, flightID, ErrCounterOutOfRange)
		}
		f.AvailableSeats = next
		s.journal(ctx, func() { f.AvailableSeats -= delta })
	case model.CounterBaggageCount:
		next := f.BaggageCount + delta
		if next < 0 {
			return model.FlightCounters{}, fmt.Errorf("baggage_count %d%+d on flight %s: %w", f.BaggageCount, delta, flightID, ErrCounterOutOfRange)
		}
		f.BaggageCount = next
		s.journal(ctx, func() { f.BaggageCount -= delta })
	default:
		return model.FlightCounters{}, fmt.Errorf("unknown counter field %q", field)
	}
	f.UpdatedAt = time.Now().UTC()
	return f.Counters(), nil
}

func (s *MemoryStore) GetCounters(ctx context.Context, flightID string) (model.FlightCounters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[flightID]
	if !ok {
		return model.FlightCounters{}, fmt.Errorf("flight %s: %w", flightID, ErrFlightNotFound)
	}
	return f.Counters(), nil
}

// ---- FlightStore ----

func (s *MemoryStore) GetFlight(ctx context.Context, flightID string) (model.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[flightID]
	if !ok {
		return model.Flight{}, fmt.Errorf("flight %s: %w", flightID, ErrFlightNotFound)
	}
	return *f, nil
}

func (s *MemoryStore) ListFlights(ctx context.Context) ([]model.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].DepartureTime.Before(out[j].DepartureTime)
		}
		return out[i].FlightID < out[j].FlightID
	})
	return out, nil
}

// ---- BookingStore ----

func (s *MemoryStore) FindBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[utils.NormalizeBookingID(bookingID)]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	return b, nil
}

func (s *MemoryStore) FindBookingByPassport(ctx context.Context, passportNumber string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := strings.TrimSpace(passportNumber)
	if want != "" {
		for _, b := range s.bookings {
			if strings.EqualFold(b.PassportNumber, want) {
				return b, nil
			}
		}
	}
	return model.Booking{}, fmt.Errorf("booking for passport %s: %w", passportNumber, ErrBookingNotFound)
}

// ---- BaggageStore ----

func (s *MemoryStore) ListBaggageByBooking(ctx context.Context, flightID, bookingID string) ([]model.BaggageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []baggageEntry
	for _, e := range s.baggage {
		if e.rec.FlightID == flightID && utils.SameBooking(e.rec.BookingID, bookingID) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].rec.CheckInTime.Equal(entries[j].rec.CheckInTime) {
			return entries[i].rec.CheckInTime.Before(entries[j].rec.CheckInTime)
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]model.BaggageRecord, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out, nil
}

func (s *MemoryStore) ListBaggageByFlight(ctx context.Context, flightID string) ([]model.BaggageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BaggageRecord
	for _, e := range s.baggage {
		if e.rec.FlightID == flightID {
			out = append(out, e.rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TagNumber < out[j].TagNumber })
	return out, nil
}

func (s *MemoryStore) InsertBaggage(ctx context.Context, rec model.BaggageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.baggage[rec.BaggageID]; exists {
		return fmt.Errorf("baggage %s: %w", rec.BaggageID, ErrDuplicate)
	}
	for _, e := range s.baggage {
		if e.rec.TagNumber == rec.TagNumber {
			return fmt.Errorf("tag number %s: %w", rec.TagNumber, ErrDuplicate)
		}
	}
	s.seq++
	s.baggage[rec.BaggageID] = baggageEntry{rec: rec, seq: s.seq}
	s.journal(ctx, func() { delete(s.baggage, rec.BaggageID) })
	return nil
}

// UpdateBaggage overwrites weight, count and check-in time.  Booking,
// flight and tag number of the stored record are never changed.
func (s *MemoryStore) UpdateBaggage(ctx context.Context, rec model.BaggageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.baggage[rec.BaggageID]
	if !ok {
		return fmt.Errorf("baggage %s: %w", rec.BaggageID, ErrBaggageNotFound)
	}
	next := prev
	next.rec.Weight = rec.Weight
	next.rec.Count = rec.Count
	next.rec.CheckInTime = rec.CheckInTime
	s.baggage[rec.BaggageID] = next
	s.journal(ctx, func() { s.baggage[rec.BaggageID] = prev })
	return nil
}

func (s *MemoryStore) DeleteBaggage(ctx context.Context, baggageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.baggage[baggageID]
	if !ok {
		return fmt.Errorf("baggage %s: %w", baggageID, ErrBaggageNotFound)
	}
	delete(s.baggage, baggageID)
	s.journal(ctx, func() { s.baggage[baggageID] = prev })
	return nil
}

// PutBaggage inserts a record without any uniqueness checks.  Fixtures
// and tests use it to reproduce historical duplicates.
func (s *MemoryStore) PutBaggage(rec model.BaggageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.baggage[rec.BaggageID] = baggageEntry{rec: rec, seq: s.seq}
}

// ---- Transactor ----

type memTxKey struct{}

// memJournal records the inverse of every write made inside one InTx
// unit.  Undo closures run with the store mutex held.
type memJournal struct {
	owner *MemoryStore
	undo  []func()
}

// InTx runs fn as one unit.  Writes performed through the store with the
// derived context are journaled; when fn fails they are undone in
// reverse order.  Counter undos apply the inverse delta rather than
// restoring a snapshot, so concurrent deltas from other units survive.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if j, ok := ctx.Value(memTxKey{}).(*memJournal); ok && j.owner == s {
		return fn(ctx)
	}
	j := &memJournal{owner: s}
	if err := fn(context.WithValue(ctx, memTxKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// journal appends an undo step when ctx belongs to an open unit.  The
// caller holds s.mu.
func (s *MemoryStore) journal(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(memTxKey{}).(*memJournal); ok && j.owner == s {
		j.undo = append(j.undo, undo)
	}
}

func cloneSeat(seat model.Seat) model.Seat {
	if seat.BookingID != nil {
		v := *seat.BookingID
		seat.BookingID = &v
	}
	if seat.LockedBy != nil {
		v := *seat.LockedBy
		seat.LockedBy = &v
	}
	if seat.LockExpiry != nil {
		v := *seat.LockExpiry
		seat.LockExpiry = &v
	}
	return seat
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].SeatNumber != seats[j].SeatNumber {
			return seats[i].SeatNumber < seats[j].SeatNumber
		}
		return seats[i].SeatID < seats[j].SeatID
	})
}
