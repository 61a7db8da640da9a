package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/event"
	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// store is a goroutine-safe in-memory stand-in for the Postgres repositories.
type store struct {
	mu       sync.Mutex
	users    map[string]*entity.User
	stations []*entity.Station
	buses    []*entity.Bus
	seats    map[uuid.UUID]*entity.Seat
	bookings []*entity.Booking

	// beforeInsert runs at the start of every CreateIfFree, outside the
	// store mutex.
	beforeInsert func()
}

func newStore() *store {
	return &store{
		users: make(map[string]*entity.User),
		seats: make(map[uuid.UUID]*entity.Seat),
	}
}

func (s *store) repository() *repository.Repository {
	return &repository.Repository{
		User:    userStore{s},
		Station: stationStore{s},
		Bus:     busStore{s},
		Seat:    seatStore{s},
		Booking: bookingStore{s},
	}
}

type userStore struct{ *store }

func (s userStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s userStore) FindOrCreate(_ context.Context, user *entity.User) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[user.Email]; ok {
		cp := *u
		return &cp, nil
	}
	cp := *user
	s.users[user.Email] = &cp
	out := cp
	return &out, nil
}

type stationStore struct{ *store }

func (s stationStore) FindAll(context.Context) ([]*entity.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Station(nil), s.stations...), nil
}

func (s stationStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.stations)), nil
}

func (s stationStore) CreateBatch(_ context.Context, stations []*entity.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = append(s.stations, stations...)
	return nil
}

type busStore struct{ *store }

func (s busStore) Create(_ context.Context, bus *entity.Bus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buses = append(s.buses, bus)
	return nil
}

func (s busStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.buses {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (s busStore) FindAll(context.Context) ([]*entity.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Bus(nil), s.buses...), nil
}

type seatStore struct{ *store }

func (s seatStore) CreateBatch(_ context.Context, seats []*entity.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		s.seats[seat.ID] = seat
	}
	return nil
}

func (s seatStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[id], nil
}

func (s seatStore) FindByBusID(_ context.Context, busID uuid.UUID) ([]*entity.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Seat
	for _, seat := range s.seats {
		if seat.BusID == busID {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return seatOrderLess(out[i].SeatNumber, out[j].SeatNumber) })
	return out, nil
}

type bookingStore struct{ *store }

// CreateIfFree holds the store mutex across the check and the insert, the
// way the advisory lock spans them in Postgres.
func (s bookingStore) CreateIfFree(_ context.Context, _ string, b *entity.Booking, blocks func(*entity.Booking) bool) (bool, error) {
	if s.beforeInsert != nil {
		s.beforeInsert()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.IsActive() && existing.SeatID == b.SeatID && existing.TravelDate.Equal(b.TravelDate) {
			cp := *existing
			if blocks(&cp) {
				return false, nil
			}
		}
	}
	cp := *b
	s.bookings = append(s.bookings, &cp)
	return true, nil
}

func (s bookingStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s bookingStore) FindByUserEmail(_ context.Context, email string) ([]*entity.Booking, error) {
	out := s.filter(func(b *entity.Booking) bool { return b.UserEmail == email })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s bookingStore) FindActiveBySeatAndDate(_ context.Context, seatID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	return s.filter(func(b *entity.Booking) bool {
		return b.IsActive() && b.SeatID == seatID && b.TravelDate.Equal(date)
	}), nil
}

func (s bookingStore) FindActiveByBusAndDate(_ context.Context, busID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	return s.filter(func(b *entity.Booking) bool {
		seat := s.seats[b.SeatID]
		return b.IsActive() && seat != nil && seat.BusID == busID && b.TravelDate.Equal(date)
	}), nil
}

func (s bookingStore) FindActiveByDate(_ context.Context, date time.Time) ([]*entity.Booking, error) {
	return s.filter(func(b *entity.Booking) bool {
		return b.IsActive() && b.TravelDate.Equal(date)
	}), nil
}

func (s bookingStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id && b.Status == from {
			b.Status = to
			b.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (s bookingStore) filter(keep func(*entity.Booking) bool) []*entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range s.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []event.BookingEvent
	cancelled []event.BookingEvent
	err       error
}

func (p *recordingPublisher) BookingConfirmed(_ context.Context, e event.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, e)
	return p.err
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, e event.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, e)
	return p.err
}

type fixedScorer struct{ p float64 }

func (f fixedScorer) Score(scoring.Features) (float64, error) { return f.p, nil }

type failingScorer struct{}

func (failingScorer) Score(scoring.Features) (float64, error) {
	return 0, errors.New("model unavailable")
}

var stationNames = []string{"Ahmedabad", "Vadodara", "Surat", "Vapi", "Valsad", "Mumbai"}

type fixture struct {
	store     *store
	repo      *repository.Repository
	route     *route.Route
	booking   *bookingService
	avail     *availabilityService
	publisher *recordingPublisher
	locker    *lock.Memory
	bus       *entity.Bus
	station   map[string]uuid.UUID
	seat      map[string]*entity.Seat
}

var testToday = time.Date(2024, 4, 24, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, scorer Scorer) *fixture {
	t.Helper()

	st := newStore()
	f := &fixture{
		store:     st,
		repo:      st.repository(),
		publisher: &recordingPublisher{},
		locker:    lock.NewMemory(),
		station:   make(map[string]uuid.UUID),
		seat:      make(map[string]*entity.Seat),
	}

	for i, name := range stationNames {
		s := &entity.Station{BaseSimple: entity.BaseSimple{ID: uuid.New()}, Name: name, Ordinal: i + 1}
		st.stations = append(st.stations, s)
		f.station[name] = s.ID
	}

	f.bus = &entity.Bus{BaseSimple: entity.BaseSimple{ID: uuid.New()}, Name: "GJ-01-XX-1234", TotalSeats: 20}
	st.buses = append(st.buses, f.bus)
	for _, deck := range []string{"L", "U"} {
		for i := 1; i <= 10; i++ {
			seat := &entity.Seat{
				BaseSimple: entity.BaseSimple{ID: uuid.New()},
				BusID:      f.bus.ID,
				SeatNumber: deck + strconv.Itoa(i),
				IsSleeper:  true,
			}
			st.seats[seat.ID] = seat
			f.seat[seat.SeatNumber] = seat
		}
	}

	rt, err := route.New(st.stations)
	if err != nil {
		t.Fatalf("route.New: %v", err)
	}
	f.route = rt

	deps := Deps{Route: rt, Locker: f.locker, Scorer: scorer, Publisher: f.publisher}
	f.booking = newBookingService(f.repo, deps, time.Second, zap.NewNop())
	f.booking.now = func() time.Time { return testToday }
	f.avail = f.booking.avail

	return f
}
