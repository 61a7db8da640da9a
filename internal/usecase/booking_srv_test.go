package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/dto/request"
	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/internal/scoring"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (f *fixture) request(email, src, dst, seat, date string) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		UserEmail:       email,
		SourceStationID: f.station[src].String(),
		DestStationID:   f.station[dst].String(),
		SeatID:          f.seat[seat].ID.String(),
		TravelDate:      date,
		MealChoice:      "Veg",
	}
}

func (f *fixture) unavailable(t *testing.T, src, dst, date string) map[string]bool {
	t.Helper()

	resp, err := f.avail.UnavailableSeats(context.Background(), &request.AvailabilityRequest{
		SourceID: f.station[src].String(),
		DestID:   f.station[dst].String(),
		Date:     date,
		BusID:    f.bus.ID.String(),
	})
	if err != nil {
		t.Fatalf("UnavailableSeats: %v", err)
	}

	out := make(map[string]bool)
	for _, id := range resp.UnavailableSeatIDs {
		out[id] = true
	}
	return out
}

func TestBookingLifecycle(t *testing.T) {
	scorer := scoring.New(scoring.Config{Samples: 400, Trees: 10, MaxDepth: 4, Seed: 42}, zap.NewNop())
	f := newFixture(t, scorer)
	ctx := context.Background()
	s1 := f.seat["L1"].ID.String()

	booked, err := f.booking.CreateBooking(ctx, f.request("a@x.com", "Ahmedabad", "Surat", "L1", "2024-05-01"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booked.Status != entity.BookingStatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", booked.Status)
	}
	if booked.PSuccess < 0 || booked.PSuccess > 100 {
		t.Fatalf("p_success = %v, want in [0,100]", booked.PSuccess)
	}
	if booked.SourceStation == nil || booked.SourceStation.Name != "Ahmedabad" || booked.Seat == nil || booked.Seat.SeatNumber != "L1" {
		t.Fatalf("response summaries missing: %+v", booked)
	}

	if !f.unavailable(t, "Vadodara", "Mumbai", "2024-05-01")[s1] {
		t.Fatal("overlapping segment should see L1 as unavailable")
	}
	if f.unavailable(t, "Surat", "Mumbai", "2024-05-01")[s1] {
		t.Fatal("touching segment should see L1 as available")
	}
	if f.unavailable(t, "Vadodara", "Mumbai", "2024-05-02")[s1] {
		t.Fatal("another date should see L1 as available")
	}

	cancelled, err := f.booking.CancelBooking(ctx, booked.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.Status != entity.BookingStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.PSuccess != booked.PSuccess {
		t.Fatalf("p_success changed on cancel: %v -> %v", booked.PSuccess, cancelled.PSuccess)
	}

	if f.unavailable(t, "Vadodara", "Mumbai", "2024-05-01")[s1] {
		t.Fatal("cancelled booking still blocks L1")
	}

	if len(f.publisher.confirmed) != 1 || len(f.publisher.cancelled) != 1 {
		t.Fatalf("events: %d confirmed, %d cancelled", len(f.publisher.confirmed), len(f.publisher.cancelled))
	}
	if f.publisher.confirmed[0].BookingID.String() != booked.ID {
		t.Errorf("confirmed event for wrong booking")
	}
}

func TestCreateBooking_TouchingSegmentsBothConfirm(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 70})
	ctx := context.Background()

	if _, err := f.booking.CreateBooking(ctx, f.request("a@x.com", "Ahmedabad", "Surat", "U3", "2024-05-01")); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := f.booking.CreateBooking(ctx, f.request("b@x.com", "Surat", "Mumbai", "U3", "2024-05-01")); err != nil {
		t.Fatalf("touching booking rejected: %v", err)
	}

	_, err := f.booking.CreateBooking(ctx, f.request("c@x.com", "Vadodara", "Vapi", "U3", "2024-05-01"))
	if !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("got %v, want ErrSeatUnavailable", err)
	}
}

func TestCreateBooking_RebookAfterCancel(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 55.5})
	ctx := context.Background()
	req := f.request("a@x.com", "Vadodara", "Valsad", "L4", "2024-06-10")

	first, err := f.booking.CreateBooking(ctx, req)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.booking.CreateBooking(ctx, req); !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("duplicate booking: got %v, want ErrSeatUnavailable", err)
	}

	if _, err := f.booking.CancelBooking(ctx, first.ID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	second, err := f.booking.CreateBooking(ctx, req)
	if err != nil {
		t.Fatalf("rebooking after cancel: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("rebooking reused the cancelled booking")
	}
}

func TestCreateBooking_ConcurrentOverlapConfirmsExactlyOne(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 80})

	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05"} {
		reqs := []*request.CreateBookingRequest{
			f.request("a@x.com", "Ahmedabad", "Vapi", "L7", date),
			f.request("b@x.com", "Vadodara", "Mumbai", "L7", date),
		}

		errs := make([]error, len(reqs))
		var g errgroup.Group
		for i, req := range reqs {
			g.Go(func() error {
				_, errs[i] = f.booking.CreateBooking(context.Background(), req)
				return nil
			})
		}
		g.Wait()

		succeeded, rejected := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSeatUnavailable):
				rejected++
			default:
				t.Fatalf("%s: unexpected error %v", date, err)
			}
		}
		if succeeded != 1 || rejected != 1 {
			t.Fatalf("%s: %d succeeded, %d rejected", date, succeeded, rejected)
		}

		travel, _ := time.Parse(time.DateOnly, date)
		active, _ := f.repo.Booking.FindActiveBySeatAndDate(context.Background(), f.seat["L7"].ID, travel)
		if len(active) != 1 {
			t.Fatalf("%s: %d confirmed bookings stored", date, len(active))
		}
	}
}

func TestCreateBooking_ExpiredLeaseStillConfirmsExactlyOne(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 80})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f.booking.locker = lock.NewRedis(client, 100*time.Millisecond, 5*time.Millisecond, zap.NewNop())

	// every writer outlives its lease, so the next caller gets the Redis
	// lock while the previous one is still inserting
	f.store.beforeInsert = func() {
		mr.FastForward(time.Second)
		time.Sleep(100 * time.Millisecond)
	}

	reqs := []*request.CreateBookingRequest{
		f.request("a@x.com", "Ahmedabad", "Vapi", "L7", "2024-05-01"),
		f.request("b@x.com", "Vadodara", "Mumbai", "L7", "2024-05-01"),
		f.request("c@x.com", "Surat", "Valsad", "L7", "2024-05-01"),
	}

	errs := make([]error, len(reqs))
	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			_, errs[i] = f.booking.CreateBooking(context.Background(), req)
			return nil
		})
	}
	g.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrSeatUnavailable):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d requests confirmed, want 1", succeeded)
	}

	travel := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	active, _ := f.repo.Booking.FindActiveBySeatAndDate(context.Background(), f.seat["L7"].ID, travel)
	if len(active) != 1 {
		t.Fatalf("%d confirmed bookings stored for overlapping segments", len(active))
	}
}

func TestCreateBooking_ConfirmedSegmentsNeverOverlap(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 60})

	var g errgroup.Group
	for i := 0; i < len(stationNames); i++ {
		for j := i + 1; j < len(stationNames); j++ {
			req := f.request("p@x.com", stationNames[i], stationNames[j], "U9", "2024-07-07")
			g.Go(func() error {
				_, err := f.booking.CreateBooking(context.Background(), req)
				if err != nil && !errors.Is(err, ErrSeatUnavailable) {
					return err
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	travel := time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC)
	active, _ := f.repo.Booking.FindActiveBySeatAndDate(context.Background(), f.seat["U9"].ID, travel)
	if len(active) == 0 {
		t.Fatal("no booking confirmed")
	}

	var segs []route.Segment
	for _, b := range active {
		seg, err := f.route.Segment(b.SourceStationID, b.DestStationID)
		if err != nil {
			t.Fatalf("stored booking has invalid segment: %v", err)
		}
		segs = append(segs, seg)
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if segs[i].Overlaps(segs[j]) {
				t.Fatalf("confirmed segments %s and %s overlap", segs[i], segs[j])
			}
		}
	}
}

func TestCreateBooking_Rejections(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 50})
	ctx := context.Background()

	reversed := f.request("a@x.com", "Surat", "Ahmedabad", "L1", "2024-05-01")
	same := f.request("a@x.com", "Surat", "Surat", "L1", "2024-05-01")

	unknownStation := f.request("a@x.com", "Ahmedabad", "Surat", "L1", "2024-05-01")
	unknownStation.DestStationID = "0b9a5c1e-0000-4000-8000-000000000001"

	unknownSeat := f.request("a@x.com", "Ahmedabad", "Surat", "L1", "2024-05-01")
	unknownSeat.SeatID = "0b9a5c1e-0000-4000-8000-000000000002"

	badEmail := f.request("not-an-email", "Ahmedabad", "Surat", "L1", "2024-05-01")
	badDate := f.request("a@x.com", "Ahmedabad", "Surat", "L1", "01/05/2024")

	tests := []struct {
		name string
		req  *request.CreateBookingRequest
		want error
	}{
		{"reversed segment", reversed, route.ErrInvalidSegment},
		{"same station", same, route.ErrInvalidSegment},
		{"unknown station", unknownStation, route.ErrUnknownStation},
		{"unknown seat", unknownSeat, ErrUnknownSeat},
		{"bad email", badEmail, ErrValidation},
		{"bad date", badDate, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.booking.CreateBooking(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if n := len(f.store.bookings); n != 0 {
		t.Fatalf("%d bookings stored by rejected requests", n)
	}
}

func TestCreateBooking_LockTimeout(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 50})
	f.booking.lockWait = 20 * time.Millisecond

	travel := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	unlock, err := f.locker.Lock(context.Background(), lock.Key(f.seat["L2"].ID, travel))
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	_, err = f.booking.CreateBooking(context.Background(), f.request("a@x.com", "Ahmedabad", "Surat", "L2", "2024-05-01"))
	if !errors.Is(err, lock.ErrTimeout) {
		t.Fatalf("got %v, want lock.ErrTimeout", err)
	}
}

func TestCreateBooking_ScorerFailureStoresNothing(t *testing.T) {
	f := newFixture(t, failingScorer{})

	_, err := f.booking.CreateBooking(context.Background(), f.request("a@x.com", "Ahmedabad", "Surat", "L2", "2024-05-01"))
	if err == nil {
		t.Fatal("expected scorer error")
	}
	if len(f.store.bookings) != 0 || len(f.publisher.confirmed) != 0 {
		t.Fatal("booking stored or announced despite scoring failure")
	}
}

func TestCreateBooking_PublishFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 90})
	f.publisher.err = errors.New("broker down")

	resp, err := f.booking.CreateBooking(context.Background(), f.request("a@x.com", "Ahmedabad", "Surat", "L2", "2024-05-01"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if resp.PSuccess != 90 || len(f.store.bookings) != 1 {
		t.Fatalf("booking not stored: %+v", resp)
	}
}

func TestCreateBooking_RecordsBookingDetails(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 42.42})

	req := f.request("  A@X.com ", "Vadodara", "Vapi", "U1", "2024-05-01")
	req.MealChoice = "None"

	resp, err := f.booking.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if resp.UserEmail != "a@x.com" {
		t.Errorf("email = %q, want normalized", resp.UserEmail)
	}
	if resp.BookingDate != "2024-04-24" || resp.TravelDate != "2024-05-01" {
		t.Errorf("dates = %s / %s", resp.BookingDate, resp.TravelDate)
	}
	if resp.MealChoice != "None" || resp.PSuccess != 42.42 {
		t.Errorf("meal/p_success = %q / %v", resp.MealChoice, resp.PSuccess)
	}
	if len(f.store.users) != 1 {
		t.Errorf("%d users created", len(f.store.users))
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 65})
	ctx := context.Background()

	booked, err := f.booking.CreateBooking(ctx, f.request("a@x.com", "Ahmedabad", "Mumbai", "L5", "2024-05-01"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	first, err := f.booking.CancelBooking(ctx, booked.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	second, err := f.booking.CancelBooking(ctx, booked.ID)
	if err != nil {
		t.Fatalf("second CancelBooking: %v", err)
	}
	if first.Status != entity.BookingStatusCancelled || second.Status != entity.BookingStatusCancelled {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	if len(f.publisher.cancelled) != 1 {
		t.Fatalf("%d cancel events, want 1", len(f.publisher.cancelled))
	}

	got, err := f.booking.GetBooking(ctx, booked.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Status != entity.BookingStatusCancelled {
		t.Fatalf("stored status = %s", got.Status)
	}
}

func TestCancelBooking_NotFound(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 65})

	for _, id := range []string{"0b9a5c1e-0000-4000-8000-000000000003", "42"} {
		if _, err := f.booking.CancelBooking(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("CancelBooking(%q) = %v, want ErrNotFound", id, err)
		}
		if _, err := f.booking.GetBooking(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetBooking(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func TestListUserBookings(t *testing.T) {
	f := newFixture(t, fixedScorer{p: 65})
	ctx := context.Background()

	var ids []string
	for i, seat := range []string{"L1", "L2", "L3"} {
		day := i
		f.booking.now = func() time.Time { return testToday.Add(time.Duration(day) * time.Hour) }
		resp, err := f.booking.CreateBooking(ctx, f.request("a@x.com", "Ahmedabad", "Surat", seat, "2024-05-01"))
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		ids = append(ids, resp.ID)
	}
	if _, err := f.booking.CreateBooking(ctx, f.request("b@x.com", "Ahmedabad", "Surat", "L4", "2024-05-01")); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	list, err := f.booking.ListUserBookings(ctx, "A@x.com")
	if err != nil {
		t.Fatalf("ListUserBookings: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d bookings, want 3", len(list))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if list[i].ID != want {
			t.Fatalf("position %d = %s, want %s (newest first)", i, list[i].ID, want)
		}
	}

	empty, err := f.booking.ListUserBookings(ctx, "nobody@x.com")
	if err != nil {
		t.Fatalf("ListUserBookings unknown: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("unknown email should give an empty list, got %v", empty)
	}
}
