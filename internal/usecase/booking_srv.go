package usecase

import (
	"context"
	"fmt"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/dto/request"
	"sleeper-booking/internal/dto/response"
	"sleeper-booking/internal/event"
	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/internal/scoring"
	"sleeper-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scorer estimates how likely a booking is to stay confirmed, in percent.
type Scorer interface {
	Score(f scoring.Features) (float64, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	ListUserBookings(ctx context.Context, email string) ([]response.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error)
}

type bookingService struct {
	repo      *repository.Repository
	route     *route.Route
	avail     *availabilityService
	locker    lock.Locker
	scorer    Scorer
	publisher event.Publisher
	lockWait  time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewBookingService(repo *repository.Repository, deps Deps, lockWait time.Duration, log *zap.Logger) BookingService {
	return newBookingService(repo, deps, lockWait, log)
}

func newBookingService(repo *repository.Repository, deps Deps, lockWait time.Duration, log *zap.Logger) *bookingService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = event.Nop{}
	}
	return &bookingService{
		repo:      repo,
		route:     deps.Route,
		avail:     newAvailabilityService(repo, deps.Route, log),
		locker:    deps.Locker,
		scorer:    deps.Scorer,
		publisher: publisher,
		lockWait:  lockWait,
		now:       time.Now,
		log:       log.With(zap.String("service", "booking")),
	}
}

// CreateBooking sells a seat for a segment on a date. Requests for the same
// seat and date are serialized and the availability check is repeated against
// committed data inside that critical section, so of two overlapping requests
// exactly one is confirmed.
func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	sourceID := uuid.MustParse(req.SourceStationID)
	destID := uuid.MustParse(req.DestStationID)
	seatID := uuid.MustParse(req.SeatID)
	travelDate, _ := time.Parse(time.DateOnly, req.TravelDate)

	seat, err := s.repo.Seat.FindByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if seat == nil {
		return nil, fmt.Errorf("seat %s: %w", req.SeatID, ErrUnknownSeat)
	}

	seg, err := s.route.Segment(sourceID, destID)
	if err != nil {
		return nil, err
	}
	distance, err := s.route.Distance(sourceID, destID)
	if err != nil {
		return nil, err
	}

	booking, err := s.commit(ctx, req, seat, seg, distance, travelDate)
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("seat_id", seat.ID.String()),
		zap.String("segment", seg.String()),
		zap.String("travel_date", req.TravelDate),
		zap.Float64("p_success", booking.PSuccess),
	)

	s.publish(ctx, s.publisher.BookingConfirmed, booking)

	resp := s.buildBookingResponse(booking, seat)
	return &resp, nil
}

// commit runs the critical section for one (seat, date). The locker keeps
// contending requests from doing the scoring work twice; the final check and
// the insert run in one database transaction under an advisory lock on the
// same key, which holds even when a Redis lease has already expired.
func (s *bookingService) commit(ctx context.Context, req *request.CreateBookingRequest, seat *entity.Seat, seg route.Segment, distance int, travelDate time.Time) (*entity.Booking, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	key := lock.Key(seat.ID, travelDate)
	unlock, err := s.locker.Lock(lockCtx, key)
	if err != nil {
		s.log.Warn("Could not lock seat", zap.String("seat_id", seat.ID.String()), zap.Error(err))
		return nil, err
	}
	defer unlock()

	free, err := s.avail.seatFree(ctx, seat.ID, travelDate, seg)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("seat %s on %s for %s: %w", seat.SeatNumber, req.TravelDate, seg, ErrSeatUnavailable)
	}

	now := s.now()
	features := scoring.ExtractFeatures(distance, req.MealChoice, travelDate, now)
	pSuccess, err := s.scorer.Score(features)
	if err != nil {
		return nil, fmt.Errorf("score booking: %w", err)
	}

	user, err := s.repo.User.FindOrCreate(ctx, &entity.User{
		Base:  entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Email: req.UserEmail,
	})
	if err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		Base:            entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:          user.ID,
		UserEmail:       user.Email,
		SourceStationID: uuid.MustParse(req.SourceStationID),
		DestStationID:   uuid.MustParse(req.DestStationID),
		SeatID:          seat.ID,
		TravelDate:      travelDate,
		BookingDate:     dateOf(now),
		MealChoice:      req.MealChoice,
		Status:          entity.BookingStatusConfirmed,
		PSuccess:        pSuccess,
	}

	created, err := s.repo.Booking.CreateIfFree(ctx, key, booking, func(existing *entity.Booking) bool {
		return s.avail.conflicts(existing, seg)
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("seat %s on %s for %s: %w", seat.SeatNumber, req.TravelDate, seg, ErrSeatUnavailable)
	}

	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	resp := s.buildBookingResponse(booking, s.lookupSeat(ctx, booking.SeatID, nil))
	return &resp, nil
}

// ListUserBookings returns the user's bookings, newest first. An unknown email
// has no bookings.
func (s *bookingService) ListUserBookings(ctx context.Context, email string) ([]response.BookingResponse, error) {
	bookings, err := s.repo.Booking.FindByUserEmail(ctx, request.NormalizeEmail(email))
	if err != nil {
		s.log.Error("Failed to list user bookings", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	seats := make(map[uuid.UUID]*entity.Seat)
	result := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, s.buildBookingResponse(b, s.lookupSeat(ctx, b.SeatID, seats)))
	}
	return result, nil
}

// CancelBooking frees the booking's seat segment. Cancelling an already
// cancelled booking returns it unchanged.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.IsActive() {
		now := s.now()
		changed, err := s.repo.Booking.UpdateStatus(ctx, booking.ID, entity.BookingStatusConfirmed, entity.BookingStatusCancelled, now)
		if err != nil {
			return nil, err
		}

		booking.Status = entity.BookingStatusCancelled
		if changed {
			booking.UpdatedAt = now
			s.log.Info("Booking cancelled", zap.String("booking_id", booking.ID.String()))
			s.publish(ctx, s.publisher.BookingCancelled, booking)
		} else if fresh, err := s.repo.Booking.FindByID(ctx, booking.ID); err == nil && fresh != nil {
			// lost a race with another cancel
			booking = fresh
		}
	}

	resp := s.buildBookingResponse(booking, s.lookupSeat(ctx, booking.SeatID, nil))
	return &resp, nil
}

func (s *bookingService) findBooking(ctx context.Context, bookingID string) (*entity.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking %q: %w", bookingID, ErrNotFound)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	return booking, nil
}

func (s *bookingService) lookupSeat(ctx context.Context, id uuid.UUID, cache map[uuid.UUID]*entity.Seat) *entity.Seat {
	if seat, ok := cache[id]; ok {
		return seat
	}
	seat, err := s.repo.Seat.FindByID(ctx, id)
	if err != nil {
		s.log.Warn("Seat lookup failed", zap.String("seat_id", id.String()), zap.Error(err))
		return nil
	}
	if cache != nil {
		cache[id] = seat
	}
	return seat
}

// publish runs after the booking change is committed. A broker failure is
// logged and never undoes the booking.
func (s *bookingService) publish(ctx context.Context, send func(context.Context, event.BookingEvent) error, b *entity.Booking) {
	e := event.BookingEvent{
		BookingID:       b.ID,
		UserEmail:       b.UserEmail,
		SeatID:          b.SeatID,
		SourceStationID: b.SourceStationID,
		DestStationID:   b.DestStationID,
		TravelDate:      b.TravelDate.Format(time.DateOnly),
		MealChoice:      b.MealChoice,
		Status:          string(b.Status),
		PSuccess:        b.PSuccess,
		OccurredAt:      s.now().UTC(),
	}

	if err := send(ctx, e); err != nil {
		s.log.Warn("Failed to publish booking event",
			zap.String("booking_id", b.ID.String()),
			zap.String("status", string(b.Status)),
			zap.Error(err),
		)
	}
}

func (s *bookingService) buildBookingResponse(b *entity.Booking, seat *entity.Seat) response.BookingResponse {
	resp := response.BookingToResponse(b)

	if st, ok := s.route.Station(b.SourceStationID); ok {
		sr := response.StationToResponse(st)
		resp.SourceStation = &sr
	}
	if st, ok := s.route.Station(b.DestStationID); ok {
		sr := response.StationToResponse(st)
		resp.DestStation = &sr
	}
	if seat != nil {
		sr := response.SeatToResponse(seat)
		resp.Seat = &sr
	}

	return resp
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
