package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/dto/request"
	"sleeper-booking/internal/dto/response"
	"sleeper-booking/internal/route"
	"sleeper-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService answers read-only questions about which seats are free
// for a segment on a date. Nothing here takes a lock.
type AvailabilityService interface {
	IsAvailable(ctx context.Context, seatID uuid.UUID, travelDate time.Time, sourceID, destID uuid.UUID) (bool, error)
	UnavailableSeats(ctx context.Context, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
}

type availabilityService struct {
	repo  *repository.Repository
	route *route.Route
	log   *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, rt *route.Route, log *zap.Logger) AvailabilityService {
	return newAvailabilityService(repo, rt, log)
}

func newAvailabilityService(repo *repository.Repository, rt *route.Route, log *zap.Logger) *availabilityService {
	return &availabilityService{
		repo:  repo,
		route: rt,
		log:   log.With(zap.String("service", "availability")),
	}
}

// IsAvailable reports whether the seat can be sold for the segment. A segment
// that is not a forward trip between known stations is never available.
func (s *availabilityService) IsAvailable(ctx context.Context, seatID uuid.UUID, travelDate time.Time, sourceID, destID uuid.UUID) (bool, error) {
	seg, err := s.route.Segment(sourceID, destID)
	if err != nil {
		return false, nil
	}
	return s.seatFree(ctx, seatID, travelDate, seg)
}

// seatFree checks committed bookings for the seat and date against seg.
func (s *availabilityService) seatFree(ctx context.Context, seatID uuid.UUID, travelDate time.Time, seg route.Segment) (bool, error) {
	bookings, err := s.repo.Booking.FindActiveBySeatAndDate(ctx, seatID, travelDate)
	if err != nil {
		return false, fmt.Errorf("load bookings for seat %s: %w", seatID, err)
	}

	for _, b := range bookings {
		if s.conflicts(b, seg) {
			return false, nil
		}
	}
	return true, nil
}

// conflicts treats a stored booking whose stations no longer resolve as
// occupying the seat, so a damaged row never causes a double sale.
func (s *availabilityService) conflicts(b *entity.Booking, seg route.Segment) bool {
	if !b.IsActive() {
		return false
	}
	existing, err := s.route.Segment(b.SourceStationID, b.DestStationID)
	if err != nil {
		s.log.Warn("Booking with unresolvable segment blocks its seat",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err),
		)
		return true
	}
	return existing.Overlaps(seg)
}

func (s *availabilityService) UnavailableSeats(ctx context.Context, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	travelDate, _ := time.Parse(time.DateOnly, req.Date)
	sourceID := uuid.MustParse(req.SourceID)
	destID := uuid.MustParse(req.DestID)

	resp := &response.AvailabilityResponse{
		SourceID:           req.SourceID,
		DestID:             req.DestID,
		Date:               req.Date,
		BusID:              req.BusID,
		UnavailableSeatIDs: []string{},
	}

	seg, err := s.route.Segment(sourceID, destID)
	if err != nil {
		if errors.Is(err, route.ErrInvalidSegment) || errors.Is(err, route.ErrUnknownStation) {
			return resp, nil
		}
		return nil, err
	}

	var (
		bookings []*entity.Booking
		seats    map[uuid.UUID]*entity.Seat
	)
	if req.BusID != "" {
		busID := uuid.MustParse(req.BusID)
		if bookings, err = s.repo.Booking.FindActiveByBusAndDate(ctx, busID, travelDate); err != nil {
			return nil, err
		}
		busSeats, err := s.repo.Seat.FindByBusID(ctx, busID)
		if err != nil {
			return nil, err
		}
		seats = make(map[uuid.UUID]*entity.Seat, len(busSeats))
		for _, seat := range busSeats {
			seats[seat.ID] = seat
		}
	} else {
		if bookings, err = s.repo.Booking.FindActiveByDate(ctx, travelDate); err != nil {
			return nil, err
		}
		seats = make(map[uuid.UUID]*entity.Seat)
	}

	blocked := make(map[uuid.UUID]struct{})
	for _, b := range bookings {
		if s.conflicts(b, seg) {
			blocked[b.SeatID] = struct{}{}
		}
	}

	ids := make([]uuid.UUID, 0, len(blocked))
	for id := range blocked {
		ids = append(ids, id)
		if _, ok := seats[id]; ok {
			continue
		}
		seat, err := s.repo.Seat.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if seat != nil {
			seats[id] = seat
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := seatNumber(seats[ids[i]]), seatNumber(seats[ids[j]])
		if a != b {
			return seatOrderLess(a, b)
		}
		return ids[i].String() < ids[j].String()
	})

	for _, id := range ids {
		resp.UnavailableSeatIDs = append(resp.UnavailableSeatIDs, id.String())
	}
	return resp, nil
}

func seatNumber(seat *entity.Seat) string {
	if seat == nil {
		return ""
	}
	return seat.SeatNumber
}

// seatOrderLess orders berth labels by deck letter, then numerically, so L2
// sorts before L10.
func seatOrderLess(a, b string) bool {
	if a == "" || b == "" {
		return a != "" && b == ""
	}
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
