package usecase

import (
	"context"
	"fmt"

	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/dto/response"
	"sleeper-booking/internal/route"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListStations(ctx context.Context) ([]response.StationResponse, error)
	ListBuses(ctx context.Context) ([]response.BusResponse, error)
	ListSeats(ctx context.Context, busID string) ([]response.SeatResponse, error)
}

type catalogService struct {
	repo  *repository.Repository
	route *route.Route
	log   *zap.Logger
}

func NewCatalogService(repo *repository.Repository, rt *route.Route, log *zap.Logger) CatalogService {
	return &catalogService{
		repo:  repo,
		route: rt,
		log:   log.With(zap.String("service", "catalog")),
	}
}

// ListStations serves the route loaded at startup; stations never change
// while the process runs.
func (s *catalogService) ListStations(ctx context.Context) ([]response.StationResponse, error) {
	stations := s.route.Stations()
	result := make([]response.StationResponse, 0, len(stations))
	for _, st := range stations {
		result = append(result, response.StationToResponse(st))
	}
	return result, nil
}

func (s *catalogService) ListBuses(ctx context.Context) ([]response.BusResponse, error) {
	buses, err := s.repo.Bus.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]response.BusResponse, 0, len(buses))
	for _, b := range buses {
		result = append(result, response.BusToResponse(b))
	}
	return result, nil
}

func (s *catalogService) ListSeats(ctx context.Context, busID string) ([]response.SeatResponse, error) {
	id, err := uuid.Parse(busID)
	if err != nil {
		return nil, fmt.Errorf("%w: bus_id must be a valid UUID", ErrValidation)
	}

	bus, err := s.repo.Bus.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, fmt.Errorf("bus %s: %w", busID, ErrNotFound)
	}

	seats, err := s.repo.Seat.FindByBusID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]response.SeatResponse, 0, len(seats))
	for _, seat := range seats {
		result = append(result, response.SeatToResponse(seat))
	}
	return result, nil
}
