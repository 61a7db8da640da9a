package usecase

import (
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/event"
	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the collaborators built at startup from the seeded catalog and
// the configured backends.
type Deps struct {
	Route     *route.Route
	Locker    lock.Locker
	Scorer    Scorer
	Publisher event.Publisher
}

type Service struct {
	User         UserService
	Catalog      CatalogService
	Availability AvailabilityService
	Booking      BookingService
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		User:         NewUserService(repo.User, log),
		Catalog:      NewCatalogService(repo, deps.Route, log),
		Availability: NewAvailabilityService(repo, deps.Route, log),
		Booking:      NewBookingService(repo, deps, config.Lock.WaitTimeout, log),
	}
}
