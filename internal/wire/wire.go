package wire

import (
	"context"
	"net/http"
	"time"

	"sleeper-booking/internal/adaptor"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/usecase"
	"sleeper-booking/pkg/middleware"
	"sleeper-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring builds services, handlers and routes from the startup dependencies
func Wiring(repo *repository.Repository, deps usecase.Deps, db Pinger, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router: setupRouter(handler, db, logger),
	}
}

func setupRouter(handler *adaptor.Handler, db Pinger, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireUser(r, handler.User)
	wireCatalog(r, handler.Catalog)
	wireBooking(r, handler.Booking)

	r.Get("/health", health(db, logger))

	return r
}

func health(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			utils.ResponseServiceUnavailable(w, "Database unreachable")
			return
		}

		utils.ResponseSuccess(w, "OK", nil)
	}
}
