package adaptor

import (
	"context"
	"errors"
	"net/http"

	"sleeper-booking/internal/lock"
	"sleeper-booking/internal/route"
	"sleeper-booking/internal/usecase"
	"sleeper-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	User    *UserHandler
	Catalog *CatalogHandler
	Booking *BookingHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		User:    NewUserHandler(service.User, log),
		Catalog: NewCatalogHandler(service.Catalog, log),
		Booking: NewBookingHandler(service.Booking, service.Availability, log),
	}
}

// statusClientClosedRequest is the non-standard code access logs use for a
// client that went away before the response was ready.
const statusClientClosedRequest = 499

// handleServiceError maps service errors to HTTP responses
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, usecase.ErrValidation), errors.Is(err, route.ErrInvalidSegment):
		log.Warn(operation+" rejected - invalid input",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, errMsg, nil)

	case errors.Is(err, usecase.ErrNotFound),
		errors.Is(err, usecase.ErrUnknownSeat),
		errors.Is(err, route.ErrUnknownStation):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, errMsg)

	case errors.Is(err, usecase.ErrSeatUnavailable):
		log.Info(operation+" failed - seat unavailable",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, errMsg)

	case errors.Is(err, lock.ErrTimeout):
		log.Warn(operation+" failed - seat busy",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseServiceUnavailable(w, "Seat is busy, please retry")

	case errors.Is(err, context.Canceled):
		log.Warn(operation+" abandoned - request cancelled",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseJSON(w, statusClientClosedRequest, false, "Request cancelled", nil, nil)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
