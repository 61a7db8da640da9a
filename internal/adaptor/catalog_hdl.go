package adaptor

import (
	"net/http"

	"sleeper-booking/internal/usecase"
	"sleeper-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	service usecase.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(service usecase.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log.With(zap.String("handler", "catalog")),
	}
}

// ListStations handles GET /stations
func (h *CatalogHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.ListStations(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "list stations")
		return
	}

	utils.ResponseSuccess(w, "success", stations)
}

// ListBuses handles GET /buses
func (h *CatalogHandler) ListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.service.ListBuses(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "list buses")
		return
	}

	utils.ResponseSuccess(w, "success", buses)
}

// ListSeats handles GET /bookings/seats/{bus_id}
func (h *CatalogHandler) ListSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.service.ListSeats(r.Context(), chi.URLParam(r, "bus_id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list seats")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}
