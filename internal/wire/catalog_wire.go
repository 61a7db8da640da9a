package wire

import (
	"sleeper-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireCatalog(r chi.Router, catalogHandler *adaptor.CatalogHandler) {
	// GET /stations - route stops in travel order
	r.Get("/stations", catalogHandler.ListStations)

	// GET /buses - fleet on the route
	r.Get("/buses", catalogHandler.ListBuses)

	// GET /bookings/seats/{bus_id} - seat map of one bus
	r.Get("/bookings/seats/{bus_id}", catalogHandler.ListSeats)
}
