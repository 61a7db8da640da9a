package wire

import (
	"sleeper-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// POST /bookings - create a booking for one seat and segment
	r.Post("/bookings", bookingHandler.CreateBooking)

	// GET /bookings/availability?source_id=&dest_id=&date=[&bus_id=]
	r.Get("/bookings/availability", bookingHandler.Availability)

	// GET /bookings/user/{email} - booking history, newest first
	r.Get("/bookings/user/{email}", bookingHandler.ListUserBookings)

	// POST /bookings/cancel/{booking_id} - cancel, idempotent
	r.Post("/bookings/cancel/{booking_id}", bookingHandler.CancelBooking)

	// GET /bookings/{id} - booking detail
	r.Get("/bookings/{id}", bookingHandler.GetBooking)
}
