// Package event announces booking lifecycle changes to other systems.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

type BookingEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	UserEmail       string    `json:"user_email"`
	SeatID          uuid.UUID `json:"seat_id"`
	SourceStationID uuid.UUID `json:"source_station_id"`
	DestStationID   uuid.UUID `json:"dest_station_id"`
	TravelDate      string    `json:"travel_date"`
	MealChoice      string    `json:"meal_choice,omitempty"`
	Status          string    `json:"status"`
	PSuccess        float64   `json:"p_success"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher is called after the booking change has been committed. Callers
// treat failures as non-fatal.
type Publisher interface {
	BookingConfirmed(ctx context.Context, e BookingEvent) error
	BookingCancelled(ctx context.Context, e BookingEvent) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) BookingConfirmed(context.Context, BookingEvent) error { return nil }
func (Nop) BookingCancelled(context.Context, BookingEvent) error { return nil }
