package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	Base
	UserID          uuid.UUID     `db:"user_id"`
	UserEmail       string        `db:"email"` // joined from users
	SourceStationID uuid.UUID     `db:"source_station_id"`
	DestStationID   uuid.UUID     `db:"dest_station_id"`
	SeatID          uuid.UUID     `db:"seat_id"`
	TravelDate      time.Time     `db:"travel_date"`
	BookingDate     time.Time     `db:"booking_date"`
	MealChoice      string        `db:"meal_choice"`
	Status          BookingStatus `db:"status"`
	PSuccess        float64       `db:"p_success"`
}

// IsActive reports whether the booking still holds its seat segment.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed
}
