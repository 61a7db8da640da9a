package entity

import "github.com/google/uuid"

type Seat struct {
	BaseSimple
	BusID      uuid.UUID `db:"bus_id"`
	SeatNumber string    `db:"seat_number"` // L1, U1, etc.
	IsSleeper  bool      `db:"is_sleeper"`
}
