package repository

import (
	"sleeper-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	Station StationRepository
	Bus     BusRepository
	Seat    SeatRepository
	Booking BookingRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(db, log),
		Station: NewStationRepository(db, log),
		Bus:     NewBusRepository(db, log),
		Seat:    NewSeatRepository(db, log),
		Booking: NewBookingRepository(db, log),
	}
}
