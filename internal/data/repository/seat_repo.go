package repository

import (
	"context"
	"fmt"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatRepository interface {
	CreateBatch(ctx context.Context, seats []*entity.Seat) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Seat, error)
	FindByBusID(ctx context.Context, busID uuid.UUID) ([]*entity.Seat, error)
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// Build batch insert
	query := `INSERT INTO seats (id, bus_id, seat_number, is_sleeper, created_at) VALUES `
	args := make([]any, 0, len(seats)*5)

	for i, seat := range seats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			i*5+1, i*5+2, i*5+3, i*5+4, i*5+5)

		args = append(args,
			seat.ID,
			seat.BusID,
			seat.SeatNumber,
			seat.IsSleeper,
			seat.CreatedAt,
		)
	}

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to create batch seats",
			zap.Error(err),
			zap.Int("count", len(seats)),
		)
		return fmt.Errorf("failed to create batch seats: %w", err)
	}

	return nil
}

func (r *seatRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Seat, error) {
	query := `
		SELECT id, bus_id, seat_number, is_sleeper, created_at
		FROM seats
		WHERE id = $1
	`

	var seat entity.Seat
	err := r.db.QueryRow(ctx, query, id).Scan(
		&seat.ID,
		&seat.BusID,
		&seat.SeatNumber,
		&seat.IsSleeper,
		&seat.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat by ID",
			zap.Error(err),
			zap.String("seat_id", id.String()),
		)
		return nil, fmt.Errorf("failed to find seat: %w", err)
	}

	return &seat, nil
}

// FindByBusID lists lower berths before upper ones, each in numeric order.
func (r *seatRepository) FindByBusID(ctx context.Context, busID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT id, bus_id, seat_number, is_sleeper, created_at
		FROM seats
		WHERE bus_id = $1
		ORDER BY LEFT(seat_number, 1), LENGTH(seat_number), seat_number
	`

	rows, err := r.db.Query(ctx, query, busID)
	if err != nil {
		r.log.Error("Failed to find seats by bus ID",
			zap.Error(err),
			zap.String("bus_id", busID.String()),
		)
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		var seat entity.Seat
		err := rows.Scan(
			&seat.ID,
			&seat.BusID,
			&seat.SeatNumber,
			&seat.IsSleeper,
			&seat.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seats: %w", err)
	}

	return seats, nil
}
