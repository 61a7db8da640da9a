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

type BusRepository interface {
	Create(ctx context.Context, bus *entity.Bus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Bus, error)
	FindAll(ctx context.Context) ([]*entity.Bus, error)
}

type busRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBusRepository(db database.PgxIface, log *zap.Logger) BusRepository {
	return &busRepository{
		db:  db,
		log: log.With(zap.String("repository", "bus")),
	}
}

func (r *busRepository) Create(ctx context.Context, bus *entity.Bus) error {
	query := `
		INSERT INTO buses (id, name, total_seats, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, bus.ID, bus.Name, bus.TotalSeats, bus.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create bus",
			zap.Error(err),
			zap.String("name", bus.Name),
		)
		return fmt.Errorf("create bus %s: %w", bus.Name, err)
	}

	return nil
}

func (r *busRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Bus, error) {
	query := `
		SELECT id, name, total_seats, created_at
		FROM buses
		WHERE id = $1
	`

	var bus entity.Bus
	err := r.db.QueryRow(ctx, query, id).Scan(&bus.ID, &bus.Name, &bus.TotalSeats, &bus.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find bus by ID",
			zap.Error(err),
			zap.String("bus_id", id.String()),
		)
		return nil, fmt.Errorf("find bus by ID %s: %w", id.String(), err)
	}

	return &bus, nil
}

func (r *busRepository) FindAll(ctx context.Context) ([]*entity.Bus, error) {
	query := `
		SELECT id, name, total_seats, created_at
		FROM buses
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find buses", zap.Error(err))
		return nil, fmt.Errorf("find buses: %w", err)
	}
	defer rows.Close()

	var buses []*entity.Bus
	for rows.Next() {
		var bus entity.Bus
		if err := rows.Scan(&bus.ID, &bus.Name, &bus.TotalSeats, &bus.CreatedAt); err != nil {
			r.log.Error("Failed to scan bus row", zap.Error(err))
			return nil, fmt.Errorf("scan bus: %w", err)
		}
		buses = append(buses, &bus)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buses: %w", err)
	}

	return buses, nil
}
