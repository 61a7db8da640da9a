package repository

import (
	"context"
	"fmt"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/pkg/database"

	"go.uber.org/zap"
)

type StationRepository interface {
	FindAll(ctx context.Context) ([]*entity.Station, error)
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, stations []*entity.Station) error
}

type stationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewStationRepository(db database.PgxIface, log *zap.Logger) StationRepository {
	return &stationRepository{
		db:  db,
		log: log.With(zap.String("repository", "station")),
	}
}

// FindAll returns every station ordered along the route.
func (r *stationRepository) FindAll(ctx context.Context) ([]*entity.Station, error) {
	query := `
		SELECT id, name, ordinal, created_at
		FROM stations
		ORDER BY ordinal
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to find stations", zap.Error(err))
		return nil, fmt.Errorf("find stations: %w", err)
	}
	defer rows.Close()

	var stations []*entity.Station
	for rows.Next() {
		var st entity.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Ordinal, &st.CreatedAt); err != nil {
			r.log.Error("Failed to scan station row", zap.Error(err))
			return nil, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}

	return stations, nil
}

func (r *stationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stations`).Scan(&count); err != nil {
		r.log.Error("Failed to count stations", zap.Error(err))
		return 0, fmt.Errorf("count stations: %w", err)
	}
	return count, nil
}

func (r *stationRepository) CreateBatch(ctx context.Context, stations []*entity.Station) error {
	if len(stations) == 0 {
		return nil
	}

	query := `INSERT INTO stations (id, name, ordinal, created_at) VALUES `
	args := make([]any, 0, len(stations)*4)

	for i, st := range stations {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d)", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, st.ID, st.Name, st.Ordinal, st.CreatedAt)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to create stations",
			zap.Error(err),
			zap.Int("count", len(stations)),
		)
		return fmt.Errorf("create stations: %w", err)
	}

	return nil
}
