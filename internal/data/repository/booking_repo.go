package repository

import (
	"context"
	"fmt"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type BookingRepository interface {
	// CreateIfFree inserts the booking unless blocks reports a conflict with
	// one of the seat's active bookings on the travel date. The read and the
	// insert share a transaction holding the Postgres advisory lock for
	// lockKey, so concurrent writers of the same key are serialized by the
	// database itself. It reports whether the booking was written.
	CreateIfFree(ctx context.Context, lockKey string, booking *entity.Booking, blocks func(*entity.Booking) bool) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserEmail(ctx context.Context, email string) ([]*entity.Booking, error)

	// Active bookings are the ones that still occupy a seat segment
	FindActiveBySeatAndDate(ctx context.Context, seatID uuid.UUID, travelDate time.Time) ([]*entity.Booking, error)
	FindActiveByBusAndDate(ctx context.Context, busID uuid.UUID, travelDate time.Time) ([]*entity.Booking, error)
	FindActiveByDate(ctx context.Context, travelDate time.Time) ([]*entity.Booking, error)

	// UpdateStatus moves a booking from one status to another and reports
	// whether a row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error)
}

// dbtx is satisfied by both the pool and a pgx.Tx.
type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `
	b.id, b.user_id, u.email, b.source_station_id, b.dest_station_id, b.seat_id,
	b.travel_date, b.booking_date, b.meal_choice, b.status, b.p_success,
	b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.UserEmail,
		&booking.SourceStationID,
		&booking.DestStationID,
		&booking.SeatID,
		&booking.TravelDate,
		&booking.BookingDate,
		&booking.MealChoice,
		&booking.Status,
		&booking.PSuccess,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) CreateIfFree(ctx context.Context, lockKey string, booking *entity.Booking, blocks func(*entity.Booking) bool) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin booking transaction", zap.Error(err))
		return false, fmt.Errorf("begin booking transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// ctx may already be cancelled
			_ = tx.Rollback(context.Background())
		}
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		r.log.Error("Failed to take advisory lock", zap.String("key", lockKey), zap.Error(err))
		return false, fmt.Errorf("advisory lock %s: %w", lockKey, err)
	}

	active, err := r.listOn(ctx, tx, "seat and date", activeBySeatAndDateQuery,
		booking.SeatID, booking.TravelDate, entity.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	for _, existing := range active {
		if blocks(existing) {
			return false, nil
		}
	}

	if err := r.insert(ctx, tx, booking); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit booking", zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return false, fmt.Errorf("commit booking %s: %w", booking.ID, err)
	}
	committed = true

	return true, nil
}

func (r *bookingRepository) insert(ctx context.Context, db dbtx, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, source_station_id, dest_station_id, seat_id,
		                      travel_date, booking_date, meal_choice, status, p_success,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := db.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.SourceStationID,
		booking.DestStationID,
		booking.SeatID,
		booking.TravelDate,
		booking.BookingDate,
		booking.MealChoice,
		booking.Status,
		booking.PSuccess,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("seat_id", booking.SeatID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.id = $1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserEmail(ctx context.Context, email string) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE u.email = $1
		ORDER BY b.created_at DESC, b.id DESC
	`

	return r.list(ctx, "user email", query, email)
}

const activeBySeatAndDateQuery = `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.seat_id = $1 AND b.travel_date = $2 AND b.status = $3
	`

func (r *bookingRepository) FindActiveBySeatAndDate(ctx context.Context, seatID uuid.UUID, travelDate time.Time) ([]*entity.Booking, error) {
	return r.list(ctx, "seat and date", activeBySeatAndDateQuery, seatID, travelDate, entity.BookingStatusConfirmed)
}

func (r *bookingRepository) FindActiveByBusAndDate(ctx context.Context, busID uuid.UUID, travelDate time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN seats s ON s.id = b.seat_id
		WHERE s.bus_id = $1 AND b.travel_date = $2 AND b.status = $3
	`

	return r.list(ctx, "bus and date", query, busID, travelDate, entity.BookingStatusConfirmed)
}

func (r *bookingRepository) FindActiveByDate(ctx context.Context, travelDate time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.travel_date = $1 AND b.status = $2
	`

	return r.list(ctx, "date", query, travelDate, entity.BookingStatusConfirmed)
}

func (r *bookingRepository) list(ctx context.Context, by, query string, args ...any) ([]*entity.Booking, error) {
	return r.listOn(ctx, r.db, by, query, args...)
}

func (r *bookingRepository) listOn(ctx context.Context, db dbtx, by, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find bookings", zap.String("by", by), zap.Error(err))
		return nil, fmt.Errorf("find bookings by %s: %w", by, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings by %s: %w", by, err)
	}

	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, to, at)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(to)),
		)
		return false, fmt.Errorf("update booking status %s: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}
