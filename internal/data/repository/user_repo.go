package repository

import (
	"context"
	"fmt"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindOrCreate(ctx context.Context, user *entity.User) (*entity.User, error)
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT id, email, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user entity.User
	err := ur.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}

	return &user, nil
}

// FindOrCreate inserts the user unless the email is already registered and
// returns the stored row either way. Concurrent calls for one email converge on
// a single row.
func (ur *userRepository) FindOrCreate(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, created_at, updated_at
	`

	var stored entity.User
	err := ur.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(
		&stored.ID,
		&stored.Email,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)

	if err != nil {
		ur.log.Error("Failed to find or create user",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return nil, fmt.Errorf("find or create user %s: %w", user.Email, err)
	}

	return &stored, nil
}
