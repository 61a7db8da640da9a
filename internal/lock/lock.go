// Package lock serializes booking commits per (seat, travel date).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTimeout is returned when a lock could not be acquired before the
// caller's deadline.
var ErrTimeout = errors.New("lock wait timed out")

// Locker hands out mutual exclusion for string keys. Unlock must be called
// exactly once after a successful Lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

var (
	_ Locker = (*Memory)(nil)
	_ Locker = (*Redis)(nil)
)

// Key builds the lock key for a seat on a travel date.
func Key(seatID uuid.UUID, travelDate time.Time) string {
	return fmt.Sprintf("booking:seat:%s:%s", seatID, travelDate.Format(time.DateOnly))
}

func timeoutErr(key string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return fmt.Errorf("acquire %s: %w", key, cause)
	}
	return fmt.Errorf("acquire %s: %w", key, ErrTimeout)
}
