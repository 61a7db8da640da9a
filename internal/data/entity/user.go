package entity

// User is referenced by bookings through user_id. Email is unique and is the
// lookup key used by login and booking history.
type User struct {
	Base
	Email string `db:"email"`
}
