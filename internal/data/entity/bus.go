package entity

type Bus struct {
	BaseSimple
	Name       string `db:"name"`
	TotalSeats int    `db:"total_seats"`
}
