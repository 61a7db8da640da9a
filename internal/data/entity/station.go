package entity

// Station is a stop on the fixed route. Ordinal is its position along the
// route; lower means earlier.
type Station struct {
	BaseSimple
	Name    string `db:"name"`
	Ordinal int    `db:"ordinal"`
}
