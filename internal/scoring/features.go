// Package scoring predicts how likely a new booking is to stay confirmed.
package scoring

import (
	"strings"
	"time"
)

// Features is the model input. Field order matches the training columns.
type Features struct {
	Distance    int
	HasMeal     int
	DaysAdvance int
	IsWeekend   int
}

const featureCount = 4

func (f Features) vector() [featureCount]float64 {
	return [featureCount]float64{
		float64(f.Distance),
		float64(f.HasMeal),
		float64(f.DaysAdvance),
		float64(f.IsWeekend),
	}
}

// ExtractFeatures derives the model input from a booking request. distance is
// the ordinal gap between the stations; today is the booking day.
func ExtractFeatures(distance int, mealChoice string, travelDate, today time.Time) Features {
	f := Features{Distance: distance}

	meal := strings.TrimSpace(mealChoice)
	if meal != "" && !strings.EqualFold(meal, "none") {
		f.HasMeal = 1
	}

	if days := daysBetween(today, travelDate); days > 0 {
		f.DaysAdvance = days
	}

	switch travelDate.Weekday() {
	case time.Saturday, time.Sunday:
		f.IsWeekend = 1
	}

	return f
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
