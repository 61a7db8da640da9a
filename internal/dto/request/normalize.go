package request

import "strings"

// NormalizeEmail is the stored form of an email: trimmed and lower case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims the request fields in place. Run it before validation so
// padded input is judged in the form it will be stored in.
func (r *CreateBookingRequest) Normalize() {
	r.UserEmail = NormalizeEmail(r.UserEmail)
	r.SourceStationID = strings.TrimSpace(r.SourceStationID)
	r.DestStationID = strings.TrimSpace(r.DestStationID)
	r.SeatID = strings.TrimSpace(r.SeatID)
	r.TravelDate = strings.TrimSpace(r.TravelDate)
	r.MealChoice = strings.TrimSpace(r.MealChoice)
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}
