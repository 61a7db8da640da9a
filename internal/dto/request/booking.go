package request

type CreateBookingRequest struct {
	UserEmail       string `json:"user_email" validate:"required,email"`
	SourceStationID string `json:"source_station_id" validate:"required,uuid"`
	DestStationID   string `json:"dest_station_id" validate:"required,uuid"`
	SeatID          string `json:"seat_id" validate:"required,uuid"`
	TravelDate      string `json:"travel_date" validate:"required,datetime=2006-01-02"`
	MealChoice      string `json:"meal_choice" validate:"max=50"`
}

// AvailabilityRequest comes from the query string. BusID is optional; without
// it every seat on the date is considered.
type AvailabilityRequest struct {
	SourceID string `validate:"required,uuid"`
	DestID   string `validate:"required,uuid"`
	Date     string `validate:"required,datetime=2006-01-02"`
	BusID    string `validate:"omitempty,uuid"`
}
