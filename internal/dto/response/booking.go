package response

import (
	"time"

	"sleeper-booking/internal/data/entity"
)

type BookingResponse struct {
	ID              string               `json:"id"`
	UserEmail       string               `json:"user_email"`
	SourceStationID string               `json:"source_station_id"`
	DestStationID   string               `json:"dest_station_id"`
	SeatID          string               `json:"seat_id"`
	TravelDate      string               `json:"travel_date"`
	BookingDate     string               `json:"booking_date"`
	MealChoice      string               `json:"meal_choice"`
	Status          entity.BookingStatus `json:"status"`
	PSuccess        float64              `json:"p_success"`
	SourceStation   *StationResponse     `json:"source_station,omitempty"`
	DestStation     *StationResponse     `json:"dest_station,omitempty"`
	Seat            *SeatResponse        `json:"seat,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type AvailabilityResponse struct {
	SourceID           string   `json:"source_id"`
	DestID             string   `json:"dest_id"`
	Date               string   `json:"date"`
	BusID              string   `json:"bus_id,omitempty"`
	UnavailableSeatIDs []string `json:"unavailable_seat_ids"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		UserEmail:       b.UserEmail,
		SourceStationID: b.SourceStationID.String(),
		DestStationID:   b.DestStationID.String(),
		SeatID:          b.SeatID.String(),
		TravelDate:      b.TravelDate.Format(time.DateOnly),
		BookingDate:     b.BookingDate.Format(time.DateOnly),
		MealChoice:      b.MealChoice,
		Status:          b.Status,
		PSuccess:        b.PSuccess,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
