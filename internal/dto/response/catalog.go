package response

import "sleeper-booking/internal/data/entity"

type StationResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

type BusResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalSeats int    `json:"total_seats"`
}

type SeatResponse struct {
	ID         string `json:"id"`
	BusID      string `json:"bus_id"`
	SeatNumber string `json:"seat_number"`
	IsSleeper  bool   `json:"is_sleeper"`
}

func StationToResponse(st *entity.Station) StationResponse {
	return StationResponse{
		ID:      st.ID.String(),
		Name:    st.Name,
		Ordinal: st.Ordinal,
	}
}

func BusToResponse(b *entity.Bus) BusResponse {
	return BusResponse{
		ID:         b.ID.String(),
		Name:       b.Name,
		TotalSeats: b.TotalSeats,
	}
}

func SeatToResponse(s *entity.Seat) SeatResponse {
	return SeatResponse{
		ID:         s.ID.String(),
		BusID:      s.BusID.String(),
		SeatNumber: s.SeatNumber,
		IsSleeper:  s.IsSleeper,
	}
}
