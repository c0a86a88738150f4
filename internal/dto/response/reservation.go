package response

import (
	"time"

	"movie-reservation/internal/data/entity"
)

type SeatResponse struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
	Label  string `json:"label"`
}

func SeatToResponse(seat entity.Seat) SeatResponse {
	return SeatResponse{Row: seat.Row, Number: seat.Number, Label: seat.String()}
}

func SeatsToResponse(seats []entity.Seat) []SeatResponse {
	out := make([]SeatResponse, len(seats))
	for i, s := range seats {
		out[i] = SeatToResponse(s)
	}
	return out
}

type ReservationResponse struct {
	ID          string         `json:"id"`
	Code        string         `json:"code"`
	UserID      string         `json:"user_id"`
	ScreeningID string         `json:"screening_id"`
	Seats       []SeatResponse `json:"seats"`
	TotalPrice  float64        `json:"total_price"`
	PriceModel  string         `json:"price_model"`
	CreatedAt   time.Time      `json:"created_at"`
}

func ReservationToResponse(res *entity.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          res.ID.String(),
		Code:        res.Code,
		UserID:      res.UserID.String(),
		ScreeningID: res.ScreeningID.String(),
		Seats:       SeatsToResponse(res.Seats),
		TotalPrice:  res.TotalPrice,
		PriceModel:  PriceModelFlat,
		CreatedAt:   res.CreatedAt,
	}
}

type SeatStatusResponse struct {
	Number    int  `json:"number"`
	Available bool `json:"available"`
}

type SeatRowResponse struct {
	Row   string               `json:"row"`
	Seats []SeatStatusResponse `json:"seats"`
}

// SeatMapResponse is the availability view of a screening. It is display only
// and may lag behind the store by the cache TTL.
type SeatMapResponse struct {
	ScreeningID    string            `json:"screening_id"`
	AuditoriumID   string            `json:"auditorium_id"`
	Price          float64           `json:"price"`
	PriceModel     string            `json:"price_model"`
	Capacity       int               `json:"capacity"`
	AvailableCount int               `json:"available_count"`
	Rows           []SeatRowResponse `json:"rows"`
}

// BuildSeatMap lays out the auditorium and marks every seat not in taken as available
func BuildSeatMap(screening *entity.Screening, auditorium *entity.Auditorium, taken []entity.Seat) SeatMapResponse {
	takenSet := make(map[entity.Seat]struct{}, len(taken))
	for _, s := range taken {
		takenSet[s] = struct{}{}
	}

	resp := SeatMapResponse{
		ScreeningID:  screening.ID.String(),
		AuditoriumID: auditorium.ID.String(),
		Price:        screening.Price,
		PriceModel:   PriceModelFlat,
		Capacity:     auditorium.Capacity(),
		Rows:         make([]SeatRowResponse, 0, auditorium.RowCount),
	}

	for r := 0; r < auditorium.RowCount; r++ {
		row := SeatRowResponse{Row: entity.RowLabel(r), Seats: make([]SeatStatusResponse, 0, auditorium.SeatsPerRow)}
		for n := 1; n <= auditorium.SeatsPerRow; n++ {
			_, isTaken := takenSet[entity.Seat{Row: row.Row, Number: n}]
			row.Seats = append(row.Seats, SeatStatusResponse{Number: n, Available: !isTaken})
			if !isTaken {
				resp.AvailableCount++
			}
		}
		resp.Rows = append(resp.Rows, row)
	}

	return resp
}
