package response

import (
	"time"

	"movie-reservation/internal/data/entity"
)

// PriceModelFlat means the screening price is charged once per reservation,
// whatever the number of seats.
const PriceModelFlat = "flat"

type ScreeningResponse struct {
	ID           string    `json:"id"`
	MovieID      string    `json:"movie_id"`
	AuditoriumID string    `json:"auditorium_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Price        float64   `json:"price"`
	PriceModel   string    `json:"price_model"`
}

func ScreeningToResponse(s *entity.Screening) ScreeningResponse {
	return ScreeningResponse{
		ID:           s.ID.String(),
		MovieID:      s.MovieID.String(),
		AuditoriumID: s.AuditoriumID.String(),
		StartsAt:     s.StartsAt,
		EndsAt:       s.EndsAt,
		Price:        s.Price,
		PriceModel:   PriceModelFlat,
	}
}
