package response

import (
	"time"

	"movie-reservation/internal/data/entity"
)

type AuditoriumResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RowCount    int       `json:"row_count"`
	SeatsPerRow int       `json:"seats_per_row"`
	Capacity    int       `json:"capacity"`
	FirstRow    string    `json:"first_row"`
	LastRow     string    `json:"last_row"`
	CreatedAt   time.Time `json:"created_at"`
}

func AuditoriumToResponse(a *entity.Auditorium) AuditoriumResponse {
	return AuditoriumResponse{
		ID:          a.ID.String(),
		Name:        a.Name,
		RowCount:    a.RowCount,
		SeatsPerRow: a.SeatsPerRow,
		Capacity:    a.Capacity(),
		FirstRow:    entity.RowLabel(0),
		LastRow:     entity.RowLabel(a.RowCount - 1),
		CreatedAt:   a.CreatedAt,
	}
}
