package response

import (
	"time"

	"movie-reservation/internal/data/entity"
)

type MovieResponse struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	Genre             *string   `json:"genre,omitempty"`
	PosterURL         *string   `json:"poster_url,omitempty"`
	ReleaseDate       string    `json:"release_date"`
	DurationInMinutes int       `json:"duration_in_minutes"`
	ReleaseStatus     string    `json:"release_status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func MovieToResponse(movie *entity.Movie) MovieResponse {
	return MovieResponse{
		ID:                movie.ID.String(),
		Title:             movie.Title,
		Description:       movie.Description,
		Genre:             movie.Genre,
		PosterURL:         movie.PosterURL,
		ReleaseDate:       movie.ReleaseDate.Format("2006-01-02"),
		DurationInMinutes: movie.DurationInMinutes,
		ReleaseStatus:     string(movie.ReleaseStatus),
		CreatedAt:         movie.CreatedAt,
		UpdatedAt:         movie.UpdatedAt,
	}
}
