package request

const TimeLayout = "2006-01-02T15:04:05Z07:00"

type ScreeningRequest struct {
	MovieID      string  `json:"movie_id" validate:"required,uuid"`
	AuditoriumID string  `json:"auditorium_id" validate:"required,uuid"`
	StartsAt     string  `json:"starts_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt       string  `json:"ends_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Price        float64 `json:"price" validate:"required,gt=0"`
}

type ScreeningUpdateRequest struct {
	MovieID      *string  `json:"movie_id,omitempty" validate:"omitempty,uuid"`
	AuditoriumID *string  `json:"auditorium_id,omitempty" validate:"omitempty,uuid"`
	StartsAt     *string  `json:"starts_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt       *string  `json:"ends_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
}
