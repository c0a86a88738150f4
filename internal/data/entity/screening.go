package entity

import (
	"time"

	"github.com/google/uuid"
)

type Screening struct {
	Base
	MovieID      uuid.UUID `db:"movie_id"`
	AuditoriumID uuid.UUID `db:"auditorium_id"`
	StartsAt     time.Time `db:"starts_at"`
	EndsAt       time.Time `db:"ends_at"`
	// Price is charged once per reservation, whatever the number of seats.
	Price float64 `db:"price"`
	// SeatVersion is bumped by every reserve and cancel on this screening.
	SeatVersion int64 `db:"seat_version"`
}

func (s *Screening) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && start.Before(s.EndsAt)
}
