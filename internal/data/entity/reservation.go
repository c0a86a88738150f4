package entity

import (
	"github.com/google/uuid"
)

type Reservation struct {
	BaseSimple
	Code        string    `db:"code"`
	UserID      uuid.UUID `db:"user_id"`
	ScreeningID uuid.UUID `db:"screening_id"`
	TotalPrice  float64   `db:"total_price"`
	Seats       []Seat    `db:"-"`
}

// ReservedSeat is one row of the taken-seat set of a screening
type ReservedSeat struct {
	ScreeningID   uuid.UUID `db:"screening_id"`
	ReservationID uuid.UUID `db:"reservation_id"`
	Seat
}
