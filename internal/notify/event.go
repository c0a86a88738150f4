// Package notify carries reservation events from the broker to the users' mailboxes.
package notify

import (
	"time"

	"movie-reservation/internal/data/entity"

	"github.com/google/uuid"
)

const (
	RoutingReservationCreated   = "reservation.created"
	RoutingReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reserve or cancel has committed
type ReservationEvent struct {
	ReservationID uuid.UUID     `json:"reservation_id"`
	Code          string        `json:"code"`
	UserID        uuid.UUID     `json:"user_id"`
	ScreeningID   uuid.UUID     `json:"screening_id"`
	StartsAt      time.Time     `json:"starts_at"`
	Seats         []entity.Seat `json:"seats"`
	TotalPrice    float64       `json:"total_price"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewReservationEvent(res *entity.Reservation, startsAt, now time.Time) ReservationEvent {
	return ReservationEvent{
		ReservationID: res.ID,
		Code:          res.Code,
		UserID:        res.UserID,
		ScreeningID:   res.ScreeningID,
		StartsAt:      startsAt,
		Seats:         res.Seats,
		TotalPrice:    res.TotalPrice,
		OccurredAt:    now,
	}
}
