package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	auth, admin, rateLimit func(http.Handler) http.Handler,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/screenings/{id}/seats", reservationHandler.Availability)
	r.Get("/api/screenings/{id}/taken-seats", reservationHandler.TakenSeats)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(auth)

		// limiter runs after auth so buckets are keyed by user
		r.With(rateLimit).Post("/api/screenings/{id}/reservation", reservationHandler.Reserve)
		r.With(rateLimit).Delete("/api/screenings/{id}/reservation", reservationHandler.Cancel)

		r.Get("/api/user/reservations", reservationHandler.MyReservations)
		r.Get("/api/reservations/{id}/ticket.png", reservationHandler.Ticket)
	})

	// ==================== ADMIN ROUTES ====================
	r.With(auth, admin).Get("/api/admin/screenings/{id}/reservations", reservationHandler.ScreeningReservations)
}
