package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireScreening(r chi.Router, screeningHandler *adaptor.ScreeningHandler, auth, admin func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/movies/{id}/screenings", screeningHandler.ListByMovie)
	r.Get("/api/screenings/{id}", screeningHandler.GetScreening)

	// ==================== ADMIN ROUTES ====================
	// explicit paths, /api/admin/screenings/{id}/reservations is registered by wireReservation
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(admin)

		r.Post("/api/admin/screenings", screeningHandler.CreateScreening)
		r.Put("/api/admin/screenings/{id}", screeningHandler.UpdateScreening)
		r.Delete("/api/admin/screenings/{id}", screeningHandler.DeleteScreening)
	})
}
