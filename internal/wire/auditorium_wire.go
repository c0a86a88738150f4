package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuditorium(r chi.Router, auditoriumHandler *adaptor.AuditoriumHandler, auth, admin func(http.Handler) http.Handler) {
	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/auditoriums", func(r chi.Router) {
		r.Use(auth)
		r.Use(admin)

		r.Get("/", auditoriumHandler.ListAuditoriums)
		r.Post("/", auditoriumHandler.CreateAuditorium)
	})
}
