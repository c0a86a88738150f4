package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireMovie(r chi.Router, movieHandler *adaptor.MovieHandler, auth, admin func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/movies", movieHandler.GetMovies)
	r.Get("/api/movies/{id}", movieHandler.GetMovieByID)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/movies", func(r chi.Router) {
		r.Use(auth)
		r.Use(admin)

		r.Post("/", movieHandler.CreateMovie)       // POST /api/admin/movies
		r.Put("/{id}", movieHandler.UpdateMovie)    // PUT /api/admin/movies/{id}
		r.Delete("/{id}", movieHandler.DeleteMovie) // DELETE /api/admin/movies/{id}
	})
}
