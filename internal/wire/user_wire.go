package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireUser configures profile and user management routes
func wireUser(r chi.Router, userHandler *adaptor.UserHandler, auth, admin func(http.Handler) http.Handler) {
	// ==================== PROTECTED ROUTES ====================
	r.With(auth).Get("/api/user/profile", userHandler.GetProfile)

	// ==================== ADMIN ROUTES ====================
	r.With(auth, admin).Route("/api/admin/users", func(r chi.Router) {
		r.Get("/", userHandler.GetAllUsers)          // GET /api/admin/users?page=1&per_page=10
		r.Post("/{id}/ban", userHandler.BanUser)     // POST /api/admin/users/{id}/ban
		r.Post("/{id}/unban", userHandler.UnbanUser) // POST /api/admin/users/{id}/unban
		r.Delete("/{id}", userHandler.DeleteUser)    // DELETE /api/admin/users/{id}
	})
}
