package adaptor

import (
	"net/http"

	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	service usecase.UserService
	log     *zap.Logger
}

func NewUserHandler(service usecase.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With(zap.String("handler", "user")),
	}
}

// GetProfile handles GET /api/user/profile (protected)
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.log, err, "get profile")
		return
	}

	utils.ResponseSuccess(w, "Profile retrieved successfully", profile)
}

// GetAllUsers handles GET /api/admin/users (admin)
func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), paginationFromQuery(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list users")
		return
	}

	utils.ResponseSuccess(w, "Users retrieved successfully", users)
}

// BanUser handles POST /api/admin/users/{id}/ban (admin)
func (h *UserHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.service.BanUser(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "ban user")
		return
	}

	utils.ResponseSuccess(w, "User banned", nil)
}

// UnbanUser handles POST /api/admin/users/{id}/unban (admin)
func (h *UserHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UnbanUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "unban user")
		return
	}

	utils.ResponseSuccess(w, "User unbanned", nil)
}

// DeleteUser handles DELETE /api/admin/users/{id} (admin)
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.service.DeleteUser(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete user")
		return
	}

	utils.ResponseSuccess(w, "User deleted", nil)
}
