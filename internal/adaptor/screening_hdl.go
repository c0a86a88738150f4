package adaptor

import (
	"net/http"

	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ScreeningHandler struct {
	service usecase.ScreeningService
	log     *zap.Logger
}

func NewScreeningHandler(service usecase.ScreeningService, log *zap.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		service: service,
		log:     log.With(zap.String("handler", "screening")),
	}
}

// GetScreening handles GET /api/screenings/{id}
func (h *ScreeningHandler) GetScreening(w http.ResponseWriter, r *http.Request) {
	screening, err := h.service.GetScreening(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get screening")
		return
	}

	utils.ResponseSuccess(w, "Screening retrieved successfully", screening)
}

// ListByMovie handles GET /api/movies/{id}/screenings
func (h *ScreeningHandler) ListByMovie(w http.ResponseWriter, r *http.Request) {
	screenings, err := h.service.ListByMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list screenings")
		return
	}

	utils.ResponseSuccess(w, "Screenings retrieved successfully", screenings)
}

// CreateScreening handles POST /api/admin/screenings (admin)
func (h *ScreeningHandler) CreateScreening(w http.ResponseWriter, r *http.Request) {
	var req request.ScreeningRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	screening, err := h.service.CreateScreening(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create screening")
		return
	}

	utils.ResponseCreated(w, "Screening created successfully", screening)
}

// UpdateScreening handles PUT /api/admin/screenings/{id} (admin)
func (h *ScreeningHandler) UpdateScreening(w http.ResponseWriter, r *http.Request) {
	var req request.ScreeningUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	screening, err := h.service.UpdateScreening(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update screening")
		return
	}

	utils.ResponseSuccess(w, "Screening updated successfully", screening)
}

// DeleteScreening handles DELETE /api/admin/screenings/{id} (admin)
func (h *ScreeningHandler) DeleteScreening(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteScreening(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete screening")
		return
	}

	utils.ResponseSuccess(w, "Screening deleted successfully", nil)
}
