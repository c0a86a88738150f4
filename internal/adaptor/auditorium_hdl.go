package adaptor

import (
	"net/http"

	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/utils"

	"go.uber.org/zap"
)

type AuditoriumHandler struct {
	service usecase.AuditoriumService
	log     *zap.Logger
}

func NewAuditoriumHandler(service usecase.AuditoriumService, log *zap.Logger) *AuditoriumHandler {
	return &AuditoriumHandler{
		service: service,
		log:     log.With(zap.String("handler", "auditorium")),
	}
}

// CreateAuditorium handles POST /api/admin/auditoriums (admin)
func (h *AuditoriumHandler) CreateAuditorium(w http.ResponseWriter, r *http.Request) {
	var req request.AuditoriumRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	auditorium, err := h.service.CreateAuditorium(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create auditorium")
		return
	}

	utils.ResponseCreated(w, "Auditorium created successfully", auditorium)
}

// ListAuditoriums handles GET /api/admin/auditoriums (admin)
func (h *AuditoriumHandler) ListAuditoriums(w http.ResponseWriter, r *http.Request) {
	auditoriums, err := h.service.ListAuditoriums(r.Context(), paginationFromQuery(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list auditoriums")
		return
	}

	utils.ResponseSuccess(w, "Auditoriums retrieved successfully", auditoriums)
}
