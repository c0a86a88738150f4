package adaptor

import (
	"net/http"
	"strconv"

	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log.With(zap.String("handler", "reservation")),
	}
}

// Reserve handles POST /api/screenings/{id}/reservation (protected)
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ReserveSeatsRequest
	if err := decodeJSON(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	reservation, err := h.service.Reserve(r.Context(), chi.URLParam(r, "id"), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "reserve seats")
		return
	}

	utils.ResponseCreated(w, "Seats reserved successfully", reservation)
}

// Cancel handles DELETE /api/screenings/{id}/reservation (protected)
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		handleServiceError(w, h.log, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "Reservation cancelled", nil)
}

// TakenSeats handles GET /api/screenings/{id}/taken-seats
func (h *ReservationHandler) TakenSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.service.ListTakenSeats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list taken seats")
		return
	}

	utils.ResponseSuccess(w, "Taken seats retrieved successfully", seats)
}

// Availability handles GET /api/screenings/{id}/seats
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	seatMap, err := h.service.ListAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list availability")
		return
	}

	utils.ResponseSuccess(w, "Seat map retrieved successfully", seatMap)
}

// MyReservations handles GET /api/user/reservations (protected)
func (h *ReservationHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservations, err := h.service.ListUserReservations(r.Context(), userID, paginationFromQuery(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list user reservations")
		return
	}

	utils.ResponseSuccess(w, "Reservations retrieved successfully", reservations)
}

// ScreeningReservations handles GET /api/admin/screenings/{id}/reservations (admin)
func (h *ReservationHandler) ScreeningReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ListScreeningReservations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list screening reservations")
		return
	}

	utils.ResponseSuccess(w, "Reservations retrieved successfully", reservations)
}

// Ticket handles GET /api/reservations/{id}/ticket.png (protected)
func (h *ReservationHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	role, _ := utils.GetRoleFromContext(r.Context())

	png, err := h.service.TicketQR(r.Context(), chi.URLParam(r, "id"), userID, role == string(entity.RoleAdmin))
	if err != nil {
		handleServiceError(w, h.log, err, "ticket qr")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Warn("Failed to write ticket", zap.Error(err))
	}
}
