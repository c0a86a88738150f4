package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/dto/response"
	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Movie       *MovieHandler
	Auditorium  *AuditoriumHandler
	Screening   *ScreeningHandler
	Reservation *ReservationHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(service.Auth, log),
		User:        NewUserHandler(service.User, log),
		Movie:       NewMovieHandler(service.Movie, log),
		Auditorium:  NewAuditoriumHandler(service.Auditorium, log),
		Screening:   NewScreeningHandler(service.Screening, log),
		Reservation: NewReservationHandler(service.Reservation, log),
	}
}

// retryAfterSeconds is advertised when the seat inventory is too contended
const retryAfterSeconds = 1

// handleServiceError maps usecase errors onto the response envelope
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		conflict   *usecase.SeatConflictError
		validation *usecase.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		var fields any
		if len(validation.Fields) > 0 {
			fields = validation.Fields
		}
		utils.ResponseBadRequest(w, validation.Message, fields)
	case errors.As(err, &conflict):
		utils.ResponseConflict(w, conflict.Error(), response.SeatToResponse(conflict.Seat))
	case errors.Is(err, usecase.ErrNotFound):
		utils.ResponseNotFound(w, err.Error())
	case errors.Is(err, usecase.ErrConcurrentUpdate):
		log.Warn("Seat inventory contended", zap.String("operation", operation), zap.Error(err))
		utils.ResponseServiceUnavailable(w, usecase.ErrConcurrentUpdate.Error(), retryAfterSeconds)
	case errors.Is(err, usecase.ErrDuplicateReservation),
		errors.Is(err, usecase.ErrAlreadyExists),
		errors.Is(err, usecase.ErrConflict):
		utils.ResponseConflict(w, err.Error(), nil)
	case errors.Is(err, usecase.ErrUnauthorized):
		utils.ResponseUnauthorized(w, err.Error())
	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, err.Error())
	default:
		log.Error("Unhandled service error", zap.String("operation", operation), zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// decodeJSON reads the body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func paginationFromQuery(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ClampPerPage(utils.ParseInt(query.Get("per_page"), utils.DefaultPerPage)),
	}
}

