package usecase

import (
	"errors"
	"fmt"

	"movie-reservation/internal/data/entity"
	"movie-reservation/pkg/utils"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrSeatConflict         = errors.New("seat already reserved")
	ErrConcurrentUpdate     = errors.New("seat inventory busy, try again")
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateReservation = errors.New("user already holds a reservation for this screening")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrAlreadyExists        = errors.New("already exists")
	// ErrConflict covers schedule overlaps and deletes blocked by dependent records
	ErrConflict = errors.New("conflict")
)

// SeatConflictError names the first requested seat that was already taken
type SeatConflictError struct {
	Seat entity.Seat
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s is already reserved", e.Seat)
}

func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

// ValidationError carries per-field messages when the input was a struct
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return e.Message + ": " + utils.FormatValidationErrors(e.Fields)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// validate runs struct tags and converts failures into a *ValidationError
func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Message: "validation failed", Fields: errs}
	}
	return nil
}
