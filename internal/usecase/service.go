package usecase

import (
	"time"

	"movie-reservation/internal/data/cache"
	"movie-reservation/internal/data/repository"
	"movie-reservation/pkg/broker"
	"movie-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Auth        AuthService
	User        UserService
	Movie       MovieService
	Auditorium  AuditoriumService
	Screening   ScreeningService
	Reservation ReservationService
}

func NewService(
	repo *repository.Repository,
	seatCache cache.SeatCache,
	publisher broker.Publisher,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:        NewAuthService(repo, config, log),
		User:        NewUserService(repo, log),
		Movie:       NewMovieService(repo, log),
		Auditorium:  NewAuditoriumService(repo, log),
		Screening:   NewScreeningService(repo, log),
		Reservation: NewReservationService(repo, seatCache, publisher, config.Reservation, log),
	}
}

// parseID turns a path parameter into a uuid, reporting which kind of id was malformed
func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, newValidationError("invalid %s id", kind)
	}
	return id, nil
}

func parseTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ValidationError{
			Message: "validation failed",
			Fields:  map[string]string{field: "must be an RFC3339 timestamp"},
		}
	}
	return t, nil
}
