package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/data/repository"
	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ScreeningService interface {
	GetScreening(ctx context.Context, screeningID string) (*response.ScreeningResponse, error)
	ListByMovie(ctx context.Context, movieID string) ([]response.ScreeningResponse, error)
	CreateScreening(ctx context.Context, req *request.ScreeningRequest) (*response.ScreeningResponse, error)
	UpdateScreening(ctx context.Context, screeningID string, req *request.ScreeningUpdateRequest) (*response.ScreeningResponse, error)
	DeleteScreening(ctx context.Context, screeningID string) error
}

type screeningService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewScreeningService(repo *repository.Repository, log *zap.Logger) ScreeningService {
	return &screeningService{
		repo: repo,
		log:  log.With(zap.String("service", "screening")),
		now:  time.Now,
	}
}

func (s *screeningService) GetScreening(ctx context.Context, screeningID string) (*response.ScreeningResponse, error) {
	screening, err := s.find(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	resp := response.ScreeningToResponse(screening)
	return &resp, nil
}

func (s *screeningService) find(ctx context.Context, screeningID string) (*entity.Screening, error) {
	id, err := parseID("screening", screeningID)
	if err != nil {
		return nil, err
	}

	screening, err := s.repo.Screening.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get screening: %w", err)
	}
	if screening == nil {
		return nil, fmt.Errorf("screening %s: %w", id, ErrNotFound)
	}
	return screening, nil
}

// ListByMovie returns the movie's screenings that have not started yet
func (s *screeningService) ListByMovie(ctx context.Context, movieID string) ([]response.ScreeningResponse, error) {
	id, err := parseID("movie", movieID)
	if err != nil {
		return nil, err
	}

	movie, err := s.repo.Movie.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}

	screenings, err := s.repo.Screening.FindByMovieID(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}

	out := make([]response.ScreeningResponse, len(screenings))
	for i, sc := range screenings {
		out[i] = response.ScreeningToResponse(sc)
	}
	return out, nil
}

func (s *screeningService) CreateScreening(ctx context.Context, req *request.ScreeningRequest) (*response.ScreeningResponse, error) {
	// 1. Validate input
	if err := validate(req); err != nil {
		return nil, err
	}

	movieID, err := parseID("movie", req.MovieID)
	if err != nil {
		return nil, err
	}
	auditoriumID, err := parseID("auditorium", req.AuditoriumID)
	if err != nil {
		return nil, err
	}
	startsAt, err := parseTime("starts_at", req.StartsAt)
	if err != nil {
		return nil, err
	}
	endsAt, err := parseTime("ends_at", req.EndsAt)
	if err != nil {
		return nil, err
	}

	screening := &entity.Screening{
		Base:         entity.NewBase(s.now()),
		MovieID:      movieID,
		AuditoriumID: auditoriumID,
		StartsAt:     startsAt.UTC(),
		EndsAt:       endsAt.UTC(),
		Price:        req.Price,
	}

	// 2. Referenced records and schedule
	if err := s.checkSchedule(ctx, screening, nil); err != nil {
		return nil, err
	}

	// 3. Save
	if err := s.repo.Screening.Create(ctx, screening); err != nil {
		return nil, fmt.Errorf("create screening: %w", err)
	}

	s.log.Info("Screening created",
		zap.String("screening_id", screening.ID.String()),
		zap.String("movie_id", movieID.String()),
		zap.Time("starts_at", screening.StartsAt))

	resp := response.ScreeningToResponse(screening)
	return &resp, nil
}

func (s *screeningService) UpdateScreening(ctx context.Context, screeningID string, req *request.ScreeningUpdateRequest) (*response.ScreeningResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	screening, err := s.find(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	if req.MovieID != nil {
		if screening.MovieID, err = parseID("movie", *req.MovieID); err != nil {
			return nil, err
		}
	}
	if req.AuditoriumID != nil {
		auditoriumID, err := parseID("auditorium", *req.AuditoriumID)
		if err != nil {
			return nil, err
		}
		if auditoriumID != screening.AuditoriumID {
			// reserved seats are only meaningful in the auditorium they were taken in
			count, err := s.repo.Reservation.CountByScreeningID(ctx, screening.ID)
			if err != nil {
				return nil, fmt.Errorf("count reservations: %w", err)
			}
			if count > 0 {
				return nil, fmt.Errorf("cannot move a screening with %d reservations to another auditorium: %w", count, ErrConflict)
			}
			screening.AuditoriumID = auditoriumID
		}
	}
	if req.StartsAt != nil {
		startsAt, err := parseTime("starts_at", *req.StartsAt)
		if err != nil {
			return nil, err
		}
		screening.StartsAt = startsAt.UTC()
	}
	if req.EndsAt != nil {
		endsAt, err := parseTime("ends_at", *req.EndsAt)
		if err != nil {
			return nil, err
		}
		screening.EndsAt = endsAt.UTC()
	}
	if req.Price != nil {
		screening.Price = *req.Price
	}

	if err := s.checkSchedule(ctx, screening, &screening.ID); err != nil {
		return nil, err
	}

	screening.UpdatedAt = s.now()
	if err := s.repo.Screening.Update(ctx, screening); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, fmt.Errorf("screening %s: %w", screening.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("update screening: %w", err)
	}

	resp := response.ScreeningToResponse(screening)
	return &resp, nil
}

// checkSchedule verifies the movie and auditorium exist, the interval is sane
// and no other screening occupies the auditorium at the same time
func (s *screeningService) checkSchedule(ctx context.Context, screening *entity.Screening, excludeID *uuid.UUID) error {
	if !screening.EndsAt.After(screening.StartsAt) {
		return &ValidationError{
			Message: "validation failed",
			Fields:  map[string]string{"ends_at": "must be after starts_at"},
		}
	}

	movie, err := s.repo.Movie.FindByID(ctx, screening.MovieID)
	if err != nil {
		return fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return fmt.Errorf("movie %s: %w", screening.MovieID, ErrNotFound)
	}

	auditorium, err := s.repo.Auditorium.FindByID(ctx, screening.AuditoriumID)
	if err != nil {
		return fmt.Errorf("get auditorium: %w", err)
	}
	if auditorium == nil {
		return fmt.Errorf("auditorium %s: %w", screening.AuditoriumID, ErrNotFound)
	}

	overlapping, err := s.repo.Screening.FindOverlapping(ctx, screening.AuditoriumID, screening.StartsAt, screening.EndsAt, excludeID)
	if err != nil {
		return fmt.Errorf("check overlapping screenings: %w", err)
	}
	if len(overlapping) > 0 {
		s.log.Warn("Screening overlaps an existing one",
			zap.String("auditorium_id", screening.AuditoriumID.String()),
			zap.String("existing_id", overlapping[0].ID.String()))
		return fmt.Errorf("auditorium %s is busy from %s to %s: %w",
			auditorium.Name,
			overlapping[0].StartsAt.Format(time.RFC3339),
			overlapping[0].EndsAt.Format(time.RFC3339),
			ErrConflict)
	}

	return nil
}

func (s *screeningService) DeleteScreening(ctx context.Context, screeningID string) error {
	id, err := parseID("screening", screeningID)
	if err != nil {
		return err
	}

	count, err := s.repo.Reservation.CountByScreeningID(ctx, id)
	if err != nil {
		return fmt.Errorf("count reservations: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("screening has %d reservations: %w", count, ErrConflict)
	}

	if err := s.repo.Screening.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("screening %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete screening: %w", err)
	}
	return nil
}
