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

	"go.uber.org/zap"
)

type MovieService interface {
	GetMovies(ctx context.Context, req *request.PaginatedRequest, releaseStatus *string) (*response.PaginatedResponse[response.MovieResponse], error)
	GetMovieByID(ctx context.Context, movieID string) (*response.MovieResponse, error)
	CreateMovie(ctx context.Context, req *request.MovieRequest) (*response.MovieResponse, error)
	UpdateMovie(ctx context.Context, movieID string, req *request.MovieUpdateRequest) (*response.MovieResponse, error)
	DeleteMovie(ctx context.Context, movieID string) error
}

type movieService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewMovieService(repo *repository.Repository, log *zap.Logger) MovieService {
	return &movieService{
		repo: repo,
		log:  log.With(zap.String("service", "movie")),
	}
}

func (s *movieService) GetMovies(ctx context.Context, req *request.PaginatedRequest, releaseStatus *string) (*response.PaginatedResponse[response.MovieResponse], error) {
	if releaseStatus != nil && *releaseStatus != "" &&
		*releaseStatus != string(entity.ReleaseStatusNowPlaying) &&
		*releaseStatus != string(entity.ReleaseStatusComingSoon) {
		return nil, newValidationError("release_status must be one of now_playing coming_soon")
	}

	movies, err := s.repo.Movie.FindAll(ctx, req.Offset(), req.Limit(), releaseStatus)
	if err != nil {
		return nil, fmt.Errorf("get movies: %w", err)
	}

	total, err := s.repo.Movie.CountAll(ctx, releaseStatus)
	if err != nil {
		return nil, fmt.Errorf("count movies: %w", err)
	}

	data := make([]response.MovieResponse, len(movies))
	for i, movie := range movies {
		data[i] = response.MovieToResponse(movie)
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *movieService) GetMovieByID(ctx context.Context, movieID string) (*response.MovieResponse, error) {
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

	resp := response.MovieToResponse(movie)
	return &resp, nil
}

func (s *movieService) CreateMovie(ctx context.Context, req *request.MovieRequest) (*response.MovieResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	releaseDate, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		return nil, newValidationError("invalid release_date")
	}

	movie := &entity.Movie{
		Base:              entity.NewBase(time.Now()),
		Title:             req.Title,
		Description:       req.Description,
		Genre:             req.Genre,
		PosterURL:         req.PosterURL,
		ReleaseDate:       releaseDate,
		DurationInMinutes: req.DurationInMinutes,
		ReleaseStatus:     entity.ReleaseStatus(req.ReleaseStatus),
	}

	if err := s.repo.Movie.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}

	s.log.Info("Movie created", zap.String("movie_id", movie.ID.String()), zap.String("title", movie.Title))

	resp := response.MovieToResponse(movie)
	return &resp, nil
}

func (s *movieService) UpdateMovie(ctx context.Context, movieID string, req *request.MovieUpdateRequest) (*response.MovieResponse, error) {
	id, err := parseID("movie", movieID)
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	movie, err := s.repo.Movie.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
	}

	// Apply only the fields that were sent
	if req.Title != nil {
		movie.Title = *req.Title
	}
	if req.Description != nil {
		movie.Description = req.Description
	}
	if req.Genre != nil {
		movie.Genre = req.Genre
	}
	if req.PosterURL != nil {
		movie.PosterURL = req.PosterURL
	}
	if req.ReleaseDate != nil {
		releaseDate, err := time.Parse("2006-01-02", *req.ReleaseDate)
		if err != nil {
			return nil, newValidationError("invalid release_date")
		}
		movie.ReleaseDate = releaseDate
	}
	if req.DurationInMinutes != nil {
		movie.DurationInMinutes = *req.DurationInMinutes
	}
	if req.ReleaseStatus != nil {
		movie.ReleaseStatus = entity.ReleaseStatus(*req.ReleaseStatus)
	}
	movie.UpdatedAt = time.Now()

	if err := s.repo.Movie.Update(ctx, movie); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, fmt.Errorf("movie %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("update movie: %w", err)
	}

	resp := response.MovieToResponse(movie)
	return &resp, nil
}

func (s *movieService) DeleteMovie(ctx context.Context, movieID string) error {
	id, err := parseID("movie", movieID)
	if err != nil {
		return err
	}

	upcoming, err := s.repo.Screening.FindByMovieID(ctx, id, time.Now())
	if err != nil {
		return fmt.Errorf("check screenings of movie: %w", err)
	}
	if len(upcoming) > 0 {
		return fmt.Errorf("movie has %d upcoming screenings: %w", len(upcoming), ErrConflict)
	}

	if err := s.repo.Movie.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("movie %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete movie: %w", err)
	}
	return nil
}
