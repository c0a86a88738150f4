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

type AuditoriumService interface {
	CreateAuditorium(ctx context.Context, req *request.AuditoriumRequest) (*response.AuditoriumResponse, error)
	ListAuditoriums(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.AuditoriumResponse], error)
}

type auditoriumService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewAuditoriumService(repo *repository.Repository, log *zap.Logger) AuditoriumService {
	return &auditoriumService{
		repo: repo,
		log:  log.With(zap.String("service", "auditorium")),
	}
}

func (s *auditoriumService) CreateAuditorium(ctx context.Context, req *request.AuditoriumRequest) (*response.AuditoriumResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	existing, err := s.repo.Auditorium.FindByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("check auditorium name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("auditorium %q: %w", req.Name, ErrAlreadyExists)
	}

	auditorium := &entity.Auditorium{
		Base:        entity.NewBase(time.Now()),
		Name:        req.Name,
		RowCount:    req.RowCount,
		SeatsPerRow: req.SeatsPerRow,
	}

	if err := s.repo.Auditorium.Create(ctx, auditorium); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("auditorium %q: %w", req.Name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create auditorium: %w", err)
	}

	s.log.Info("Auditorium created",
		zap.String("auditorium_id", auditorium.ID.String()),
		zap.Int("capacity", auditorium.Capacity()))

	resp := response.AuditoriumToResponse(auditorium)
	return &resp, nil
}

func (s *auditoriumService) ListAuditoriums(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.AuditoriumResponse], error) {
	auditoriums, err := s.repo.Auditorium.FindAll(ctx, req.Offset(), req.Limit())
	if err != nil {
		return nil, fmt.Errorf("list auditoriums: %w", err)
	}

	total, err := s.repo.Auditorium.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count auditoriums: %w", err)
	}

	data := make([]response.AuditoriumResponse, len(auditoriums))
	for i, a := range auditoriums {
		data[i] = response.AuditoriumToResponse(a)
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}
