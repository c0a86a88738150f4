package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reservation/internal/data/repository"
	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	BanUser(ctx context.Context, actorID uuid.UUID, userID string) error
	UnbanUser(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, actorID uuid.UUID, userID string) error
}

type userService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewUserService(repo *repository.Repository, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		log:  log.With(zap.String("service", "user")),
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	users, err := s.repo.User.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	total, err := s.repo.User.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	data := make([]response.UserResponse, len(users))
	for i, u := range users {
		data[i] = response.UserToResponse(u)
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *userService) BanUser(ctx context.Context, actorID uuid.UUID, userID string) error {
	id, err := parseID("user", userID)
	if err != nil {
		return err
	}
	if id == actorID {
		return fmt.Errorf("admins cannot ban themselves: %w", ErrForbidden)
	}

	if err := s.setBanned(ctx, id, true); err != nil {
		return err
	}

	// a banned user is also rejected by the auth middleware, revoking just ends the sessions sooner
	if err := s.repo.Session.RevokeAllUserSessions(ctx, id); err != nil {
		s.log.Warn("Failed to revoke sessions of banned user", zap.Error(err), zap.String("user_id", id.String()))
	}

	s.log.Info("User banned", zap.String("user_id", id.String()), zap.String("by", actorID.String()))
	return nil
}

func (s *userService) UnbanUser(ctx context.Context, userID string) error {
	id, err := parseID("user", userID)
	if err != nil {
		return err
	}
	if err := s.setBanned(ctx, id, false); err != nil {
		return err
	}

	s.log.Info("User unbanned", zap.String("user_id", id.String()))
	return nil
}

func (s *userService) setBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	err := s.repo.User.SetBanned(ctx, id, banned, time.Now())
	if errors.Is(err, repository.ErrNoRowsAffected) {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return err
}

func (s *userService) DeleteUser(ctx context.Context, actorID uuid.UUID, userID string) error {
	id, err := parseID("user", userID)
	if err != nil {
		return err
	}
	if id == actorID {
		return fmt.Errorf("admins cannot delete themselves: %w", ErrForbidden)
	}

	if err := s.repo.User.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return err
	}

	if err := s.repo.Session.RevokeAllUserSessions(ctx, id); err != nil {
		s.log.Warn("Failed to revoke sessions of deleted user", zap.Error(err), zap.String("user_id", id.String()))
	}
	return nil
}
