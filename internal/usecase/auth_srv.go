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
	"movie-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	repo          *repository.Repository
	sessionExpiry time.Duration
	log           *zap.Logger
}

func NewAuthService(repo *repository.Repository, config *utils.Config, log *zap.Logger) AuthService {
	expiry := time.Duration(config.Session.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &authService{
		repo:          repo,
		sessionExpiry: expiry,
		log:           log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if err := validate(req); err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	// 2. Email and username must be free
	existing, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered: %w", ErrAlreadyExists)
	}

	existing, err = s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username already taken: %w", ErrAlreadyExists)
	}

	// 3. Hash password
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// 4. Save user
	user := &entity.User{
		Base:         entity.NewBase(time.Now()),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Phone:        req.Phone,
		Role:         entity.RoleCustomer,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("email or username already taken: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 5. Log the new user in
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		// the account exists, the client can still log in explicitly
		s.log.Warn("Failed to create session after register",
			zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Username field accepts an email as well
	user, err := s.repo.User.FindByEmail(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		user, err = s.repo.User.FindByUsername(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}

	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid login attempt", zap.String("identifier", req.Username))
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	if user.IsBanned {
		s.log.Warn("Banned user tried to login", zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("account is banned: %w", ErrForbidden)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return fmt.Errorf("invalid token format: %w", ErrUnauthorized)
	}

	if err := s.repo.Session.Revoke(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return fmt.Errorf("session already ended: %w", ErrUnauthorized)
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	s.log.Info("User logged out")
	return nil
}

func (s *authService) createSession(ctx context.Context, userID uuid.UUID) (*entity.Session, error) {
	now := time.Now()
	session := &entity.Session{
		BaseSimple: entity.NewBaseSimple(now),
		UserID:     userID,
		Token:      utils.GenerateSessionToken(),
		ExpiresAt:  now.Add(s.sessionExpiry),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}
