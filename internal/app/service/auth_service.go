package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

type AuthService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, log: log}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=40"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login checks the credentials and issues a session token. An unknown user
// and a wrong password both yield common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.AuthenticateUser(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}
	if user == nil {
		s.log.Info("login rejected", zap.String("username", req.Username))
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.log.Info("user logged in", zap.Int("user_id", user.ID))
	return &AuthResponse{User: user, Token: token}, nil
}

// CurrentUser resolves the user named in a verified session token.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetUserWithoutAuthentication(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, common.ErrUnauthorized
	}
	return user, nil
}
