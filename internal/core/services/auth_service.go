package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

type AuthService struct {
	users ports.UserRepository
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(users ports.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Login returns ErrInvalidCredentials for unknown emails, wrong
// passwords and deactivated accounts alike, so responses do not leak
// which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Register(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, error) {
	if len(password) < 8 {
		return nil, apperrors.NewValidationError(apperrors.ErrBadRequest, "password must be at least 8 characters", nil)
	}
	user, err := domain.NewUser(fullName, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
