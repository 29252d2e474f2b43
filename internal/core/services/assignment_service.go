package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// AssignmentService validates assignment targets and serves the
// technician directory. Workload counts are informational only, there
// is no cap on concurrent assignments.
type AssignmentService struct {
	users ports.UserRepository
}

var _ ports.AssignmentService = (*AssignmentService)(nil)

func NewAssignmentService(users ports.UserRepository) *AssignmentService {
	return &AssignmentService{users: users}
}

func (s *AssignmentService) ResolveTechnician(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrTechnicianNotFound
		}
		return nil, err
	}
	if user.Role != domain.RoleTechnician || !user.IsActive {
		return nil, apperrors.ErrTechnicianNotFound
	}
	return user, nil
}

func (s *AssignmentService) ListTechnicians(ctx context.Context, actor ports.Actor) ([]*domain.TechnicianWorkload, error) {
	if actor.Role != domain.RoleDispatcher {
		return nil, apperrors.ErrForbidden
	}
	return s.users.ListTechnicianWorkloads(ctx)
}
