package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
)

func TestUserRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	_, userRepo := newTestRepos(t)

	email := uuid.NewString() + "@example.fr"
	user := &domain.User{
		ID:             uuid.New(),
		FullName:       "Paul Petit",
		Email:          email,
		PasswordHash:   "hash",
		Role:           domain.RoleTechnician,
		Specialization: "reseau",
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, userRepo.Create(ctx, user))

	byEmail, err := userRepo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Paul Petit", byEmail.FullName)
	assert.Equal(t, domain.RoleTechnician, byEmail.Role)
	assert.Equal(t, "reseau", byEmail.Specialization)

	byID, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	_, userRepo := newTestRepos(t)

	_, err := userRepo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = userRepo.GetByEmail(ctx, "absent@example.fr")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_ListActiveByRole(t *testing.T) {
	ctx := context.Background()
	_, userRepo := newTestRepos(t)

	active := createTestUser(t, ctx, userRepo, domain.RoleDispatcher)
	inactive := &domain.User{
		ID:           uuid.New(),
		FullName:     "Parti Ailleurs",
		Email:        uuid.NewString() + "@example.fr",
		PasswordHash: "hash",
		Role:         domain.RoleDispatcher,
		IsActive:     false,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, userRepo.Create(ctx, inactive))

	dispatchers, err := userRepo.ListActiveByRole(ctx, domain.RoleDispatcher)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool)
	for _, d := range dispatchers {
		assert.Equal(t, domain.RoleDispatcher, d.Role)
		assert.True(t, d.IsActive)
		ids[d.ID] = true
	}
	assert.True(t, ids[active.ID])
	assert.False(t, ids[inactive.ID])
}

func TestUserRepository_ListTechnicianWorkloads(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo := newTestRepos(t)

	creator := createTestUser(t, ctx, userRepo, domain.RoleRequester)
	tech := createTestUser(t, ctx, userRepo, domain.RoleTechnician)

	// One assigned, one in progress.
	now := time.Now().UTC()
	for _, status := range []domain.TicketStatus{domain.StatusAssigned, domain.StatusInProgress} {
		ticket := createTestTicket(t, ctx, ticketRepo, creator.ID)
		ticket.Status = status
		ticket.TechnicianID = &tech.ID
		ticket.AssignedAt = &now
		ticket.UpdatedAt = &now
		_, err := ticketRepo.UpdateVersioned(ctx, ticket)
		require.NoError(t, err)
	}

	workloads, err := userRepo.ListTechnicianWorkloads(ctx)
	require.NoError(t, err)

	var found *domain.TechnicianWorkload
	for _, w := range workloads {
		if w.User.ID == tech.ID {
			found = w
			break
		}
	}
	require.NotNil(t, found, "technician missing from workload listing")
	assert.EqualValues(t, 1, found.AssignedCount)
	assert.EqualValues(t, 1, found.InProgressCount)
	assert.EqualValues(t, 2, found.OpenCount())
}
