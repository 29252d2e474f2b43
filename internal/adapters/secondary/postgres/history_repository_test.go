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

func TestHistoryRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo := newTestRepos(t)
	historyRepo := NewHistoryRepository(testPool)

	creator := createTestUser(t, ctx, userRepo, domain.RoleRequester)
	dispatcher := createTestUser(t, ctx, userRepo, domain.RoleDispatcher)
	ticket := createTestTicket(t, ctx, ticketRepo, creator.ID)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := domain.NewHistoryEntry(ticket.ID, domain.ActionAssign,
		domain.StatusPendingAnalysis, domain.StatusAssigned, dispatcher.ID, "", base)
	second := domain.NewHistoryEntry(ticket.ID, domain.ActionEscalate,
		domain.StatusAssigned, domain.StatusAssigned, dispatcher.ID, "", base.Add(time.Second))

	require.NoError(t, historyRepo.Append(ctx, first))
	require.NoError(t, historyRepo.Append(ctx, second))

	entries, err := historyRepo.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Chronological order, oldest first.
	assert.Equal(t, domain.ActionAssign, entries[0].Action)
	assert.Equal(t, domain.ActionEscalate, entries[1].Action)
	assert.Equal(t, dispatcher.ID, entries[0].ActorID)
}

func TestHistoryRepository_SweeperEntriesHaveNilActor(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo := newTestRepos(t)
	historyRepo := NewHistoryRepository(testPool)

	creator := createTestUser(t, ctx, userRepo, domain.RoleRequester)
	ticket := createTestTicket(t, ctx, ticketRepo, creator.ID)

	entry := domain.NewHistoryEntry(ticket.ID, domain.ActionClose,
		domain.StatusResolved, domain.StatusClosed, uuid.Nil,
		"Clôture automatique sans validation du demandeur", time.Now().UTC())
	require.NoError(t, historyRepo.Append(ctx, entry))

	entries, err := historyRepo.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uuid.Nil, entries[0].ActorID)
	assert.Equal(t, "Clôture automatique sans validation du demandeur", entries[0].Reason)
}

func TestHistoryRepository_LatestRejectionReason(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo := newTestRepos(t)
	historyRepo := NewHistoryRepository(testPool)

	creator := createTestUser(t, ctx, userRepo, domain.RoleRequester)
	ticket := createTestTicket(t, ctx, ticketRepo, creator.ID)

	t.Run("no rejection yet", func(t *testing.T) {
		_, err := historyRepo.LatestRejectionReason(ctx, ticket.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("latest rejection wins", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Microsecond)
		older := domain.NewHistoryEntry(ticket.ID, domain.ActionReject,
			domain.StatusResolved, domain.StatusRejected, creator.ID, "Premier refus", base)
		newer := domain.NewHistoryEntry(ticket.ID, domain.ActionReject,
			domain.StatusResolved, domain.StatusRejected, creator.ID, "Second refus", base.Add(time.Minute))
		require.NoError(t, historyRepo.Append(ctx, older))
		require.NoError(t, historyRepo.Append(ctx, newer))

		reason, err := historyRepo.LatestRejectionReason(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, "Second refus", reason)
	})
}

func TestHistoryRepository_WasResumed(t *testing.T) {
	ctx := context.Background()
	ticketRepo, userRepo := newTestRepos(t)
	historyRepo := NewHistoryRepository(testPool)

	creator := createTestUser(t, ctx, userRepo, domain.RoleRequester)
	dispatcher := createTestUser(t, ctx, userRepo, domain.RoleDispatcher)
	ticket := createTestTicket(t, ctx, ticketRepo, creator.ID)

	resumed, err := historyRepo.WasResumed(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, resumed)

	reopen := domain.NewHistoryEntry(ticket.ID, domain.ActionReopen,
		domain.StatusRejected, domain.StatusInProgress, dispatcher.ID, "Reprise", time.Now().UTC())
	require.NoError(t, historyRepo.Append(ctx, reopen))

	resumed, err = historyRepo.WasResumed(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, resumed)
}
