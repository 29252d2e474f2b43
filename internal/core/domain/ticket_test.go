package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func newTestTicket(status TicketStatus, creatorID uuid.UUID, technicianID *uuid.UUID) *Ticket {
	return &Ticket{
		ID:           uuid.New(),
		Number:       42,
		Title:        "Ecran noir au demarrage",
		Description:  "Le poste ne demarre plus depuis la mise a jour",
		Category:     CategoryHardware,
		Priority:     PriorityMedium,
		Status:       status,
		CreatorID:    creatorID,
		TechnicianID: technicianID,
		Version:      1,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
	}
}

func TestNewTicket(t *testing.T) {
	creator := uuid.New()

	t.Run("valid ticket", func(t *testing.T) {
		ticket, err := NewTicket("  Imprimante en panne  ", "Bourrage papier recurrent", CategoryHardware, PriorityHigh, creator)
		require.NoError(t, err)
		assert.Equal(t, "Imprimante en panne", ticket.Title)
		assert.Equal(t, StatusPendingAnalysis, ticket.Status)
		assert.Equal(t, PriorityHigh, ticket.Priority)
		assert.Equal(t, creator, ticket.CreatorID)
		assert.EqualValues(t, 1, ticket.Version)
		assert.Nil(t, ticket.TechnicianID)
	})

	t.Run("priority defaults to MOYENNE", func(t *testing.T) {
		ticket, err := NewTicket("VPN inaccessible", "", CategorySoftware, "", creator)
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, ticket.Priority)
	})

	tests := []struct {
		name     string
		title    string
		desc     string
		category TicketCategory
		priority TicketPriority
		creator  uuid.UUID
		wantErr  error
	}{
		{"empty title", "   ", "desc", CategoryHardware, PriorityLow, creator, apperrors.ErrTitleRequired},
		{"title too long", strings.Repeat("a", MaxTitleLength+1), "desc", CategoryHardware, PriorityLow, creator, apperrors.ErrTitleTooLong},
		{"description too long", "titre", strings.Repeat("a", MaxDescriptionLength+1), CategoryHardware, PriorityLow, creator, apperrors.ErrDescriptionTooLong},
		{"unknown category", "titre", "desc", "RESEAU", PriorityLow, creator, apperrors.ErrInvalidCategory},
		{"unknown priority", "titre", "desc", CategoryHardware, "URGENTE", creator, apperrors.ErrInvalidPriority},
		{"missing creator", "titre", "desc", CategoryHardware, PriorityLow, uuid.Nil, apperrors.ErrCreatorRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTicket(tt.title, tt.desc, tt.category, tt.priority, tt.creator)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPriorityEscalated(t *testing.T) {
	assert.Equal(t, PriorityMedium, PriorityLow.Escalated())
	assert.Equal(t, PriorityHigh, PriorityMedium.Escalated())
	assert.Equal(t, PriorityCritical, PriorityHigh.Escalated())
	// CRITIQUE saturates.
	assert.Equal(t, PriorityCritical, PriorityCritical.Escalated())
}

func TestDecide(t *testing.T) {
	creator := uuid.New()
	tech := uuid.New()
	dispatcher := uuid.New()
	otherTech := uuid.New()

	tests := []struct {
		name    string
		ticket  *Ticket
		input   TransitionInput
		wantErr error
	}{
		{
			name:   "dispatcher assigns pending ticket",
			ticket: newTestTicket(StatusPendingAnalysis, creator, nil),
			input:  TransitionInput{Action: ActionAssign, ActorID: dispatcher, ActorRole: RoleDispatcher, TechnicianID: ptr(tech)},
		},
		{
			name:    "requester cannot assign",
			ticket:  newTestTicket(StatusPendingAnalysis, creator, nil),
			input:   TransitionInput{Action: ActionAssign, ActorID: creator, ActorRole: RoleRequester, TechnicianID: ptr(tech)},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "assign without technician",
			ticket:  newTestTicket(StatusPendingAnalysis, creator, nil),
			input:   TransitionInput{Action: ActionAssign, ActorID: dispatcher, ActorRole: RoleDispatcher},
			wantErr: apperrors.ErrTechnicianRequired,
		},
		{
			name:    "assign already assigned ticket",
			ticket:  newTestTicket(StatusAssigned, creator, ptr(tech)),
			input:   TransitionInput{Action: ActionAssign, ActorID: dispatcher, ActorRole: RoleDispatcher, TechnicianID: ptr(tech)},
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:   "reassign needs a reason",
			ticket: newTestTicket(StatusAssigned, creator, ptr(tech)),
			input: TransitionInput{
				Action: ActionReassign, ActorID: dispatcher, ActorRole: RoleDispatcher,
				TechnicianID: ptr(otherTech),
			},
			wantErr: apperrors.ErrReasonRequired,
		},
		{
			name:   "assigned technician takes charge",
			ticket: newTestTicket(StatusAssigned, creator, ptr(tech)),
			input:  TransitionInput{Action: ActionTakeCharge, ActorID: tech, ActorRole: RoleTechnician},
		},
		{
			name:    "another technician cannot take charge",
			ticket:  newTestTicket(StatusAssigned, creator, ptr(tech)),
			input:   TransitionInput{Action: ActionTakeCharge, ActorID: otherTech, ActorRole: RoleTechnician},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:    "take charge before assignment is an illegal edge",
			ticket:  newTestTicket(StatusPendingAnalysis, creator, nil),
			input:   TransitionInput{Action: ActionTakeCharge, ActorID: tech, ActorRole: RoleTechnician},
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:   "assignee marks resolved with summary",
			ticket: newTestTicket(StatusInProgress, creator, ptr(tech)),
			input:  TransitionInput{Action: ActionMarkResolved, ActorID: tech, ActorRole: RoleTechnician, Reason: "Carte mere remplacee"},
		},
		{
			name:    "mark resolved without summary",
			ticket:  newTestTicket(StatusInProgress, creator, ptr(tech)),
			input:   TransitionInput{Action: ActionMarkResolved, ActorID: tech, ActorRole: RoleTechnician, Reason: "  "},
			wantErr: apperrors.ErrSummaryRequired,
		},
		{
			name:   "dispatcher closes resolved ticket",
			ticket: newTestTicket(StatusResolved, creator, ptr(tech)),
			input:  TransitionInput{Action: ActionClose, ActorID: dispatcher, ActorRole: RoleDispatcher},
		},
		{
			name:   "creator rejects resolution",
			ticket: newTestTicket(StatusResolved, creator, ptr(tech)),
			input:  TransitionInput{Action: ActionReject, ActorID: creator, ActorRole: RoleRequester, Reason: "Le probleme persiste"},
		},
		{
			name:    "non-creator cannot reject",
			ticket:  newTestTicket(StatusResolved, creator, ptr(tech)),
			input:   TransitionInput{Action: ActionReject, ActorID: dispatcher, ActorRole: RoleDispatcher, Reason: "non"},
			wantErr: apperrors.ErrForbidden,
		},
		{
			name:   "dispatcher reopens rejected ticket",
			ticket: newTestTicket(StatusRejected, creator, nil),
			input: TransitionInput{
				Action: ActionReopen, ActorID: dispatcher, ActorRole: RoleDispatcher,
				TechnicianID: ptr(tech), Reason: "Reprise apres rejet",
			},
		},
		{
			name:    "closed ticket accepts nothing",
			ticket:  newTestTicket(StatusClosed, creator, nil),
			input:   TransitionInput{Action: ActionReopen, ActorID: dispatcher, ActorRole: RoleDispatcher, TechnicianID: ptr(tech), Reason: "r"},
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:    "illegal edge wins over missing rights",
			ticket:  newTestTicket(StatusClosed, creator, nil),
			input:   TransitionInput{Action: ActionAssign, ActorID: creator, ActorRole: RoleRequester},
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:   "comment requires a message",
			ticket: newTestTicket(StatusInProgress, creator, ptr(tech)),
			input: TransitionInput{
				Action: ActionComment, ActorID: tech, ActorRole: RoleTechnician,
			},
			wantErr: apperrors.ErrReasonRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ticket.Decide(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestApply(t *testing.T) {
	creator := uuid.New()
	tech := uuid.New()
	dispatcher := uuid.New()
	now := time.Now().UTC()

	t.Run("assign sets technician and timestamp", func(t *testing.T) {
		ticket := newTestTicket(StatusPendingAnalysis, creator, nil)
		err := ticket.Apply(TransitionInput{
			Action: ActionAssign, ActorID: dispatcher, ActorRole: RoleDispatcher, TechnicianID: ptr(tech),
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusAssigned, ticket.Status)
		require.NotNil(t, ticket.TechnicianID)
		assert.Equal(t, tech, *ticket.TechnicianID)
		require.NotNil(t, ticket.AssignedAt)
		assert.Equal(t, now, *ticket.AssignedAt)
	})

	t.Run("reassign keeps first assignment timestamp", func(t *testing.T) {
		firstAssign := now.Add(-30 * time.Minute)
		ticket := newTestTicket(StatusAssigned, creator, ptr(tech))
		ticket.AssignedAt = &firstAssign
		other := uuid.New()
		err := ticket.Apply(TransitionInput{
			Action: ActionReassign, ActorID: dispatcher, ActorRole: RoleDispatcher,
			TechnicianID: ptr(other), Reason: "Charge trop elevee",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusAssigned, ticket.Status)
		assert.Equal(t, other, *ticket.TechnicianID)
		assert.Equal(t, firstAssign, *ticket.AssignedAt)
	})

	t.Run("escalate bumps priority without changing status", func(t *testing.T) {
		ticket := newTestTicket(StatusInProgress, creator, ptr(tech))
		ticket.Priority = PriorityHigh
		err := ticket.Apply(TransitionInput{
			Action: ActionEscalate, ActorID: dispatcher, ActorRole: RoleDispatcher,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, ticket.Status)
		assert.Equal(t, PriorityCritical, ticket.Priority)
	})

	t.Run("mark resolved stamps resolved_at once", func(t *testing.T) {
		ticket := newTestTicket(StatusInProgress, creator, ptr(tech))
		err := ticket.Apply(TransitionInput{
			Action: ActionMarkResolved, ActorID: tech, ActorRole: RoleTechnician, Reason: "Pilote reinstalle",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusResolved, ticket.Status)
		require.NotNil(t, ticket.ResolvedAt)
		assert.Equal(t, now, *ticket.ResolvedAt)

		// A second resolution after a reject cycle keeps the original stamp.
		ticket.Status = StatusInProgress
		later := now.Add(time.Hour)
		err = ticket.Apply(TransitionInput{
			Action: ActionMarkResolved, ActorID: tech, ActorRole: RoleTechnician, Reason: "Nouvelle tentative",
		}, later)
		require.NoError(t, err)
		assert.Equal(t, now, *ticket.ResolvedAt)
		assert.Equal(t, later, *ticket.UpdatedAt)
	})

	t.Run("reject clears technician", func(t *testing.T) {
		ticket := newTestTicket(StatusResolved, creator, ptr(tech))
		err := ticket.Apply(TransitionInput{
			Action: ActionReject, ActorID: creator, ActorRole: RoleRequester, Reason: "Le probleme persiste",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, ticket.Status)
		assert.Nil(t, ticket.TechnicianID)
	})

	t.Run("reopen goes straight to in progress", func(t *testing.T) {
		ticket := newTestTicket(StatusRejected, creator, nil)
		err := ticket.Apply(TransitionInput{
			Action: ActionReopen, ActorID: dispatcher, ActorRole: RoleDispatcher,
			TechnicianID: ptr(tech), Reason: "Reprise",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, ticket.Status)
		assert.Equal(t, tech, *ticket.TechnicianID)
	})

	t.Run("close stamps closed_at", func(t *testing.T) {
		ticket := newTestTicket(StatusResolved, creator, ptr(tech))
		err := ticket.Apply(TransitionInput{
			Action: ActionClose, ActorID: dispatcher, ActorRole: RoleDispatcher,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, StatusClosed, ticket.Status)
		require.NotNil(t, ticket.ClosedAt)
		assert.True(t, ticket.Status.IsTerminal())
	})

	t.Run("failed decide leaves ticket untouched", func(t *testing.T) {
		ticket := newTestTicket(StatusPendingAnalysis, creator, nil)
		err := ticket.Apply(TransitionInput{
			Action: ActionAssign, ActorID: creator, ActorRole: RoleRequester, TechnicianID: ptr(tech),
		}, now)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Equal(t, StatusPendingAnalysis, ticket.Status)
		assert.Nil(t, ticket.TechnicianID)
		assert.Nil(t, ticket.UpdatedAt)
	})
}

func TestCanApply(t *testing.T) {
	creator := uuid.New()
	tech := uuid.New()
	dispatcher := uuid.New()

	t.Run("missing input does not hide a legal action", func(t *testing.T) {
		ticket := newTestTicket(StatusPendingAnalysis, creator, nil)
		// Assign needs a technician the caller has not picked yet.
		assert.True(t, ticket.CanApply(ActionAssign, dispatcher, RoleDispatcher))
	})

	t.Run("forbidden actor", func(t *testing.T) {
		ticket := newTestTicket(StatusPendingAnalysis, creator, nil)
		assert.False(t, ticket.CanApply(ActionAssign, creator, RoleRequester))
	})

	t.Run("illegal edge", func(t *testing.T) {
		ticket := newTestTicket(StatusClosed, creator, nil)
		assert.False(t, ticket.CanApply(ActionReopen, dispatcher, RoleDispatcher))
	})

	t.Run("assignee only", func(t *testing.T) {
		ticket := newTestTicket(StatusInProgress, creator, ptr(tech))
		assert.True(t, ticket.CanApply(ActionMarkResolved, tech, RoleTechnician))
		assert.False(t, ticket.CanApply(ActionMarkResolved, uuid.New(), RoleTechnician))
	})
}
