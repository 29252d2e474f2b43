package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
)

// TicketStatus values match the wire and database representation used by
// the original DSI helpdesk, hence the French constants.
type TicketStatus string

const (
	StatusPendingAnalysis TicketStatus = "EN_ATTENTE_ANALYSE"
	StatusAssigned        TicketStatus = "ASSIGNE_TECHNICIEN"
	StatusInProgress      TicketStatus = "EN_COURS"
	StatusResolved        TicketStatus = "RESOLU"
	StatusClosed          TicketStatus = "CLOTURE"
	StatusRejected        TicketStatus = "REJETE"
)

func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusPendingAnalysis, StatusAssigned, StatusInProgress,
		StatusResolved, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further action can move the ticket.
// CLOTURE is the only terminal status; REJETE can still be reopened.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusClosed
}

type TicketPriority string

const (
	PriorityLow      TicketPriority = "FAIBLE"
	PriorityMedium   TicketPriority = "MOYENNE"
	PriorityHigh     TicketPriority = "HAUTE"
	PriorityCritical TicketPriority = "CRITIQUE"
)

func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Escalated returns the next rung of the priority ladder. CRITIQUE
// saturates: escalating it again returns CRITIQUE unchanged.
func (p TicketPriority) Escalated() TicketPriority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh, PriorityCritical:
		return PriorityCritical
	}
	return p
}

type TicketCategory string

const (
	CategoryHardware TicketCategory = "MATERIEL"
	CategorySoftware TicketCategory = "APPLICATIF"
)

func (c TicketCategory) IsValid() bool {
	return c == CategoryHardware || c == CategorySoftware
}

// TicketAction names every operation that can be applied to a ticket
// after creation.
type TicketAction string

const (
	ActionAssign       TicketAction = "assign"
	ActionReassign     TicketAction = "reassign"
	ActionEscalate     TicketAction = "escalate"
	ActionTakeCharge   TicketAction = "take_charge"
	ActionComment      TicketAction = "comment"
	ActionRequestInfo  TicketAction = "request_info"
	ActionMarkResolved TicketAction = "mark_resolved"
	ActionClose        TicketAction = "close"
	ActionReject       TicketAction = "reject"
	ActionReopen       TicketAction = "reopen"
)

type Ticket struct {
	ID           uuid.UUID
	Number       int64
	Title        string
	Description  string
	Category     TicketCategory
	Priority     TicketPriority
	Status       TicketStatus
	CreatorID    uuid.UUID
	TechnicianID *uuid.UUID
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	AssignedAt   *time.Time
	ResolvedAt   *time.Time
	ClosedAt     *time.Time
	AutoClosedAt *time.Time
}

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
)

// NewTicket creates a ticket in its initial status. The sequential
// display number is filled in by the repository at insert time.
func NewTicket(title, description string, category TicketCategory, priority TicketPriority, creatorID uuid.UUID) (*Ticket, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if !category.IsValid() {
		return nil, apperrors.ErrInvalidCategory
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.ErrInvalidPriority
	}
	if creatorID == uuid.Nil {
		return nil, apperrors.ErrCreatorRequired
	}

	return &Ticket{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    category,
		Priority:    priority,
		Status:      StatusPendingAnalysis,
		CreatorID:   creatorID,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// TransitionInput carries everything the engine needs to decide and
// apply one action.
type TransitionInput struct {
	Action       TicketAction
	ActorID      uuid.UUID
	ActorRole    Role
	TechnicianID *uuid.UUID
	Reason       string
}

// transitionRule describes one legal (status, action) edge.
type transitionRule struct {
	next           TicketStatus // empty means the status does not change
	role           Role         // empty means any authenticated role
	assigneeOnly   bool         // actor must be the assigned technician
	creatorOnly    bool         // actor must be the ticket creator
	needsTech      bool
	needsReason    bool
	clearsTech     bool
	escalates      bool
	recordsComment bool
}

type transitionKey struct {
	status TicketStatus
	action TicketAction
}

var transitionTable = map[transitionKey]transitionRule{
	{StatusPendingAnalysis, ActionAssign}:   {next: StatusAssigned, role: RoleDispatcher, needsTech: true},
	{StatusPendingAnalysis, ActionEscalate}: {role: RoleDispatcher, escalates: true},

	{StatusAssigned, ActionReassign}:   {role: RoleDispatcher, needsTech: true, needsReason: true},
	{StatusAssigned, ActionEscalate}:   {role: RoleDispatcher, escalates: true},
	{StatusAssigned, ActionTakeCharge}: {next: StatusInProgress, role: RoleTechnician, assigneeOnly: true},

	{StatusInProgress, ActionReassign}:     {role: RoleDispatcher, needsTech: true, needsReason: true},
	{StatusInProgress, ActionEscalate}:     {role: RoleDispatcher, escalates: true},
	{StatusInProgress, ActionComment}:      {role: RoleTechnician, assigneeOnly: true, needsReason: true, recordsComment: true},
	{StatusInProgress, ActionRequestInfo}:  {role: RoleTechnician, assigneeOnly: true, needsReason: true, recordsComment: true},
	{StatusInProgress, ActionMarkResolved}: {next: StatusResolved, role: RoleTechnician, assigneeOnly: true, needsReason: true},

	{StatusResolved, ActionClose}:  {next: StatusClosed, role: RoleDispatcher},
	{StatusResolved, ActionReject}: {next: StatusRejected, creatorOnly: true, needsReason: true, clearsTech: true},

	{StatusRejected, ActionReopen}: {next: StatusInProgress, role: RoleDispatcher, needsTech: true, needsReason: true},
}

// Decide checks a transition without mutating the ticket. The edge is
// checked before the actor so that an impossible action reports
// ErrInvalidTransition even when the caller also lacks the rights.
func (t *Ticket) Decide(in TransitionInput) error {
	rule, ok := transitionTable[transitionKey{t.Status, in.Action}]
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	if rule.role != "" && in.ActorRole != rule.role {
		return apperrors.ErrForbidden
	}
	if rule.assigneeOnly {
		if t.TechnicianID == nil || *t.TechnicianID != in.ActorID {
			return apperrors.ErrForbidden
		}
	}
	if rule.creatorOnly && t.CreatorID != in.ActorID {
		return apperrors.ErrForbidden
	}
	if rule.needsTech && (in.TechnicianID == nil || *in.TechnicianID == uuid.Nil) {
		return apperrors.ErrTechnicianRequired
	}
	if rule.needsReason && strings.TrimSpace(in.Reason) == "" {
		if in.Action == ActionMarkResolved {
			return apperrors.ErrSummaryRequired
		}
		return apperrors.ErrReasonRequired
	}
	return nil
}

// Apply mutates the ticket according to the transition table. The
// lifecycle timestamps are written only the first time the matching
// status is entered. Version is bumped by the repository, not here.
func (t *Ticket) Apply(in TransitionInput, now time.Time) error {
	if err := t.Decide(in); err != nil {
		return err
	}
	rule := transitionTable[transitionKey{t.Status, in.Action}]

	if rule.escalates {
		t.Priority = t.Priority.Escalated()
	}
	if rule.needsTech {
		t.TechnicianID = in.TechnicianID
		if t.AssignedAt == nil {
			t.AssignedAt = &now
		}
	}
	if rule.clearsTech {
		t.TechnicianID = nil
	}
	if rule.next != "" {
		t.Status = rule.next
		switch rule.next {
		case StatusResolved:
			if t.ResolvedAt == nil {
				t.ResolvedAt = &now
			}
		case StatusClosed:
			if t.ClosedAt == nil {
				t.ClosedAt = &now
			}
		}
	}
	t.UpdatedAt = &now
	return nil
}

// CanApply reports whether the action is currently legal for the actor,
// ignoring missing-input errors. Used by list endpoints to decorate
// tickets with the actions a user may take.
func (t *Ticket) CanApply(action TicketAction, actorID uuid.UUID, role Role) bool {
	err := t.Decide(TransitionInput{Action: action, ActorID: actorID, ActorRole: role})
	if err == nil {
		return true
	}
	return errors.Is(err, apperrors.ErrMissingRequiredField)
}
