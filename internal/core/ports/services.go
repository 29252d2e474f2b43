package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
)

// Actor identifies the authenticated user performing an operation, as
// decoded from the JWT claims.
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

type CreateTicketParams struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

type ListTicketsParams struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Mine     bool // restrict to tickets created by the actor
	Assigned bool // restrict to tickets assigned to the actor
	Limit    int
	Offset   int
}

type TicketService interface {
	Create(ctx context.Context, actor Actor, params CreateTicketParams) (*domain.Ticket, error)
	GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Ticket, error)
	List(ctx context.Context, actor Actor, params ListTicketsParams) ([]*domain.Ticket, int64, error)

	Assign(ctx context.Context, actor Actor, ticketID, technicianID uuid.UUID) (*domain.Ticket, error)
	Reassign(ctx context.Context, actor Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error)
	Escalate(ctx context.Context, actor Actor, ticketID uuid.UUID) (*domain.Ticket, error)
	TakeCharge(ctx context.Context, actor Actor, ticketID uuid.UUID) (*domain.Ticket, error)
	Comment(ctx context.Context, actor Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error)
	RequestInfo(ctx context.Context, actor Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error)
	Resolve(ctx context.Context, actor Actor, ticketID uuid.UUID, summary string) (*domain.Ticket, error)
	Close(ctx context.Context, actor Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error)
	Reject(ctx context.Context, actor Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error)
	Reopen(ctx context.Context, actor Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error)

	// Shutdown waits for in-flight post-commit work (broadcasts, email
	// notifications) to finish.
	Shutdown()
}

type HistoryService interface {
	ListByTicket(ctx context.Context, actor Actor, ticketID uuid.UUID) ([]*domain.HistoryEntry, error)
	RejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error)
	WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error)
}

// TransitionEvent describes one committed (or about to commit) ticket
// transition, with enough pre-transition state to address every
// recipient of the fan-out.
type TransitionEvent struct {
	Ticket          *domain.Ticket // post-transition state
	Action          domain.TicketAction
	OldStatus       domain.TicketStatus
	OldTechnicianID *uuid.UUID
	ActorID         uuid.UUID
	Reason          string
	At              time.Time
	AutoClosed      bool
}

type NotificationService interface {
	// Dispatch synthesizes and persists the per-recipient notifications
	// for a transition. It must run inside the same transaction as the
	// ticket update so the fan-out commits or rolls back atomically.
	Dispatch(ctx context.Context, event TransitionEvent) ([]*domain.Notification, error)
	// DispatchCreated notifies all active dispatch users of a new ticket.
	DispatchCreated(ctx context.Context, ticket *domain.Ticket) ([]*domain.Notification, error)
	// RemindValidation sends the creator of a resolved ticket the next
	// pending validation reminder, at most one per call. Returns nil
	// when no reminder is due.
	RemindValidation(ctx context.Context, ticket *domain.Ticket, now time.Time) (*domain.Notification, error)

	List(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*domain.Notification, error)
}

type AssignmentService interface {
	// ResolveTechnician validates that the id refers to an active user
	// with the technician role.
	ResolveTechnician(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// ListTechnicians returns the technician directory with workload
	// counts. The counts inform dispatchers; no cap is enforced.
	ListTechnicians(ctx context.Context, actor Actor) ([]*domain.TechnicianWorkload, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// EventBroadcaster pushes realtime events to connected clients. The
// hub is a best-effort layer on top of the persisted notifications.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// NotifierParams carries an outbound email notification.
type NotifierParams struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers out-of-band notifications (email). Failures are
// logged, never propagated to the caller of a transition.
type Notifier interface {
	Notify(ctx context.Context, params NotifierParams) error
}
