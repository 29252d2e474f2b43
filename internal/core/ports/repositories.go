package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
)

// TicketFilter narrows ticket listings. Nil fields are ignored.
type TicketFilter struct {
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	CreatorID    *uuid.UUID
	TechnicianID *uuid.UUID
	Limit        int
	Offset       int
}

type TicketRepository interface {
	// Create inserts the ticket and fills in the sequential display
	// number generated by the database.
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, int64, error)
	// UpdateVersioned persists the ticket only if the stored version
	// still matches ticket.Version, then bumps it. A lost race returns
	// ErrStaleState.
	UpdateVersioned(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	// ListEscalatable returns open tickets of the given priority created
	// before the cutoff, for the background sweeper.
	ListEscalatable(ctx context.Context, priority domain.TicketPriority, cutoff time.Time) ([]*domain.Ticket, error)
	// ListResolvedBefore returns RESOLU tickets whose resolution
	// predates the cutoff and that were never validated by the creator.
	ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Ticket, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.HistoryEntry, error)
	// LatestRejectionReason returns the reason of the most recent entry
	// that moved the ticket to REJETE, or ErrNotFound when none exists.
	LatestRejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error)
	// WasResumed reports whether the ticket ever moved REJETE -> EN_COURS.
	WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error)
}

type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	// MarkRead flags the notification as read. Marking an already read
	// notification succeeds without changing ReadAt.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)
	// ListSentTypes returns which of the given types already exist for
	// the ticket and recipient, deduplicated.
	ListSentTypes(ctx context.Context, ticketID, recipientID uuid.UUID, types []domain.NotificationType) ([]domain.NotificationType, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListActiveByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	ListTechnicianWorkloads(ctx context.Context) ([]*domain.TechnicianWorkload, error)
}

// TransactionManager runs fn inside a database transaction. The context
// passed to fn carries the transaction; repositories detect it and run
// their statements on it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
