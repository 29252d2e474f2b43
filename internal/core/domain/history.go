package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable row of the ticket ledger. Entries are
// append-only; comment and request_info actions record an entry whose
// old and new status are identical.
type HistoryEntry struct {
	ID        uuid.UUID
	TicketID  uuid.UUID
	Action    TicketAction
	OldStatus TicketStatus
	NewStatus TicketStatus
	// ActorID is uuid.Nil when the change was made by the background
	// sweeper rather than a user.
	ActorID   uuid.UUID
	Reason    string
	CreatedAt time.Time
}

func NewHistoryEntry(ticketID uuid.UUID, action TicketAction, oldStatus, newStatus TicketStatus, actorID uuid.UUID, reason string, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:        uuid.New(),
		TicketID:  ticketID,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ActorID:   actorID,
		Reason:    reason,
		CreatedAt: at,
	}
}
