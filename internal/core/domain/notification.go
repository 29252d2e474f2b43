package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTicketCreated    NotificationType = "NOUVEAU_TICKET"
	NotificationTicketAssigned   NotificationType = "TICKET_ASSIGNE"
	NotificationTicketReassigned NotificationType = "TICKET_REASSIGNE"
	NotificationTicketEscalated  NotificationType = "TICKET_ESCALADE"
	NotificationTicketInProgress NotificationType = "TICKET_EN_COURS"
	NotificationTicketResolved   NotificationType = "TICKET_RESOLU"
	NotificationTicketClosed     NotificationType = "TICKET_CLOTURE"
	NotificationTicketAutoClosed NotificationType = "CLOTURE_AUTOMATIQUE"
	NotificationTicketRejected   NotificationType = "TICKET_REJETE"
	NotificationTicketReopened   NotificationType = "TICKET_RELANCE"
	NotificationTicketComment    NotificationType = "NOUVEAU_COMMENTAIRE"

	NotificationValidationReminder1 NotificationType = "RAPPEL_VALIDATION_1"
	NotificationValidationReminder2 NotificationType = "RAPPEL_VALIDATION_2"
	NotificationValidationReminder3 NotificationType = "RAPPEL_VALIDATION_3"
)

// Notification is a per-recipient record synthesized from a ticket
// transition. Read state is per notification, not per event.
type Notification struct {
	ID           uuid.UUID
	RecipientID  uuid.UUID
	TicketID     uuid.UUID
	TicketNumber int64
	Type         NotificationType
	Message      string
	Read         bool
	ReadAt       *time.Time
	CreatedAt    time.Time
}

func NewNotification(recipientID uuid.UUID, ticket *Ticket, kind NotificationType, message string, at time.Time) *Notification {
	return &Notification{
		ID:           uuid.New(),
		RecipientID:  recipientID,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Type:         kind,
		Message:      message,
		CreatedAt:    at,
	}
}
