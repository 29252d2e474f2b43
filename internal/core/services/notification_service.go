package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// NotificationService synthesizes per-recipient notifications from
// ticket transitions and serves the notification inbox. Dispatch runs
// inside the caller's transaction; the repository picks the tx up from
// the context.
type NotificationService struct {
	notifications ports.NotificationRepository
	users         ports.UserRepository
	logger        *slog.Logger
}

var _ ports.NotificationService = (*NotificationService)(nil)

func NewNotificationService(notifications ports.NotificationRepository, users ports.UserRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
}

// recipientSet accumulates notifications while deduplicating
// recipients. The actor never receives a notification about their own
// action, and the sweeper's nil actor matches nobody.
type recipientSet struct {
	actorID uuid.UUID
	seen    map[uuid.UUID]bool
	notifs  []*domain.Notification
}

func newRecipientSet(actorID uuid.UUID) *recipientSet {
	return &recipientSet{actorID: actorID, seen: make(map[uuid.UUID]bool)}
}

func (r *recipientSet) add(recipientID uuid.UUID, ticket *domain.Ticket, kind domain.NotificationType, message string, event ports.TransitionEvent) {
	if recipientID == uuid.Nil || recipientID == r.actorID || r.seen[recipientID] {
		return
	}
	r.seen[recipientID] = true
	r.notifs = append(r.notifs, domain.NewNotification(recipientID, ticket, kind, message, event.At))
}

func (s *NotificationService) Dispatch(ctx context.Context, event ports.TransitionEvent) ([]*domain.Notification, error) {
	t := event.Ticket
	set := newRecipientSet(event.ActorID)

	switch event.Action {
	case domain.ActionAssign:
		if t.TechnicianID != nil {
			set.add(*t.TechnicianID, t, domain.NotificationTicketAssigned,
				fmt.Sprintf("Le ticket #%d vous a été assigné", t.Number), event)
		}
		set.add(t.CreatorID, t, domain.NotificationTicketAssigned,
			fmt.Sprintf("Votre ticket #%d a été assigné à un technicien", t.Number), event)

	case domain.ActionReassign:
		if t.TechnicianID != nil {
			set.add(*t.TechnicianID, t, domain.NotificationTicketReassigned,
				fmt.Sprintf("Le ticket #%d vous a été réassigné", t.Number), event)
		}
		if event.OldTechnicianID != nil {
			set.add(*event.OldTechnicianID, t, domain.NotificationTicketReassigned,
				fmt.Sprintf("Le ticket #%d a été réassigné à un autre technicien", t.Number), event)
		}
		set.add(t.CreatorID, t, domain.NotificationTicketReassigned,
			fmt.Sprintf("Votre ticket #%d a été réassigné", t.Number), event)

	case domain.ActionEscalate:
		msg := fmt.Sprintf("Le ticket #%d a été escaladé en priorité %s", t.Number, t.Priority)
		dispatchers, err := s.users.ListActiveByRole(ctx, domain.RoleDispatcher)
		if err != nil {
			return nil, err
		}
		for _, d := range dispatchers {
			set.add(d.ID, t, domain.NotificationTicketEscalated, msg, event)
		}
		if t.TechnicianID != nil {
			set.add(*t.TechnicianID, t, domain.NotificationTicketEscalated, msg, event)
		}
		set.add(t.CreatorID, t, domain.NotificationTicketEscalated, msg, event)

	case domain.ActionTakeCharge:
		set.add(t.CreatorID, t, domain.NotificationTicketInProgress,
			fmt.Sprintf("Votre ticket #%d est en cours de traitement", t.Number), event)

	case domain.ActionComment:
		set.add(t.CreatorID, t, domain.NotificationTicketComment,
			fmt.Sprintf("Nouveau commentaire sur votre ticket #%d", t.Number), event)

	case domain.ActionRequestInfo:
		set.add(t.CreatorID, t, domain.NotificationTicketComment,
			fmt.Sprintf("Le technicien demande des informations complémentaires sur votre ticket #%d", t.Number), event)

	case domain.ActionMarkResolved:
		set.add(t.CreatorID, t, domain.NotificationTicketResolved,
			fmt.Sprintf("Votre ticket #%d a été résolu, merci de valider la résolution", t.Number), event)

	case domain.ActionClose:
		kind := domain.NotificationTicketClosed
		creatorMsg := fmt.Sprintf("Votre ticket #%d a été clôturé", t.Number)
		if event.AutoClosed {
			kind = domain.NotificationTicketAutoClosed
			creatorMsg = fmt.Sprintf("Votre ticket #%d a été clôturé automatiquement sans validation du demandeur", t.Number)
		}
		set.add(t.CreatorID, t, kind, creatorMsg, event)
		if t.TechnicianID != nil {
			set.add(*t.TechnicianID, t, kind,
				fmt.Sprintf("Le ticket #%d a été clôturé", t.Number), event)
		}

	case domain.ActionReject:
		if event.OldTechnicianID != nil {
			set.add(*event.OldTechnicianID, t, domain.NotificationTicketRejected,
				fmt.Sprintf("La résolution du ticket #%d a été refusée par le demandeur", t.Number), event)
		}
		dispatchers, err := s.users.ListActiveByRole(ctx, domain.RoleDispatcher)
		if err != nil {
			return nil, err
		}
		for _, d := range dispatchers {
			set.add(d.ID, t, domain.NotificationTicketRejected,
				fmt.Sprintf("Le ticket #%d a été rejeté et nécessite une nouvelle analyse", t.Number), event)
		}

	case domain.ActionReopen:
		if t.TechnicianID != nil {
			set.add(*t.TechnicianID, t, domain.NotificationTicketReopened,
				fmt.Sprintf("Le ticket #%d vous a été assigné après rejet de la résolution", t.Number), event)
		}
		set.add(t.CreatorID, t, domain.NotificationTicketReopened,
			fmt.Sprintf("Votre ticket #%d a été relancé", t.Number), event)
	}

	if len(set.notifs) == 0 {
		return nil, nil
	}
	if err := s.notifications.CreateBatch(ctx, set.notifs); err != nil {
		return nil, err
	}
	return set.notifs, nil
}

func (s *NotificationService) DispatchCreated(ctx context.Context, ticket *domain.Ticket) ([]*domain.Notification, error) {
	dispatchers, err := s.users.ListActiveByRole(ctx, domain.RoleDispatcher)
	if err != nil {
		return nil, err
	}
	set := newRecipientSet(ticket.CreatorID)
	msg := fmt.Sprintf("Nouveau ticket #%d: %s", ticket.Number, ticket.Title)
	event := ports.TransitionEvent{At: ticket.CreatedAt}
	for _, d := range dispatchers {
		set.add(d.ID, ticket, domain.NotificationTicketCreated, msg, event)
	}
	if len(set.notifs) == 0 {
		return nil, nil
	}
	if err := s.notifications.CreateBatch(ctx, set.notifs); err != nil {
		return nil, err
	}
	return set.notifs, nil
}

// validationReminders is the reminder ladder for resolved tickets the
// requester has not validated yet. Level order matters: the lowest
// unsent level whose delay has elapsed goes out first, one per sweep.
var validationReminders = []struct {
	kind    domain.NotificationType
	after   time.Duration
	message string
}{
	{domain.NotificationValidationReminder1, 3 * 24 * time.Hour, "Rappel : Veuillez valider la résolution de votre ticket #%d"},
	{domain.NotificationValidationReminder2, 7 * 24 * time.Hour, "Second rappel : Validation requise pour votre ticket #%d"},
	{domain.NotificationValidationReminder3, 10 * 24 * time.Hour, "Dernier rappel : Veuillez valider votre ticket #%d"},
}

func (s *NotificationService) RemindValidation(ctx context.Context, ticket *domain.Ticket, now time.Time) (*domain.Notification, error) {
	if ticket.Status != domain.StatusResolved || ticket.ResolvedAt == nil {
		return nil, nil
	}

	kinds := make([]domain.NotificationType, len(validationReminders))
	for i, r := range validationReminders {
		kinds[i] = r.kind
	}
	sent, err := s.notifications.ListSentTypes(ctx, ticket.ID, ticket.CreatorID, kinds)
	if err != nil {
		return nil, err
	}
	alreadySent := make(map[domain.NotificationType]bool, len(sent))
	for _, kind := range sent {
		alreadySent[kind] = true
	}

	elapsed := now.Sub(*ticket.ResolvedAt)
	for _, r := range validationReminders {
		if elapsed < r.after || alreadySent[r.kind] {
			continue
		}
		notif := domain.NewNotification(ticket.CreatorID, ticket, r.kind, fmt.Sprintf(r.message, ticket.Number), now)
		if err := s.notifications.CreateBatch(ctx, []*domain.Notification{notif}); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "validation reminder sent",
			"ticket_id", ticket.ID,
			"ticket_number", ticket.Number,
			"reminder", notif.Type,
		)
		return notif, nil
	}
	return nil, nil
}

func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, onlyUnread, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.notifications.CountUnread(ctx, recipientID)
}

func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*domain.Notification, error) {
	return s.notifications.MarkRead(ctx, notificationID, recipientID)
}
