package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// TicketService orchestrates ticket transitions. Every transition runs
// in one database transaction: the versioned ticket update, the history
// entry and the notification fan-out commit or roll back together.
// Broadcasts and emails happen after commit and never fail a request.
type TicketService struct {
	tickets       ports.TicketRepository
	history       ports.HistoryRepository
	notifications ports.NotificationService
	assignments   ports.AssignmentService
	users         ports.UserRepository
	txm           ports.TransactionManager
	broadcaster   ports.EventBroadcaster
	notifier      ports.Notifier
	logger        *slog.Logger
	wg            sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

func NewTicketService(
	tickets ports.TicketRepository,
	history ports.HistoryRepository,
	notifications ports.NotificationService,
	assignments ports.AssignmentService,
	users ports.UserRepository,
	txm ports.TransactionManager,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		tickets:       tickets,
		history:       history,
		notifications: notifications,
		assignments:   assignments,
		users:         users,
		txm:           txm,
		broadcaster:   broadcaster,
		notifier:      notifier,
		logger:        logger,
	}
}

func (s *TicketService) Create(ctx context.Context, actor ports.Actor, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(params.Title, params.Description, params.Category, params.Priority, actor.ID)
	if err != nil {
		return nil, err
	}

	var (
		created *domain.Ticket
		notifs  []*domain.Notification
	)
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = s.tickets.Create(ctx, ticket)
		if txErr != nil {
			return txErr
		}
		notifs, txErr = s.notifications.DispatchCreated(ctx, created)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket created",
		"ticket_id", created.ID,
		"ticket_number", created.Number,
		"priority", created.Priority,
	)
	s.publish(domain.Event{
		Type:         "ticket_created",
		TicketID:     created.ID,
		TicketNumber: created.Number,
		Status:       string(created.Status),
		Priority:     string(created.Priority),
		Recipients:   recipientIDs(notifs),
	})
	return created, nil
}

func (s *TicketService) GetByID(ctx context.Context, actor ports.Actor, id uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(ticket, actor) {
		return nil, apperrors.ErrForbidden
	}
	return ticket, nil
}

func (s *TicketService) List(ctx context.Context, actor ports.Actor, params ports.ListTicketsParams) ([]*domain.Ticket, int64, error) {
	filter := ports.TicketFilter{
		Status:   params.Status,
		Priority: params.Priority,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	switch {
	case params.Mine:
		id := actor.ID
		filter.CreatorID = &id
	case params.Assigned:
		id := actor.ID
		filter.TechnicianID = &id
	case actor.Role == domain.RoleRequester:
		// Requesters only ever see their own tickets.
		id := actor.ID
		filter.CreatorID = &id
	case actor.Role == domain.RoleTechnician:
		id := actor.ID
		filter.TechnicianID = &id
	}
	return s.tickets.List(ctx, filter)
}

func (s *TicketService) Assign(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action:       domain.ActionAssign,
		TechnicianID: &technicianID,
	}, false)
}

func (s *TicketService) Reassign(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action:       domain.ActionReassign,
		TechnicianID: &technicianID,
		Reason:       reason,
	}, false)
}

func (s *TicketService) Escalate(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionEscalate,
	}, false)
}

func (s *TicketService) TakeCharge(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionTakeCharge,
	}, false)
}

func (s *TicketService) Comment(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionComment,
		Reason: message,
	}, false)
}

func (s *TicketService) RequestInfo(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionRequestInfo,
		Reason: message,
	}, false)
}

func (s *TicketService) Resolve(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, summary string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionMarkResolved,
		Reason: summary,
	}, false)
}

func (s *TicketService) Close(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionClose,
		Reason: reason,
	}, false)
}

func (s *TicketService) Reject(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action: domain.ActionReject,
		Reason: reason,
	}, false)
}

func (s *TicketService) Reopen(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error) {
	return s.applyTransition(ctx, actor, ticketID, domain.TransitionInput{
		Action:       domain.ActionReopen,
		TechnicianID: &technicianID,
		Reason:       reason,
	}, false)
}

// applyTransition is the single path every post-creation action goes
// through.
func (s *TicketService) applyTransition(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, in domain.TransitionInput, autoClosed bool) (*domain.Ticket, error) {
	in.ActorID = actor.ID
	in.ActorRole = actor.Role

	var (
		updated *domain.Ticket
		event   ports.TransitionEvent
		notifs  []*domain.Notification
	)
	err := s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		ticket, txErr := s.tickets.GetByID(ctx, ticketID)
		if txErr != nil {
			return txErr
		}
		if txErr = ticket.Decide(in); txErr != nil {
			return txErr
		}
		if in.TechnicianID != nil {
			if _, txErr = s.assignments.ResolveTechnician(ctx, *in.TechnicianID); txErr != nil {
				return txErr
			}
		}

		oldStatus := ticket.Status
		oldTechnician := clonePtr(ticket.TechnicianID)
		now := time.Now().UTC()

		if txErr = ticket.Apply(in, now); txErr != nil {
			return txErr
		}
		if autoClosed {
			ticket.AutoClosedAt = &now
		}

		updated, txErr = s.tickets.UpdateVersioned(ctx, ticket)
		if txErr != nil {
			return txErr
		}

		entry := domain.NewHistoryEntry(updated.ID, in.Action, oldStatus, updated.Status, in.ActorID, in.Reason, now)
		if txErr = s.history.Append(ctx, entry); txErr != nil {
			return txErr
		}

		event = ports.TransitionEvent{
			Ticket:          updated,
			Action:          in.Action,
			OldStatus:       oldStatus,
			OldTechnicianID: oldTechnician,
			ActorID:         in.ActorID,
			Reason:          in.Reason,
			At:              now,
			AutoClosed:      autoClosed,
		}
		notifs, txErr = s.notifications.Dispatch(ctx, event)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ticket transition applied",
		"ticket_id", updated.ID,
		"ticket_number", updated.Number,
		"action", in.Action,
		"old_status", event.OldStatus,
		"new_status", updated.Status,
	)
	s.publish(domain.Event{
		Type:         string(in.Action),
		TicketID:     updated.ID,
		TicketNumber: updated.Number,
		Status:       string(updated.Status),
		Priority:     string(updated.Priority),
		Recipients:   recipientIDs(notifs),
	})
	s.sendTransitionEmails(event)
	return updated, nil
}

func (s *TicketService) publish(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.broadcaster.Broadcast(event); err != nil {
			s.logger.Warn("event broadcast failed", "type", event.Type, "ticket_id", event.TicketID, "error", err)
		}
	}()
}

// sendTransitionEmails delivers the out-of-band mails the helpdesk
// sends on top of in-app notifications: the technician on assignment,
// the requester on resolution.
func (s *TicketService) sendTransitionEmails(event ports.TransitionEvent) {
	if s.notifier == nil {
		return
	}
	type mail struct {
		userID  uuid.UUID
		subject string
		body    string
	}
	var mails []mail
	t := event.Ticket
	switch event.Action {
	case domain.ActionAssign, domain.ActionReassign, domain.ActionReopen:
		if t.TechnicianID != nil {
			mails = append(mails, mail{
				userID:  *t.TechnicianID,
				subject: fmt.Sprintf("Ticket #%d assigné", t.Number),
				body:    fmt.Sprintf("Le ticket #%d (%s) vous a été assigné.", t.Number, t.Title),
			})
		}
	case domain.ActionMarkResolved:
		mails = append(mails, mail{
			userID:  t.CreatorID,
			subject: fmt.Sprintf("Ticket #%d résolu", t.Number),
			body:    fmt.Sprintf("Votre ticket #%d (%s) a été résolu. Merci de valider la résolution.", t.Number, t.Title),
		})
	default:
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, m := range mails {
			user, err := s.users.GetByID(ctx, m.userID)
			if err != nil {
				s.logger.Warn("email recipient lookup failed", "user_id", m.userID, "error", err)
				continue
			}
			err = s.notifier.Notify(ctx, ports.NotifierParams{To: user.Email, Subject: m.subject, Body: m.body})
			if err != nil {
				s.logger.Warn("email notification failed", "user_id", m.userID, "error", err)
			}
		}
	}()
}

// Shutdown blocks until post-commit goroutines have drained.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}

func canView(ticket *domain.Ticket, actor ports.Actor) bool {
	if actor.Role == domain.RoleDispatcher {
		return true
	}
	if ticket.CreatorID == actor.ID {
		return true
	}
	return ticket.TechnicianID != nil && *ticket.TechnicianID == actor.ID
}

func recipientIDs(notifs []*domain.Notification) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(notifs))
	for _, n := range notifs {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

func clonePtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
