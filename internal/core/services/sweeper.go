package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// Sweeper periodically escalates overdue tickets, reminds requesters
// to validate resolved tickets, and closes tickets never validated.
// Escalations and closes reuse the regular transition path, so history
// and notifications stay consistent with user-driven changes. It acts
// as a dispatch-role system actor with a nil user id.
type Sweeper struct {
	service        *TicketService
	tickets        ports.TicketRepository
	notifications  ports.NotificationService
	users          ports.UserRepository
	notifier       ports.Notifier
	maxResolution  map[domain.TicketPriority]time.Duration
	autoCloseAfter time.Duration
	interval       time.Duration
	logger         *slog.Logger

	stop chan struct{}
	done chan struct{}
}

func NewSweeper(
	service *TicketService,
	tickets ports.TicketRepository,
	notifications ports.NotificationService,
	users ports.UserRepository,
	notifier ports.Notifier,
	maxResolution map[domain.TicketPriority]time.Duration,
	autoCloseAfter time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		service:        service,
		tickets:        tickets,
		notifications:  notifications,
		users:          users,
		notifier:       notifier,
		maxResolution:  maxResolution,
		autoCloseAfter: autoCloseAfter,
		interval:       interval,
		logger:         logger,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				if err := s.RunOnce(ctx); err != nil {
					s.logger.Error("sweep failed", "error", err)
				}
				cancel()
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce executes one sweep. It is exported so operators can trigger
// it out of band.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if err := s.escalateOverdue(ctx); err != nil {
		return err
	}
	if err := s.remindUnvalidated(ctx); err != nil {
		return err
	}
	return s.closeUnvalidated(ctx)
}

func systemActor() ports.Actor {
	return ports.Actor{ID: uuid.Nil, Role: domain.RoleDispatcher}
}

func (s *Sweeper) escalateOverdue(ctx context.Context) error {
	now := time.Now().UTC()
	// CRITIQUE is already the top of the ladder, escalating it again
	// would only spam the ledger.
	for _, priority := range []domain.TicketPriority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh} {
		maxAge, ok := s.maxResolution[priority]
		if !ok {
			continue
		}
		overdue, err := s.tickets.ListEscalatable(ctx, priority, now.Add(-maxAge))
		if err != nil {
			return fmt.Errorf("list escalatable %s tickets: %w", priority, err)
		}
		for _, ticket := range overdue {
			_, err := s.service.applyTransition(ctx, systemActor(), ticket.ID, domain.TransitionInput{
				Action: domain.ActionEscalate,
			}, false)
			if err != nil {
				if errors.Is(err, apperrors.ErrStaleState) {
					// Someone else moved it; the next sweep will catch up.
					continue
				}
				s.logger.Error("auto escalation failed", "ticket_id", ticket.ID, "error", err)
				continue
			}
			s.logger.Info("ticket auto escalated", "ticket_id", ticket.ID, "ticket_number", ticket.Number, "from_priority", priority)
		}
	}
	return nil
}

// remindUnvalidated nudges requesters whose resolved tickets still
// await validation. The notification service picks the reminder level
// and skips levels already sent, so reruns never duplicate.
func (s *Sweeper) remindUnvalidated(ctx context.Context) error {
	now := time.Now().UTC()
	pending, err := s.tickets.ListResolvedBefore(ctx, now.Add(-validationReminders[0].after))
	if err != nil {
		return fmt.Errorf("list unvalidated resolved tickets: %w", err)
	}
	for _, ticket := range pending {
		notif, err := s.notifications.RemindValidation(ctx, ticket, now)
		if err != nil {
			s.logger.Error("validation reminder failed", "ticket_id", ticket.ID, "error", err)
			continue
		}
		if notif == nil {
			continue
		}
		s.emailReminder(ctx, ticket, notif)
	}
	return nil
}

func (s *Sweeper) emailReminder(ctx context.Context, ticket *domain.Ticket, notif *domain.Notification) {
	if s.notifier == nil {
		return
	}
	creator, err := s.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		s.logger.Warn("reminder recipient lookup failed", "user_id", ticket.CreatorID, "error", err)
		return
	}
	err = s.notifier.Notify(ctx, ports.NotifierParams{
		To:      creator.Email,
		Subject: fmt.Sprintf("Rappel de validation du ticket #%d", ticket.Number),
		Body:    notif.Message,
	})
	if err != nil {
		s.logger.Warn("reminder email failed", "user_id", creator.ID, "error", err)
	}
}

func (s *Sweeper) closeUnvalidated(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.autoCloseAfter)
	stale, err := s.tickets.ListResolvedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list unvalidated resolved tickets: %w", err)
	}
	for _, ticket := range stale {
		_, err := s.service.applyTransition(ctx, systemActor(), ticket.ID, domain.TransitionInput{
			Action: domain.ActionClose,
			Reason: "Clôture automatique sans validation du demandeur",
		}, true)
		if err != nil {
			if errors.Is(err, apperrors.ErrStaleState) {
				continue
			}
			s.logger.Error("auto close failed", "ticket_id", ticket.ID, "error", err)
			continue
		}
		s.logger.Info("ticket auto closed", "ticket_id", ticket.ID, "ticket_number", ticket.Number)
	}
	return nil
}
