package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// HistoryService reads the append-only transition ledger.
type HistoryService struct {
	history ports.HistoryRepository
	tickets ports.TicketRepository
}

var _ ports.HistoryService = (*HistoryService)(nil)

func NewHistoryService(history ports.HistoryRepository, tickets ports.TicketRepository) *HistoryService {
	return &HistoryService{history: history, tickets: tickets}
}

func (s *HistoryService) ListByTicket(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) ([]*domain.HistoryEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canView(ticket, actor) {
		return nil, apperrors.ErrForbidden
	}
	return s.history.ListByTicket(ctx, ticketID)
}

func (s *HistoryService) RejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error) {
	return s.history.LatestRejectionReason(ctx, ticketID)
}

func (s *HistoryService) WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	return s.history.WasResumed(ctx, ticketID)
}
