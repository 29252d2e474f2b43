package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// MockTicketService backs handler tests that only exercise the HTTP
// layer.
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) Create(ctx context.Context, actor ports.Actor, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetByID(ctx context.Context, actor ports.Actor, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) List(ctx context.Context, actor ports.Actor, params ports.ListTicketsParams) ([]*domain.Ticket, int64, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Ticket), args.Get(1).(int64), args.Error(2)
}

func (m *MockTicketService) Assign(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, technicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Reassign(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, technicianID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Escalate(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) TakeCharge(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Comment(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) RequestInfo(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, message string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Resolve(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, summary string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, summary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Close(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Reject(ctx context.Context, actor ports.Actor, ticketID uuid.UUID, reason string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Reopen(ctx context.Context, actor ports.Actor, ticketID, technicianID uuid.UUID, reason string) (*domain.Ticket, error) {
	args := m.Called(ctx, actor, ticketID, technicianID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) Shutdown() {
	m.Called()
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListByTicket(ctx context.Context, actor ports.Actor, ticketID uuid.UUID) ([]*domain.HistoryEntry, error) {
	args := m.Called(ctx, actor, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HistoryEntry), args.Error(1)
}

func (m *MockHistoryService) RejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error) {
	args := m.Called(ctx, ticketID)
	return args.String(0), args.Error(1)
}

func (m *MockHistoryService) WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Bool(0), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, fullName, email, password string, role domain.Role) (*domain.User, error) {
	args := m.Called(ctx, fullName, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
