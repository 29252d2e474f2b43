// Package mocks provides hand-rolled testify mocks for the core ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// --- Repositories ---

type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Ticket), args.Get(1).(int64), args.Error(2)
}

func (m *MockTicketRepository) UpdateVersioned(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListEscalatable(ctx context.Context, priority domain.TicketPriority, cutoff time.Time) ([]*domain.Ticket, error) {
	args := m.Called(ctx, priority, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Ticket, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.HistoryEntry, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HistoryEntry), args.Error(1)
}

func (m *MockHistoryRepository) LatestRejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error) {
	args := m.Called(ctx, ticketID)
	return args.String(0), args.Error(1)
}

func (m *MockHistoryRepository) WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Bool(0), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []*domain.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error) {
	args := m.Called(ctx, recipientID, onlyUnread, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListSentTypes(ctx context.Context, ticketID, recipientID uuid.UUID, types []domain.NotificationType) ([]domain.NotificationType, error) {
	args := m.Called(ctx, ticketID, recipientID, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NotificationType), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListActiveByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListTechnicianWorkloads(ctx context.Context) ([]*domain.TechnicianWorkload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TechnicianWorkload), args.Error(1)
}

// MockTransactionManager executes the callback inline so service tests
// exercise the transactional path without a database.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// --- Services ---

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Dispatch(ctx context.Context, event ports.TransitionEvent) ([]*domain.Notification, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) DispatchCreated(ctx context.Context, ticket *domain.Ticket) ([]*domain.Notification, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) RemindValidation(ctx context.Context, ticket *domain.Ticket, now time.Time) (*domain.Notification, error) {
	args := m.Called(ctx, ticket, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error) {
	args := m.Called(ctx, recipientID, onlyUnread, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, recipientID, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

type MockAssignmentService struct {
	mock.Mock
}

func (m *MockAssignmentService) ResolveTechnician(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAssignmentService) ListTechnicians(ctx context.Context, actor ports.Actor) ([]*domain.TechnicianWorkload, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TechnicianWorkload), args.Error(1)
}

type MockEventBroadcaster struct {
	mock.Mock
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotifierParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
