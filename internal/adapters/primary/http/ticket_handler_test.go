package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/ticketroute/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/ticketroute/helpdesk-backend/internal/auth"
	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/mocks"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-for-handler-tests", time.Hour)
}

func newTicketRouter(tickets ports.TicketService, history ports.HistoryService) (*chi.Mux, *auth.TokenManager) {
	logger := testLogger()
	tm := newTestTokenManager()
	handler := NewTicketHandler(tickets, history, NewErrorHandler(logger), logger)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tm))
		r.Route("/tickets", handler.RegisterRoutes)
	})
	return r, tm
}

func bearerToken(t *testing.T, tm *auth.TokenManager, userID uuid.UUID, role domain.Role) string {
	t.Helper()
	token, err := tm.GenerateToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, router *chi.Mux, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	return resp
}

func sampleTicket(creatorID uuid.UUID) *domain.Ticket {
	return &domain.Ticket{
		ID:        uuid.New(),
		Number:    55,
		Title:     "VPN inaccessible",
		Category:  domain.CategorySoftware,
		Priority:  domain.PriorityHigh,
		Status:    domain.StatusPendingAnalysis,
		CreatorID: creatorID,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTicketHandler_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("valid request", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		created := sampleTicket(userID)
		tickets.On("Create", mock.Anything, ports.Actor{ID: userID, Role: domain.RoleRequester}, mock.MatchedBy(func(p ports.CreateTicketParams) bool {
			return p.Title == "VPN inaccessible" && p.Category == domain.CategorySoftware
		})).Return(created, nil)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/", bearerToken(t, tm, userID, domain.RoleRequester), map[string]string{
			"title":    "VPN inaccessible",
			"category": "APPLICATIF",
			"priority": "HAUTE",
		})

		require.Equal(t, stdhttp.StatusCreated, recorder.Code)
		var dto TicketDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.EqualValues(t, 55, dto.Number)
		assert.Equal(t, "EN_ATTENTE_ANALYSE", dto.Status)
		tickets.AssertExpectations(t)
	})

	t.Run("missing title fails validation", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/", bearerToken(t, tm, userID, domain.RoleRequester), map[string]string{
			"category": "MATERIEL",
		})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		tickets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no token", func(t *testing.T) {
		router, _ := newTicketRouter(new(mocks.MockTicketService), new(mocks.MockHistoryService))
		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/", "", map[string]string{"title": "x", "category": "MATERIEL"})
		assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})
}

func TestTicketHandler_List(t *testing.T) {
	userID := uuid.New()
	tickets := new(mocks.MockTicketService)
	router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

	tickets.On("List", mock.Anything, mock.Anything, mock.MatchedBy(func(p ports.ListTicketsParams) bool {
		return p.Status != nil && *p.Status == domain.StatusInProgress && p.Limit == 10
	})).Return([]*domain.Ticket{sampleTicket(userID)}, int64(1), nil)

	recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets/?status=EN_COURS&limit=10", bearerToken(t, tm, userID, domain.RoleDispatcher), nil)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var resp PaginatedResponse[TicketDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.EqualValues(t, 1, resp.Pagination.TotalCount)
	assert.False(t, resp.Pagination.HasMore)
}

func TestTicketHandler_ListRejectsUnknownStatus(t *testing.T) {
	tickets := new(mocks.MockTicketService)
	router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

	recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets/?status=OUVERT", bearerToken(t, tm, uuid.New(), domain.RoleDispatcher), nil)
	assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	tickets.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestTicketHandler_Transitions(t *testing.T) {
	dispatcherID := uuid.New()
	techID := uuid.New()
	ticket := sampleTicket(uuid.New())

	t.Run("assign succeeds", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		assigned := *ticket
		assigned.Status = domain.StatusAssigned
		assigned.TechnicianID = &techID
		tickets.On("Assign", mock.Anything, ports.Actor{ID: dispatcherID, Role: domain.RoleDispatcher}, ticket.ID, techID).
			Return(&assigned, nil)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/assign",
			bearerToken(t, tm, dispatcherID, domain.RoleDispatcher),
			map[string]string{"technicianId": techID.String()})

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		var dto TicketDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.Equal(t, "ASSIGNE_TECHNICIEN", dto.Status)
		require.NotNil(t, dto.TechnicianID)
		assert.Equal(t, techID.String(), *dto.TechnicianID)
	})

	t.Run("assign without technician is a bad request", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/assign",
			bearerToken(t, tm, dispatcherID, domain.RoleDispatcher), map[string]string{})

		assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
		assert.Equal(t, "MISSING_REQUIRED_FIELD", decodeError(t, recorder).Code)
		tickets.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("illegal transition maps to conflict", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		tickets.On("Close", mock.Anything, mock.Anything, ticket.ID, "").
			Return(nil, apperrors.ErrInvalidTransition)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/close",
			bearerToken(t, tm, dispatcherID, domain.RoleDispatcher), map[string]string{})

		assert.Equal(t, stdhttp.StatusConflict, recorder.Code)
		assert.Equal(t, "INVALID_TRANSITION", decodeError(t, recorder).Code)
	})

	t.Run("lost version race maps to conflict", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		tickets.On("Escalate", mock.Anything, mock.Anything, ticket.ID).
			Return(nil, apperrors.ErrStaleState)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/escalate",
			bearerToken(t, tm, dispatcherID, domain.RoleDispatcher), nil)

		assert.Equal(t, stdhttp.StatusConflict, recorder.Code)
		assert.Equal(t, "STALE_STATE", decodeError(t, recorder).Code)
	})

	t.Run("forbidden actor maps to 403", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		tickets.On("TakeCharge", mock.Anything, mock.Anything, ticket.ID).
			Return(nil, apperrors.ErrForbidden)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/take-charge",
			bearerToken(t, tm, techID, domain.RoleTechnician), nil)

		assert.Equal(t, stdhttp.StatusForbidden, recorder.Code)
	})

	t.Run("unknown ticket maps to 404", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		tickets.On("Resolve", mock.Anything, mock.Anything, ticket.ID, "Corrige").
			Return(nil, apperrors.ErrTicketNotFound)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/"+ticket.ID.String()+"/resolve",
			bearerToken(t, tm, techID, domain.RoleTechnician), map[string]string{"summary": "Corrige"})

		assert.Equal(t, stdhttp.StatusNotFound, recorder.Code)
	})

	t.Run("invalid ticket id", func(t *testing.T) {
		tickets := new(mocks.MockTicketService)
		router, tm := newTicketRouter(tickets, new(mocks.MockHistoryService))

		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets/not-a-uuid/escalate",
			bearerToken(t, tm, dispatcherID, domain.RoleDispatcher), nil)

		assert.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	})
}

func TestTicketHandler_History(t *testing.T) {
	userID := uuid.New()
	ticket := sampleTicket(userID)

	t.Run("plain audit trail", func(t *testing.T) {
		history := new(mocks.MockHistoryService)
		router, tm := newTicketRouter(new(mocks.MockTicketService), history)

		entries := []*domain.HistoryEntry{
			domain.NewHistoryEntry(ticket.ID, domain.ActionAssign, domain.StatusPendingAnalysis, domain.StatusAssigned, uuid.New(), "", time.Now().UTC()),
			domain.NewHistoryEntry(ticket.ID, domain.ActionClose, domain.StatusResolved, domain.StatusClosed, uuid.Nil, "Clôture automatique sans validation du demandeur", time.Now().UTC()),
		}
		history.On("ListByTicket", mock.Anything, mock.Anything, ticket.ID).Return(entries, nil)
		history.On("RejectionReason", mock.Anything, ticket.ID).Return("", apperrors.ErrNotFound)
		history.On("WasResumed", mock.Anything, ticket.ID).Return(false, nil)

		recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets/"+ticket.ID.String()+"/history",
			bearerToken(t, tm, userID, domain.RoleRequester), nil)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		var resp TicketHistoryResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		require.Equal(t, 2, resp.Count)
		assert.NotNil(t, resp.Data[0].ActorID)
		// Sweeper entries carry no actor.
		assert.Nil(t, resp.Data[1].ActorID)
		assert.Nil(t, resp.RejectionReason, "never rejected")
		assert.False(t, resp.Resumed)
	})

	t.Run("rejected then resumed ticket exposes the ledger facts", func(t *testing.T) {
		history := new(mocks.MockHistoryService)
		router, tm := newTicketRouter(new(mocks.MockTicketService), history)

		entries := []*domain.HistoryEntry{
			domain.NewHistoryEntry(ticket.ID, domain.ActionReject, domain.StatusResolved, domain.StatusRejected, userID, "Toujours en panne", time.Now().UTC()),
			domain.NewHistoryEntry(ticket.ID, domain.ActionReopen, domain.StatusRejected, domain.StatusInProgress, uuid.New(), "Nouvelle analyse", time.Now().UTC()),
		}
		history.On("ListByTicket", mock.Anything, mock.Anything, ticket.ID).Return(entries, nil)
		history.On("RejectionReason", mock.Anything, ticket.ID).Return("Toujours en panne", nil)
		history.On("WasResumed", mock.Anything, ticket.ID).Return(true, nil)

		recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets/"+ticket.ID.String()+"/history",
			bearerToken(t, tm, userID, domain.RoleRequester), nil)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		var resp TicketHistoryResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		require.NotNil(t, resp.RejectionReason)
		assert.Equal(t, "Toujours en panne", *resp.RejectionReason)
		assert.True(t, resp.Resumed)
	})
}
