package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// TicketHandler exposes ticket creation, listing and every lifecycle
// action over HTTP.
type TicketHandler struct {
	tickets      ports.TicketService
	history      ports.HistoryService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewTicketHandler(tickets ports.TicketService, history ports.HistoryService, errorHandler *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		tickets:      tickets,
		history:      history,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/history", h.History)
		r.Post("/assign", h.Assign)
		r.Post("/reassign", h.Reassign)
		r.Post("/escalate", h.Escalate)
		r.Post("/take-charge", h.TakeCharge)
		r.Post("/comments", h.Comment)
		r.Post("/request-info", h.RequestInfo)
		r.Post("/resolve", h.Resolve)
		r.Post("/close", h.Close)
		r.Post("/reject", h.Reject)
		r.Post("/reopen", h.Reopen)
	})
}

// --- DTOs ---

type TicketDTO struct {
	ID           string     `json:"id"`
	Number       int64      `json:"number"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	CreatorID    string     `json:"creatorId"`
	TechnicianID *string    `json:"technicianId,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	AssignedAt   *time.Time `json:"assignedAt,omitempty"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	AutoClosedAt *time.Time `json:"autoClosedAt,omitempty"`
}

func toTicketDTO(t *domain.Ticket) TicketDTO {
	dto := TicketDTO{
		ID:           t.ID.String(),
		Number:       t.Number,
		Title:        t.Title,
		Description:  t.Description,
		Category:     string(t.Category),
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		CreatorID:    t.CreatorID.String(),
		Version:      t.Version,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		AssignedAt:   t.AssignedAt,
		ResolvedAt:   t.ResolvedAt,
		ClosedAt:     t.ClosedAt,
		AutoClosedAt: t.AutoClosedAt,
	}
	if t.TechnicianID != nil {
		id := t.TechnicianID.String()
		dto.TechnicianID = &id
	}
	return dto
}

type HistoryEntryDTO struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ActorID   *string   `json:"actorId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toHistoryEntryDTO(e *domain.HistoryEntry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		ID:        e.ID.String(),
		Action:    string(e.Action),
		OldStatus: string(e.OldStatus),
		NewStatus: string(e.NewStatus),
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
	if e.ActorID != uuid.Nil {
		id := e.ActorID.String()
		dto.ActorID = &id
	}
	return dto
}

// TicketHistoryResponse carries the audit trail plus the two derived
// ledger facts dashboards render next to it.
type TicketHistoryResponse struct {
	Data            []HistoryEntryDTO `json:"data"`
	Count           int               `json:"count"`
	RejectionReason *string           `json:"rejectionReason,omitempty"`
	Resumed         bool              `json:"resumed"`
}

type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

func (req *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("title", req.Title).
		MaxLength("title", req.Title, domain.MaxTitleLength).
		MaxLength("description", req.Description, domain.MaxDescriptionLength).
		Required("category", req.Category).
		OneOf("category", req.Category, []string{string(domain.CategoryHardware), string(domain.CategorySoftware)}).
		OneOf("priority", req.Priority, []string{
			string(domain.PriorityLow), string(domain.PriorityMedium),
			string(domain.PriorityHigh), string(domain.PriorityCritical),
		})
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

type assignRequest struct {
	TechnicianID string `json:"technicianId"`
}

type reassignRequest struct {
	TechnicianID string `json:"technicianId"`
	Reason       string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type resolveRequest struct {
	Summary string `json:"summary"`
}

type commentRequest struct {
	Message string `json:"message"`
}

type reopenRequest struct {
	TechnicianID string `json:"technicianId"`
	Reason       string `json:"reason"`
}

// --- Handlers ---

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.tickets.Create(r.Context(), actor, ports.CreateTicketParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.TicketCategory(req.Category),
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCreated(w, toTicketDTO(ticket))
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	pagination := validation.ParsePagination(r, 100)
	params := ports.ListTicketsParams{
		Mine:     validation.ParseBoolQueryParam(r, "mine", false),
		Assigned: validation.ParseBoolQueryParam(r, "assigned", false),
		Limit:    pagination.Limit,
		Offset:   pagination.Offset,
	}
	if s := validation.ParseStringQueryParam(r, "status"); s != nil {
		status := domain.TicketStatus(*s)
		if !status.IsValid() {
			h.errorHandler.Handle(w, r, apperrors.ErrInvalidStatus)
			return
		}
		params.Status = &status
	}
	if p := validation.ParseStringQueryParam(r, "priority"); p != nil {
		priority := domain.TicketPriority(*p)
		if !priority.IsValid() {
			h.errorHandler.Handle(w, r, apperrors.ErrInvalidPriority)
			return
		}
		params.Priority = &priority
	}

	tickets, total, err := h.tickets.List(r.Context(), actor, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		dtos = append(dtos, toTicketDTO(t))
	}
	WritePaginated(w, dtos, pagination.Limit, pagination.Offset, total)
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	ticketID, err := parseUUIDParam(r, "ticketID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.tickets.GetByID(r.Context(), actor, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

func (h *TicketHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	ticketID, err := parseUUIDParam(r, "ticketID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	entries, err := h.history.ListByTicket(r.Context(), actor, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	resp := TicketHistoryResponse{Data: make([]HistoryEntryDTO, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Data = append(resp.Data, toHistoryEntryDTO(e))
	}

	reason, err := h.history.RejectionReason(r.Context(), ticketID)
	switch {
	case err == nil:
		resp.RejectionReason = &reason
	case !errors.Is(err, apperrors.ErrNotFound):
		h.errorHandler.Handle(w, r, err)
		return
	}

	resumed, err := h.history.WasResumed(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	resp.Resumed = resumed

	WriteJSON(w, http.StatusOK, resp)
}

func (h *TicketHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[assignRequest](r)
		if err != nil {
			return nil, err
		}
		technicianID, err := parseTechnicianID(req.TechnicianID)
		if err != nil {
			return nil, err
		}
		return h.tickets.Assign(r.Context(), actor, ticketID, technicianID)
	})
}

func (h *TicketHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[reassignRequest](r)
		if err != nil {
			return nil, err
		}
		technicianID, err := parseTechnicianID(req.TechnicianID)
		if err != nil {
			return nil, err
		}
		return h.tickets.Reassign(r.Context(), actor, ticketID, technicianID, req.Reason)
	})
}

func (h *TicketHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		return h.tickets.Escalate(r.Context(), actor, ticketID)
	})
}

func (h *TicketHandler) TakeCharge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		return h.tickets.TakeCharge(r.Context(), actor, ticketID)
	})
}

func (h *TicketHandler) Comment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[commentRequest](r)
		if err != nil {
			return nil, err
		}
		return h.tickets.Comment(r.Context(), actor, ticketID, req.Message)
	})
}

func (h *TicketHandler) RequestInfo(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[commentRequest](r)
		if err != nil {
			return nil, err
		}
		return h.tickets.RequestInfo(r.Context(), actor, ticketID, req.Message)
	})
}

func (h *TicketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[resolveRequest](r)
		if err != nil {
			return nil, err
		}
		return h.tickets.Resolve(r.Context(), actor, ticketID, req.Summary)
	})
}

func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[reasonRequest](r)
		if err != nil {
			return nil, err
		}
		return h.tickets.Close(r.Context(), actor, ticketID, req.Reason)
	})
}

func (h *TicketHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[reasonRequest](r)
		if err != nil {
			return nil, err
		}
		return h.tickets.Reject(r.Context(), actor, ticketID, req.Reason)
	})
}

func (h *TicketHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error) {
		req, err := validation.DecodeAndValidate[reopenRequest](r)
		if err != nil {
			return nil, err
		}
		technicianID, err := parseTechnicianID(req.TechnicianID)
		if err != nil {
			return nil, err
		}
		return h.tickets.Reopen(r.Context(), actor, ticketID, technicianID, req.Reason)
	})
}

// transition factors the boilerplate shared by all action endpoints.
func (h *TicketHandler) transition(w http.ResponseWriter, r *http.Request, fn func(actor ports.Actor, ticketID uuid.UUID) (*domain.Ticket, error)) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	ticketID, err := parseUUIDParam(r, "ticketID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := fn(actor, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

func parseTechnicianID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, apperrors.ErrTechnicianRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError(err, "Invalid technicianId")
	}
	return id, nil
}
