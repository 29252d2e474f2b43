package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// TechnicianHandler serves the technician directory for the dispatch
// assignment screen.
type TechnicianHandler struct {
	assignments  ports.AssignmentService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewTechnicianHandler(assignments ports.AssignmentService, errorHandler *ErrorHandler, logger *slog.Logger) *TechnicianHandler {
	return &TechnicianHandler{
		assignments:  assignments,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

func (h *TechnicianHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type TechnicianDTO struct {
	ID              string `json:"id"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Specialization  string `json:"specialization,omitempty"`
	AssignedCount   int64  `json:"assignedCount"`
	InProgressCount int64  `json:"inProgressCount"`
	OpenCount       int64  `json:"openCount"`
}

func toTechnicianDTO(w *domain.TechnicianWorkload) TechnicianDTO {
	return TechnicianDTO{
		ID:              w.User.ID.String(),
		FullName:        w.User.FullName,
		Email:           w.User.Email,
		Specialization:  w.User.Specialization,
		AssignedCount:   w.AssignedCount,
		InProgressCount: w.InProgressCount,
		OpenCount:       w.OpenCount(),
	}
}

func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := getActor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	workloads, err := h.assignments.ListTechnicians(r.Context(), actor)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]TechnicianDTO, 0, len(workloads))
	for _, wl := range workloads {
		dtos = append(dtos, toTechnicianDTO(wl))
	}
	WriteList(w, dtos)
}
