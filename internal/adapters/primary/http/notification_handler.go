package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ticketroute/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

type NotificationHandler struct {
	notifications ports.NotificationService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

func NewNotificationHandler(notifications ports.NotificationService, errorHandler *ErrorHandler, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		errorHandler:  errorHandler,
		logger:        logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/unread/count", h.UnreadCount)
	r.Post("/{notificationID}/read", h.MarkRead)
}

type NotificationDTO struct {
	ID           string     `json:"id"`
	TicketID     string     `json:"ticketId"`
	TicketNumber int64      `json:"ticketNumber"`
	Type         string     `json:"type"`
	Message      string     `json:"message"`
	Read         bool       `json:"read"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toNotificationDTO(n *domain.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID.String(),
		TicketID:     n.TicketID.String(),
		TicketNumber: n.TicketNumber,
		Type:         string(n.Type),
		Message:      n.Message,
		Read:         n.Read,
		ReadAt:       n.ReadAt,
		CreatedAt:    n.CreatedAt,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaims(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	pagination := validation.ParsePagination(r, 100)
	onlyUnread := validation.ParseBoolQueryParam(r, "unread", false)

	notifications, err := h.notifications.List(r.Context(), claims.UserID, onlyUnread, pagination.Limit, pagination.Offset)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, toNotificationDTO(n))
	}
	WriteList(w, dtos)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaims(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaims(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	notificationID, err := parseUUIDParam(r, "notificationID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), claims.UserID, notificationID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toNotificationDTO(notification))
}
