// Package websocket pushes ticket transition events to connected
// clients. The hub is best-effort: persisted notifications are the
// source of truth, a dropped event only delays the UI until its next
// poll.
package websocket

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// Hub maintains the set of active clients keyed by user and fans
// events out to every connection of each recipient.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	broadcast  chan domain.Event
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger
}

var _ ports.EventBroadcaster = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Broadcast queues an event for delivery. It never blocks; when the
// queue is full the event is dropped and logged.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			"type", event.Type, "ticket_id", event.TicketID)
		return nil
	}
}

// Run starts the hub's event loop. Must be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.logger.Debug("websocket client registered", "user_id", client.userID)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			for _, recipientID := range event.Recipients {
				for client := range h.clients[recipientID] {
					select {
					case client.send <- event:
					default:
						// Slow consumer, drop the connection.
						h.removeClient(client)
					}
				}
			}
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	userClients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	h.logger.Debug("websocket client unregistered", "user_id", client.userID)
}
