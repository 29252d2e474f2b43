package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
)

const writeWait = 10 * time.Second

// Client is one websocket connection belonging to an authenticated
// user.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	userID       uuid.UUID
	send         chan domain.Event
	pingInterval time.Duration
	pongWait     time.Duration
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, pingInterval, pongWait time.Duration) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		userID:       userID,
		send:         make(chan domain.Event, 16),
		pingInterval: pingInterval,
		pongWait:     pongWait,
	}
}

// Start registers the client with the hub and launches the pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump drains inbound frames. Clients only receive events, so
// every inbound message except control frames is discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
