package domain

import "github.com/google/uuid"

// Event is the realtime payload pushed to connected websocket clients
// after a transition commits. It is delivered to the same recipients as
// the persisted notifications for that transition.
type Event struct {
	Type         string      `json:"type"`
	TicketID     uuid.UUID   `json:"ticket_id"`
	TicketNumber int64       `json:"ticket_number"`
	Status       string      `json:"status"`
	Priority     string      `json:"priority"`
	Recipients   []uuid.UUID `json:"-"`
	Payload      interface{} `json:"payload,omitempty"`
}
