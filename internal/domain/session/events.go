package session

import "time"

// EventType names an outward session notification
type EventType string

const (
	EventSessionCreated     EventType = "SESSION_CREATED"
	EventCartUpdated        EventType = "CART_UPDATED"
	EventNegotiationUpdated EventType = "NEGOTIATION_UPDATED"
	EventHighlight          EventType = "HIGHLIGHT"
	EventCheckoutRequested  EventType = "CHECKOUT_REQUESTED"
	EventSessionEnded       EventType = "SESSION_ENDED"
	EventOrderCreated       EventType = "ORDER_CREATED"
)

// Event is published after a mutation commits.
type Event struct {
	Type       EventType         `json:"type"`
	SessionID  string            `json:"session_id"`
	ClientID   string            `json:"client_id"`
	Actor      Actor             `json:"actor"`
	Revision   int64             `json:"revision"`
	CartItemID string            `json:"cart_item_id,omitempty"`
	OrderID    string            `json:"order_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	At         time.Time         `json:"at"`
}
