package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeSessionCreated       ActivityType = "session_created"
	TypeSessionJoined        ActivityType = "session_joined"
	TypeItemAdded            ActivityType = "item_added"
	TypeQuantityChanged      ActivityType = "quantity_changed"
	TypeStatusChanged        ActivityType = "status_changed"
	TypeItemRemoved          ActivityType = "item_removed"
	TypePriceProposed        ActivityType = "price_proposed"
	TypeNegotiationResponded ActivityType = "negotiation_responded"
	TypeNegotiationCancelled ActivityType = "negotiation_cancelled"
	TypePriceOverridden      ActivityType = "price_overridden"
	TypeProductHighlighted   ActivityType = "product_highlighted"
	TypeCheckoutRequested    ActivityType = "checkout_requested"
	TypeSessionEnded         ActivityType = "session_ended"
	TypeOrderCreated         ActivityType = "order_created"
)

// ActivityEntry represents an event in the session audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	SessionID    string       `json:"session_id"`
	CartItemID   *string      `json:"cart_item_id,omitempty"`
	Actor        string       `json:"actor"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	Revision     int64        `json:"revision"`
	CreatedAt    time.Time    `json:"created_at"`
}
