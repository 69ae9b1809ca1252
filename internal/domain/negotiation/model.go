package negotiation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a negotiation.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusCounterOffered Status = "COUNTER_OFFERED"
	StatusAccepted       Status = "ACCEPTED"
	StatusRejected       Status = "REJECTED"
	// StatusCancelled marks a negotiation superseded by a staff override or item removal.
	StatusCancelled Status = "CANCELLED"
)

// Active reports whether the status still awaits a response.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusCounterOffered
}

// Party identifies which side of the session acted.
type Party string

const (
	PartyStaff    Party = "STAFF"
	PartyCustomer Party = "CUSTOMER"
)

// Response is the answer given to an outstanding offer.
type Response string

const (
	ResponseAccept  Response = "ACCEPT"
	ResponseReject  Response = "REJECT"
	ResponseCounter Response = "COUNTER"
)

// ParseResponse validates a response verb.
func ParseResponse(value string) (Response, error) {
	switch r := Response(value); r {
	case ResponseAccept, ResponseReject, ResponseCounter:
		return r, nil
	default:
		return "", ErrInvalidResponse
	}
}

// Action labels an entry in the negotiation history.
type Action string

const (
	ActionRequest       Action = "REQUEST"
	ActionCounter       Action = "COUNTER"
	ActionAccept        Action = "ACCEPT"
	ActionReject        Action = "REJECT"
	ActionAcceptCounter Action = "ACCEPT_COUNTER"
	ActionRejectCounter Action = "REJECT_COUNTER"
	ActionCancel        Action = "CANCEL"
)

// Event is one step in a negotiation thread.
type Event struct {
	Action   Action           `json:"action"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	By       Party            `json:"by"`
	At       time.Time        `json:"at"`
	Reason   string           `json:"reason,omitempty"`
}

// Negotiation is a price negotiation over a single cart item.
type Negotiation struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	CartItemID    string          `json:"cart_item_id"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	ProposedPrice decimal.Decimal `json:"proposed_price"`
	// ProposedQuantity is the quantity the customer asked the price for, if any.
	ProposedQuantity *decimal.Decimal `json:"proposed_quantity,omitempty"`
	CounterPrice     *decimal.Decimal `json:"counter_price,omitempty"`
	FinalPrice       *decimal.Decimal `json:"final_price,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Status           Status           `json:"status"`
	History          []Event          `json:"history"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
}

// Outcome describes the effect of a response on the owning cart item.
type Outcome struct {
	Status Status
	// Applied is true when Price must be written to the cart item's unit price.
	Applied bool
	Price   decimal.Decimal
	// Quantity is set when an accepted proposal named a quantity.
	Quantity *decimal.Decimal
}
