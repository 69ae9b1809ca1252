package session

import (
	"encoding/json"
	"time"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a live session
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusEnded  Status = "ENDED"
)

// Outcome records how an ended session was closed
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeClosed    Outcome = "CLOSED"
	OutcomeConverted Outcome = "CONVERTED"
	OutcomeExpired   Outcome = "EXPIRED"
)

// ItemStatus is the workflow column a cart item sits in
type ItemStatus string

const (
	ItemSampleRequest ItemStatus = "SAMPLE_REQUEST"
	ItemInterested    ItemStatus = "INTERESTED"
	ItemToPurchase    ItemStatus = "TO_PURCHASE"
)

// ItemStatuses lists every workflow column in display order.
var ItemStatuses = []ItemStatus{ItemSampleRequest, ItemInterested, ItemToPurchase}

// ParseItemStatus validates a workflow status.
func ParseItemStatus(value string) (ItemStatus, error) {
	switch s := ItemStatus(value); s {
	case ItemSampleRequest, ItemInterested, ItemToPurchase:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Session is a live shopping session between staff and one client
type Session struct {
	ID                  string     `json:"id"`
	RoomCode            string     `json:"room_code"`
	ClientID            string     `json:"client_id"`
	HostUserID          string     `json:"host_user_id"`
	Title               string     `json:"title,omitempty"`
	Status              Status     `json:"status"`
	Outcome             Outcome    `json:"outcome,omitempty"`
	OrderID             *string    `json:"order_id,omitempty"`
	Revision            int64      `json:"revision"`
	CheckoutRequestedAt *time.Time `json:"checkout_requested_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	LastActivity        time.Time  `json:"last_activity"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
}

// CartItem is one product batch line in a session cart
type CartItem struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	ProductID   string          `json:"product_id"`
	BatchID     string          `json:"batch_id"`
	ProductName string          `json:"product_name"`
	BatchCode   string          `json:"batch_code"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Status      ItemStatus      `json:"status"`
	Highlighted bool            `json:"highlighted"`
	AddedBy     Actor           `json:"added_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Subtotal is quantity times the current unit price.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// MarshalJSON includes the derived subtotal.
func (i CartItem) MarshalJSON() ([]byte, error) {
	type plain CartItem
	return json.Marshal(struct {
		plain
		Subtotal decimal.Decimal `json:"subtotal"`
	}{plain: plain(i), Subtotal: i.Subtotal()})
}

// StatusTotal aggregates one workflow column.
type StatusTotal struct {
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// Totals are computed on read from the live item list.
type Totals map[ItemStatus]StatusTotal

// ComputeTotals sums items per status. Every status is present in the result.
func ComputeTotals(items []CartItem) Totals {
	totals := make(Totals, len(ItemStatuses))
	for _, status := range ItemStatuses {
		totals[status] = StatusTotal{Value: decimal.Zero}
	}
	for _, item := range items {
		t := totals[item.Status]
		t.Count++
		t.Value = t.Value.Add(item.Subtotal())
		totals[item.Status] = t
	}
	return totals
}

// ItemsByStatus is the three-column workflow view.
type ItemsByStatus struct {
	SampleRequest []CartItem `json:"sample_request"`
	Interested    []CartItem `json:"interested"`
	ToPurchase    []CartItem `json:"to_purchase"`
	Totals        Totals     `json:"totals"`
}

// GroupByStatus splits items into workflow columns.
func GroupByStatus(items []CartItem) ItemsByStatus {
	view := ItemsByStatus{
		SampleRequest: []CartItem{},
		Interested:    []CartItem{},
		ToPurchase:    []CartItem{},
		Totals:        ComputeTotals(items),
	}
	for _, item := range items {
		switch item.Status {
		case ItemSampleRequest:
			view.SampleRequest = append(view.SampleRequest, item)
		case ItemInterested:
			view.Interested = append(view.Interested, item)
		case ItemToPurchase:
			view.ToPurchase = append(view.ToPurchase, item)
		}
	}
	return view
}

// Snapshot is the polling view of a session.
type Snapshot struct {
	Session      Session                   `json:"session"`
	Items        ItemsByStatus             `json:"items"`
	Negotiations []negotiation.Negotiation `json:"negotiations"`
	NotModified  bool                      `json:"not_modified,omitempty"`
}

// Order is materialised from the TO_PURCHASE items of a converted session.
type Order struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	ClientID  string          `json:"client_id"`
	Lines     []OrderLine     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderLine is one purchased cart item.
type OrderLine struct {
	CartItemID  string          `json:"cart_item_id"`
	ProductID   string          `json:"product_id"`
	BatchID     string          `json:"batch_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CatalogBatch is an inventory lot offered during a session.
type CatalogBatch struct {
	BatchID     string          `json:"batch_id" yaml:"batch_id"`
	ProductID   string          `json:"product_id" yaml:"product_id"`
	ProductName string          `json:"product_name" yaml:"product_name"`
	BatchCode   string          `json:"batch_code" yaml:"batch_code"`
	UnitPrice   decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	OnHand      decimal.Decimal `json:"on_hand" yaml:"on_hand"`
}

// ListOptions filters session listings.
type ListOptions struct {
	Status   Status
	ClientID string
	Limit    int
	Offset   int
}
