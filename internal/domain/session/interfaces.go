package session

import (
	"context"
	"time"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/shopspring/decimal"
)

// Repository provides persistence for sessions, carts, negotiations and orders.
type Repository interface {
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSessionByRoomCode(ctx context.Context, roomCode string) (*Session, error)
	UpdateSession(ctx context.Context, sess *Session) error
	ListSessions(ctx context.Context, opts ListOptions) ([]Session, error)
	ListIdleSessions(ctx context.Context, lastActivityBefore time.Time) ([]Session, error)

	AddItem(ctx context.Context, item *CartItem) error
	GetItem(ctx context.Context, sessionID, itemID string) (*CartItem, error)
	ListItems(ctx context.Context, sessionID string) ([]CartItem, error)
	UpdateItem(ctx context.Context, item *CartItem) error
	DeleteItem(ctx context.Context, sessionID, itemID string) error

	CreateNegotiation(ctx context.Context, n *negotiation.Negotiation) error
	UpdateNegotiation(ctx context.Context, n *negotiation.Negotiation) error
	GetActiveNegotiation(ctx context.Context, sessionID, cartItemID string) (*negotiation.Negotiation, error)
	ListActiveNegotiations(ctx context.Context, sessionID string) ([]negotiation.Negotiation, error)
	ListNegotiations(ctx context.Context, sessionID, cartItemID string) ([]negotiation.Negotiation, error)

	SetPriceOverride(ctx context.Context, sessionID, productID string, price decimal.Decimal) error
	GetPriceOverride(ctx context.Context, sessionID, productID string) (decimal.Decimal, error)

	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)

	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Store is a Repository that can run a unit of work in one transaction.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(tx Repository) error) error
}

// Catalog looks up the inventory batches that can be added to a cart.
type Catalog interface {
	GetBatch(ctx context.Context, batchID string) (*CatalogBatch, error)
	SearchBatches(ctx context.Context, query string, limit int) ([]CatalogBatch, error)
}

// Notifier delivers session events to outside observers.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
