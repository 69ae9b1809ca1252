package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/shopspring/decimal"
)

// SessionService defines session operations needed by MCP.
type SessionService interface {
	CreateSession(ctx context.Context, p session.Principal, req session.CreateSessionRequest) (*session.Session, error)
	ListSessions(ctx context.Context, p session.Principal, opts session.ListOptions) ([]session.Session, error)
	GetSnapshot(ctx context.Context, p session.Principal, sessionID string, sinceRevision int64) (*session.Snapshot, error)
	GetItemsByStatus(ctx context.Context, p session.Principal, sessionID string) (*session.ItemsByStatus, error)
	AddItem(ctx context.Context, p session.Principal, sessionID string, req session.AddItemRequest) (*session.CartItem, error)
	UpdateQuantity(ctx context.Context, p session.Principal, sessionID, cartItemID string, quantity decimal.Decimal) (*session.CartItem, error)
	SetItemStatus(ctx context.Context, p session.Principal, sessionID, cartItemID string, status session.ItemStatus) (*session.CartItem, error)
	RemoveFromCart(ctx context.Context, p session.Principal, sessionID, cartItemID string) error
	GetActiveNegotiations(ctx context.Context, p session.Principal, sessionID string) ([]negotiation.Negotiation, error)
	GetNegotiationHistory(ctx context.Context, p session.Principal, sessionID, cartItemID string) ([]negotiation.Negotiation, error)
	ProposePrice(ctx context.Context, p session.Principal, sessionID string, req session.ProposePriceRequest) (*negotiation.Negotiation, error)
	RespondToNegotiation(ctx context.Context, p session.Principal, sessionID string, req session.RespondRequest) (*negotiation.Negotiation, error)
	SetOverridePrice(ctx context.Context, p session.Principal, sessionID, productID string, price decimal.Decimal) (*session.OverrideResult, error)
	HighlightProduct(ctx context.Context, p session.Principal, sessionID, batchID string, highlighted bool) (int, error)
	RequestCheckout(ctx context.Context, p session.Principal, sessionID string) (*session.Session, error)
	EndSession(ctx context.Context, p session.Principal, sessionID string, convertToOrder bool) (*session.EndResult, error)
	GetOrder(ctx context.Context, p session.Principal, sessionID string) (*session.Order, error)
	GetSession(ctx context.Context, p session.Principal, sessionID string) (*session.Session, error)
	SearchCatalog(ctx context.Context, query string, limit int) ([]session.CatalogBatch, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sessions SessionService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      PrincipalResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// DefaultPrincipal acts for every call when auth is off. Zero means a
	// local staff user.
	DefaultPrincipal session.Principal
	Logger           *slog.Logger
}

const serverInstructions = `Live shopping session engine. Staff use these tools to run a session:
create a session for a client, add catalog batches to the cart, move items between
SAMPLE_REQUEST, INTERESTED and TO_PURCHASE, answer price negotiations, override
prices, highlight a product and finally end the session, optionally converting the
TO_PURCHASE items into an order. Call get_snapshot with the last revision you saw to
check for changes. Prices and quantities are decimal strings.`

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "liveshop",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	fallback := cfg.DefaultPrincipal
	if fallback.Actor == "" {
		fallback = session.Staff("local")
	}

	// Stdio is local only and never authenticates.
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled {
		server.AddReceivingMiddleware(noAuthMiddleware(fallback))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
