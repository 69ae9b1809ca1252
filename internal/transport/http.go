package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/shopspring/decimal"
)

// SessionService defines the session operations exposed over HTTP.
type SessionService interface {
	CreateSession(ctx context.Context, p session.Principal, req session.CreateSessionRequest) (*session.Session, error)
	JoinSession(ctx context.Context, p session.Principal, roomCode string) (*session.Session, error)
	GetSession(ctx context.Context, p session.Principal, sessionID string) (*session.Session, error)
	ListSessions(ctx context.Context, p session.Principal, opts session.ListOptions) ([]session.Session, error)
	GetSnapshot(ctx context.Context, p session.Principal, sessionID string, sinceRevision int64) (*session.Snapshot, error)
	Heartbeat(ctx context.Context, p session.Principal, sessionID string) (*session.Session, error)
	GetItemsByStatus(ctx context.Context, p session.Principal, sessionID string) (*session.ItemsByStatus, error)
	AddItem(ctx context.Context, p session.Principal, sessionID string, req session.AddItemRequest) (*session.CartItem, error)
	UpdateQuantity(ctx context.Context, p session.Principal, sessionID, cartItemID string, quantity decimal.Decimal) (*session.CartItem, error)
	SetItemStatus(ctx context.Context, p session.Principal, sessionID, cartItemID string, status session.ItemStatus) (*session.CartItem, error)
	RemoveItem(ctx context.Context, p session.Principal, sessionID, cartItemID string) error
	GetActiveNegotiations(ctx context.Context, p session.Principal, sessionID string) ([]negotiation.Negotiation, error)
	GetNegotiationHistory(ctx context.Context, p session.Principal, sessionID, cartItemID string) ([]negotiation.Negotiation, error)
	ProposePrice(ctx context.Context, p session.Principal, sessionID string, req session.ProposePriceRequest) (*negotiation.Negotiation, error)
	RespondToNegotiation(ctx context.Context, p session.Principal, sessionID string, req session.RespondRequest) (*negotiation.Negotiation, error)
	SetOverridePrice(ctx context.Context, p session.Principal, sessionID, productID string, price decimal.Decimal) (*session.OverrideResult, error)
	HighlightProduct(ctx context.Context, p session.Principal, sessionID, batchID string, highlighted bool) (int, error)
	RequestCheckout(ctx context.Context, p session.Principal, sessionID string) (*session.Session, error)
	EndSession(ctx context.Context, p session.Principal, sessionID string, convertToOrder bool) (*session.EndResult, error)
	GetOrder(ctx context.Context, p session.Principal, sessionID string) (*session.Order, error)
	SearchCatalog(ctx context.Context, query string, limit int) ([]session.CatalogBatch, error)
}

// ActivityService defines the audit trail reads exposed over HTTP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Server wires HTTP handlers.
type Server struct {
	sessions SessionService
	activity ActivityService
	logger   *slog.Logger
}

// NewServer creates the REST router. Everything except /health runs behind
// principalMiddleware. Extra routes, such as the MCP endpoint, can be mounted
// on the returned router.
func NewServer(sessions SessionService, activitySvc ActivityService, principalMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{sessions: sessions, activity: activitySvc, logger: logger}

	r := chi.NewRouter()
	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if principalMiddleware != nil {
			r.Use(principalMiddleware)
		}

		r.Get("/catalog/search", srv.handleSearchCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", srv.handleCreateSession)
			r.Get("/", srv.handleListSessions)
			r.Post("/join", srv.handleJoinSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", srv.handleGetSession)
				r.Get("/snapshot", srv.handleSnapshot)
				r.Post("/heartbeat", srv.handleHeartbeat)
				r.Get("/items", srv.handleItemsByStatus)
				r.Post("/items", srv.handleAddItem)
				r.Put("/items/{itemID}/quantity", srv.handleUpdateQuantity)
				r.Put("/items/{itemID}/status", srv.handleSetItemStatus)
				r.Delete("/items/{itemID}", srv.handleRemoveItem)
				r.Get("/items/{itemID}/negotiations", srv.handleNegotiationHistory)
				r.Post("/items/{itemID}/negotiation", srv.handleProposePrice)
				r.Post("/items/{itemID}/negotiation/respond", srv.handleRespond)
				r.Get("/negotiations", srv.handleActiveNegotiations)
				r.Put("/overrides/{productID}", srv.handleSetOverride)
				r.Post("/highlight", srv.handleHighlight)
				r.Post("/checkout", srv.handleRequestCheckout)
				r.Post("/end", srv.handleEndSession)
				r.Get("/order", srv.handleGetOrder)
				r.Get("/activity", srv.handleActivity)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// principal returns the caller resolved by the middleware.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return session.Principal{}, false
	}
	return p, true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errBadParam(name)
	}
	return v, nil
}
