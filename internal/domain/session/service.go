package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/repository"
)

const (
	defaultListLimit   = 50
	defaultSearchLimit = 20
)

// Service handles live shopping session operations.
type Service struct {
	store    Store
	catalog  Catalog
	notifier Notifier
	logger   *slog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new session service. notifier may be nil.
func NewService(store Store, catalog Catalog, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSessionRequest describes a new live session.
type CreateSessionRequest struct {
	ClientID string
	Title    string
}

// CreateSession starts an ACTIVE session for a client.
func (s *Service) CreateSession(ctx context.Context, p Principal, req CreateSessionRequest) (*Session, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, ErrInvalidInput
	}

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		RoomCode:     ulid.Make().String(),
		ClientID:     clientID,
		HostUserID:   p.UserID,
		Title:        strings.TrimSpace(req.Title),
		Status:       StatusActive,
		Revision:     1,
		CreatedAt:    now,
		LastActivity: now,
	}

	err := s.store.InTx(ctx, func(tx Repository) error {
		if err := tx.CreateSession(ctx, sess); err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		return tx.LogActivity(ctx, &activity.ActivityEntry{
			SessionID:    sess.ID,
			Actor:        string(p.Actor),
			ActivityType: activity.TypeSessionCreated,
			Summary:      fmt.Sprintf("session opened for client %s", clientID),
			Revision:     sess.Revision,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created", "session_id", sess.ID, "client_id", clientID)
	s.publish(ctx, []Event{{
		Type:      EventSessionCreated,
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		Actor:     p.Actor,
		Revision:  sess.Revision,
		At:        now,
	}})
	return sess, nil
}

// JoinSession resolves a room code for a customer and records the join.
func (s *Service) JoinSession(ctx context.Context, p Principal, roomCode string) (*Session, error) {
	if err := requireCustomer(p); err != nil {
		return nil, err
	}
	roomCode = strings.TrimSpace(roomCode)
	if roomCode == "" {
		return nil, ErrInvalidInput
	}

	found, err := s.store.GetSessionByRoomCode(ctx, roomCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	return s.mutate(ctx, found.ID, p, func(ctx context.Context, m *mutation) error {
		m.log(activity.TypeSessionJoined, "", "customer joined", nil)
		return nil
	})
}

// GetSession returns a session visible to the caller.
func (s *Service) GetSession(ctx context.Context, p Principal, sessionID string) (*Session, error) {
	sess, err := s.loadSession(ctx, s.store, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions lists sessions. Customers only see their own client's sessions.
func (s *Service) ListSessions(ctx context.Context, p Principal, opts ListOptions) ([]Session, error) {
	switch p.Actor {
	case ActorStaff:
	case ActorCustomer:
		if p.ClientID == "" {
			return nil, ErrForbidden
		}
		opts.ClientID = p.ClientID
	default:
		return nil, ErrForbidden
	}
	if opts.Status != "" && opts.Status != StatusActive && opts.Status != StatusEnded {
		return nil, ErrInvalidInput
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	sessions, err := s.store.ListSessions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// GetSnapshot returns the full polling view. When sinceRevision matches the
// current revision only the session header is returned with NotModified set.
func (s *Service) GetSnapshot(ctx context.Context, p Principal, sessionID string, sinceRevision int64) (*Snapshot, error) {
	var snap *Snapshot
	err := s.store.InTx(ctx, func(tx Repository) error {
		sess, err := s.loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := authorize(p, sess); err != nil {
			return err
		}
		if sinceRevision > 0 && sinceRevision == sess.Revision {
			snap = &Snapshot{Session: *sess, NotModified: true}
			return nil
		}
		items, err := tx.ListItems(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		negs, err := tx.ListActiveNegotiations(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("listing negotiations: %w", err)
		}
		snap = &Snapshot{
			Session:      *sess,
			Items:        GroupByStatus(items),
			Negotiations: nonNilNegotiations(negs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GetItemsByStatus returns the three-column cart view with live totals.
func (s *Service) GetItemsByStatus(ctx context.Context, p Principal, sessionID string) (*ItemsByStatus, error) {
	var view ItemsByStatus
	err := s.store.InTx(ctx, func(tx Repository) error {
		sess, err := s.loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := authorize(p, sess); err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		view = GroupByStatus(items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetActiveNegotiations lists PENDING and COUNTER_OFFERED negotiations.
func (s *Service) GetActiveNegotiations(ctx context.Context, p Principal, sessionID string) ([]negotiation.Negotiation, error) {
	sess, err := s.loadSession(ctx, s.store, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, sess); err != nil {
		return nil, err
	}
	negs, err := s.store.ListActiveNegotiations(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing negotiations: %w", err)
	}
	return nonNilNegotiations(negs), nil
}

// GetNegotiationHistory lists every negotiation ever opened on an item, oldest first.
func (s *Service) GetNegotiationHistory(ctx context.Context, p Principal, sessionID, cartItemID string) ([]negotiation.Negotiation, error) {
	if cartItemID == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.loadSession(ctx, s.store, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, sess); err != nil {
		return nil, err
	}
	negs, err := s.store.ListNegotiations(ctx, sessionID, cartItemID)
	if err != nil {
		return nil, fmt.Errorf("listing negotiation history: %w", err)
	}
	return nonNilNegotiations(negs), nil
}

// GetOrder returns the order created from a converted session.
func (s *Service) GetOrder(ctx context.Context, p Principal, sessionID string) (*Order, error) {
	sess, err := s.GetSession(ctx, p, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OrderID == nil {
		return nil, ErrOrderNotFound
	}
	order, err := s.store.GetOrder(ctx, *sess.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("loading order: %w", err)
	}
	return order, nil
}

// Heartbeat refreshes the session's last activity without bumping its revision.
func (s *Service) Heartbeat(ctx context.Context, p Principal, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var sess *Session
	err := s.store.InTx(ctx, func(tx Repository) error {
		loaded, err := s.loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := authorize(p, loaded); err != nil {
			return err
		}
		if loaded.Status != StatusActive {
			return ErrInvalidState
		}
		loaded.LastActivity = s.now()
		if err := tx.UpdateSession(ctx, loaded); err != nil {
			return fmt.Errorf("updating session: %w", err)
		}
		sess = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SearchCatalog finds in-stock batches by product name or batch code.
func (s *Service) SearchCatalog(ctx context.Context, query string, limit int) ([]CatalogBatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	batches, err := s.catalog.SearchBatches(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	if batches == nil {
		batches = []CatalogBatch{}
	}
	return batches, nil
}

func (s *Service) loadSession(ctx context.Context, repo Repository, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

func loadItem(ctx context.Context, repo Repository, sessionID, itemID string) (*CartItem, error) {
	if itemID == "" {
		return nil, ErrInvalidInput
	}
	item, err := repo.GetItem(ctx, sessionID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("loading item: %w", err)
	}
	return item, nil
}

func nonNilNegotiations(negs []negotiation.Negotiation) []negotiation.Negotiation {
	if negs == nil {
		return []negotiation.Negotiation{}
	}
	return negs
}
