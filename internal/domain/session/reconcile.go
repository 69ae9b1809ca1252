package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/shopspring/decimal"
)

// EndResult describes a terminated session.
type EndResult struct {
	Session Session `json:"session"`
	Order   *Order  `json:"order,omitempty"`
}

// EndSession terminates an ACTIVE session. With convertToOrder the
// TO_PURCHASE items are materialised into an order at their current unit
// price; other items stay in the session for audit but are not ordered. The
// order rows and the ENDED transition commit together, so a failed
// conversion leaves the session ACTIVE and the call can be retried. Ending
// an ENDED session fails with ErrInvalidState.
func (s *Service) EndSession(ctx context.Context, p Principal, sessionID string, convertToOrder bool) (*EndResult, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}

	var order *Order
	sess, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		items, err := m.tx.ListItems(ctx, m.sess.ID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}

		outcome := OutcomeClosed
		if convertToOrder {
			order, err = buildOrder(m.sess, items, m.now)
			if err != nil {
				return err
			}
			if err := m.tx.CreateOrder(ctx, order); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return fmt.Errorf("%w: order already exists", ErrInvalidState)
				}
				return fmt.Errorf("creating order: %w", err)
			}
			m.sess.OrderID = &order.ID
			outcome = OutcomeConverted
			m.log(activity.TypeOrderCreated, "",
				fmt.Sprintf("order %s created with %d lines totalling %s", order.ID, len(order.Lines), order.Total),
				map[string]any{"order_id": order.ID, "lines": len(order.Lines), "total": order.Total.String()})
		}

		if err := closeSession(ctx, m, items, outcome, "session ended"); err != nil {
			return err
		}
		if order != nil {
			m.emit(EventOrderCreated, "", map[string]string{"total": order.Total.String()})
			m.events[len(m.events)-1].OrderID = order.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session ended",
		"session_id", sess.ID,
		"outcome", sess.Outcome,
		"converted", order != nil,
	)
	return &EndResult{Session: *sess, Order: order}, nil
}

// buildOrder materialises the TO_PURCHASE items of a session.
func buildOrder(sess *Session, items []CartItem, now time.Time) (*Order, error) {
	order := &Order{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		Total:     decimal.Zero,
		CreatedAt: now,
	}
	for _, item := range items {
		if item.Status != ItemToPurchase {
			continue
		}
		subtotal := item.Subtotal()
		order.Lines = append(order.Lines, OrderLine{
			CartItemID:  item.ID,
			ProductID:   item.ProductID,
			BatchID:     item.BatchID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    subtotal,
		})
		order.Total = order.Total.Add(subtotal)
	}
	if len(order.Lines) == 0 {
		return nil, ErrNothingToPurchase
	}
	return order, nil
}

// closeSession cancels open negotiations and flips the session to ENDED.
func closeSession(ctx context.Context, m *mutation, items []CartItem, outcome Outcome, reason string) error {
	for _, item := range items {
		if _, err := cancelActiveNegotiation(ctx, m, item.ID, reason); err != nil {
			return err
		}
	}
	ended := m.now
	m.sess.Status = StatusEnded
	m.sess.Outcome = outcome
	m.sess.EndedAt = &ended

	m.log(activity.TypeSessionEnded, "", fmt.Sprintf("session ended: %s", outcome),
		map[string]string{"outcome": string(outcome)})
	m.emit(EventSessionEnded, "", map[string]string{"outcome": string(outcome)})
	return nil
}

var errNotIdle = errors.New("session saw recent activity")

// ExpireIdle ends every ACTIVE session whose last activity is older than
// idleTimeout, without creating an order. It returns the number of sessions
// expired. Failures on individual sessions are logged and skipped.
func (s *Service) ExpireIdle(ctx context.Context, idleTimeout time.Duration) (int, error) {
	if idleTimeout <= 0 {
		return 0, ErrInvalidInput
	}
	cutoff := s.now().Add(-idleTimeout)
	idle, err := s.store.ListIdleSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing idle sessions: %w", err)
	}

	expired := 0
	for _, candidate := range idle {
		_, err := s.mutate(ctx, candidate.ID, systemPrincipal, func(ctx context.Context, m *mutation) error {
			// A heartbeat may have landed between the listing and the lock.
			if m.sess.LastActivity.After(cutoff) {
				return errNotIdle
			}
			items, err := m.tx.ListItems(ctx, m.sess.ID)
			if err != nil {
				return fmt.Errorf("listing items: %w", err)
			}
			return closeSession(ctx, m, items, OutcomeExpired, "session expired")
		})
		switch {
		case err == nil:
			expired++
			s.logger.Info("session expired", "session_id", candidate.ID, "last_activity", candidate.LastActivity)
		case errors.Is(err, errNotIdle), errors.Is(err, ErrInvalidState):
		default:
			s.logger.Error("expiring session failed", "session_id", candidate.ID, "error", err)
		}
	}
	return expired, nil
}

// RunReaper calls ExpireIdle every interval until ctx is cancelled.
func (s *Service) RunReaper(ctx context.Context, interval, idleTimeout time.Duration) {
	if interval <= 0 || idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireIdle(ctx, idleTimeout); err != nil && ctx.Err() == nil {
				s.logger.Error("idle reaper failed", "error", err)
			}
		}
	}
}
