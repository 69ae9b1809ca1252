package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/shopspring/decimal"
)

// ProposePriceRequest is a customer's price ask on one item.
type ProposePriceRequest struct {
	CartItemID string
	Price      decimal.Decimal
	Reason     string
	// Quantity optionally names the quantity the price is asked for.
	Quantity *decimal.Decimal
}

// ProposePrice opens a PENDING negotiation. The item must have no active
// negotiation; its current unit price is captured as the original price.
func (s *Service) ProposePrice(ctx context.Context, p Principal, sessionID string, req ProposePriceRequest) (*negotiation.Negotiation, error) {
	if err := requireCustomer(p); err != nil {
		return nil, err
	}
	if err := negotiation.ValidatePrice(req.Price); err != nil {
		return nil, err
	}
	if req.Quantity != nil && !req.Quantity.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var opened *negotiation.Negotiation
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		item, err := loadItem(ctx, m.tx, m.sess.ID, req.CartItemID)
		if err != nil {
			return err
		}

		_, err = m.tx.GetActiveNegotiation(ctx, m.sess.ID, item.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: item is already under negotiation", ErrConflict)
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("loading negotiation: %w", err)
		}

		n, err := negotiation.Open(uuid.NewString(), m.sess.ID, item.ID, item.UnitPrice, req.Price, req.Reason, m.now)
		if err != nil {
			return err
		}
		details := map[string]string{"negotiation_id": n.ID, "proposed_price": req.Price.String(), "reason": req.Reason}
		if req.Quantity != nil {
			if err := n.ForQuantity(*req.Quantity); err != nil {
				return err
			}
			details["proposed_quantity"] = req.Quantity.String()
		}
		if err := m.tx.CreateNegotiation(ctx, n); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: item is already under negotiation", ErrConflict)
			}
			return fmt.Errorf("creating negotiation: %w", err)
		}

		m.log(activity.TypePriceProposed, item.ID,
			fmt.Sprintf("proposed %s for %s (was %s)", req.Price, item.ProductName, item.UnitPrice), details)
		m.emit(EventNegotiationUpdated, item.ID, map[string]string{"status": string(n.Status)})
		opened = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

// RespondRequest answers the outstanding offer on an item.
type RespondRequest struct {
	CartItemID   string
	Response     negotiation.Response
	CounterPrice *decimal.Decimal
}

// RespondToNegotiation applies ACCEPT, REJECT or COUNTER. Staff answers a
// PENDING proposal and the customer answers a counter offer. Acceptance writes
// the agreed price to the item in the same transaction as the status change.
// A negotiation that was resolved in the meantime yields ErrConflict.
func (s *Service) RespondToNegotiation(ctx context.Context, p Principal, sessionID string, req RespondRequest) (*negotiation.Negotiation, error) {
	if p.Actor != ActorStaff && p.Actor != ActorCustomer {
		return nil, ErrForbidden
	}
	if _, err := negotiation.ParseResponse(string(req.Response)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	var responded *negotiation.Negotiation
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		item, err := loadItem(ctx, m.tx, m.sess.ID, req.CartItemID)
		if err != nil {
			return err
		}

		n, err := m.tx.GetActiveNegotiation(ctx, m.sess.ID, item.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return inactiveNegotiationError(ctx, m, item.ID)
			}
			return fmt.Errorf("loading negotiation: %w", err)
		}

		outcome, err := n.Respond(p.Actor.party(), req.Response, req.CounterPrice, m.now)
		if err != nil {
			if errors.Is(err, negotiation.ErrInactive) {
				return fmt.Errorf("%w: %w", ErrConflict, err)
			}
			return err
		}
		if err := m.tx.UpdateNegotiation(ctx, n); err != nil {
			return fmt.Errorf("updating negotiation: %w", err)
		}

		details := map[string]string{"negotiation_id": n.ID, "response": string(req.Response), "status": string(n.Status)}
		if outcome.Applied {
			previous := item.UnitPrice
			item.UnitPrice = outcome.Price
			if outcome.Quantity != nil {
				item.Quantity = *outcome.Quantity
				details["quantity"] = outcome.Quantity.String()
			}
			item.UpdatedAt = m.now
			if err := m.tx.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("applying negotiated price: %w", err)
			}
			details["price"] = outcome.Price.String()
			m.emit(EventCartUpdated, item.ID, nil)
			m.log(activity.TypeNegotiationResponded, item.ID,
				fmt.Sprintf("%s accepted at %s (was %s)", item.ProductName, outcome.Price, previous), details)
		} else {
			if n.CounterPrice != nil && n.Status == negotiation.StatusCounterOffered {
				details["counter_price"] = n.CounterPrice.String()
			}
			m.log(activity.TypeNegotiationResponded, item.ID,
				fmt.Sprintf("%s negotiation %s", item.ProductName, n.Status), details)
		}
		m.emit(EventNegotiationUpdated, item.ID, map[string]string{"status": string(n.Status)})
		responded = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responded, nil
}

// inactiveNegotiationError distinguishes an item that was never negotiated
// from one whose negotiation was resolved by a racing call.
func inactiveNegotiationError(ctx context.Context, m *mutation, cartItemID string) error {
	history, err := m.tx.ListNegotiations(ctx, m.sess.ID, cartItemID)
	if err != nil {
		return fmt.Errorf("listing negotiations: %w", err)
	}
	if len(history) == 0 {
		return ErrNegotiationNotFound
	}
	return fmt.Errorf("%w: %w", ErrConflict, negotiation.ErrInactive)
}
