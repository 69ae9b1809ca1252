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

// AddItemRequest adds a catalog batch to the cart.
type AddItemRequest struct {
	BatchID  string
	Quantity decimal.Decimal
	// Status defaults to INTERESTED when empty.
	Status ItemStatus
}

// AddItem puts a batch in the cart at the session override price for its
// product, or the catalog price when there is none. Adding a batch that is
// already in the cart increases its quantity.
func (s *Service) AddItem(ctx context.Context, p Principal, sessionID string, req AddItemRequest) (*CartItem, error) {
	if req.BatchID == "" {
		return nil, ErrInvalidInput
	}
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidAmount
	}
	status := req.Status
	if status == "" {
		status = ItemInterested
	}
	if _, err := ParseItemStatus(string(status)); err != nil {
		return nil, err
	}

	batch, err := s.catalog.GetBatch(ctx, req.BatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("loading batch: %w", err)
	}

	var added *CartItem
	_, err = s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		items, err := m.tx.ListItems(ctx, m.sess.ID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		for i := range items {
			if items[i].BatchID != batch.BatchID {
				continue
			}
			item := items[i]
			item.Quantity = item.Quantity.Add(req.Quantity)
			item.UpdatedAt = m.now
			if err := m.tx.UpdateItem(ctx, &item); err != nil {
				return fmt.Errorf("updating item: %w", err)
			}
			m.log(activity.TypeQuantityChanged, item.ID,
				fmt.Sprintf("%s quantity now %s", item.ProductName, item.Quantity), map[string]string{"quantity": item.Quantity.String()})
			m.emit(EventCartUpdated, item.ID, nil)
			added = &item
			return nil
		}

		price := batch.UnitPrice
		override, err := m.tx.GetPriceOverride(ctx, m.sess.ID, batch.ProductID)
		switch {
		case err == nil:
			price = override
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("loading price override: %w", err)
		}

		item := &CartItem{
			ID:          uuid.NewString(),
			SessionID:   m.sess.ID,
			ProductID:   batch.ProductID,
			BatchID:     batch.BatchID,
			ProductName: batch.ProductName,
			BatchCode:   batch.BatchCode,
			Quantity:    req.Quantity,
			UnitPrice:   price,
			Status:      status,
			AddedBy:     p.Actor,
			CreatedAt:   m.now,
			UpdatedAt:   m.now,
		}
		if err := m.tx.AddItem(ctx, item); err != nil {
			return fmt.Errorf("adding item: %w", err)
		}
		m.log(activity.TypeItemAdded, item.ID,
			fmt.Sprintf("added %s %s x%s", item.ProductName, item.BatchCode, item.Quantity),
			map[string]string{"batch_id": item.BatchID, "unit_price": price.String(), "status": string(status)})
		m.emit(EventCartUpdated, item.ID, nil)
		added = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// UpdateQuantity sets a positive quantity on a cart item.
func (s *Service) UpdateQuantity(ctx context.Context, p Principal, sessionID, cartItemID string, quantity decimal.Decimal) (*CartItem, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var updated *CartItem
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		item, err := loadItem(ctx, m.tx, m.sess.ID, cartItemID)
		if err != nil {
			return err
		}
		previous := item.Quantity
		item.Quantity = quantity
		item.UpdatedAt = m.now
		if err := m.tx.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		m.log(activity.TypeQuantityChanged, item.ID,
			fmt.Sprintf("%s quantity %s -> %s", item.ProductName, previous, quantity),
			map[string]string{"from": previous.String(), "to": quantity.String()})
		m.emit(EventCartUpdated, item.ID, nil)
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem deletes a cart item for either actor. An active negotiation on
// the item is cancelled first so its history stays readable.
func (s *Service) RemoveItem(ctx context.Context, p Principal, sessionID, cartItemID string) error {
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		item, err := loadItem(ctx, m.tx, m.sess.ID, cartItemID)
		if err != nil {
			return err
		}
		if _, err := cancelActiveNegotiation(ctx, m, item.ID, "item removed"); err != nil {
			return err
		}
		if err := m.tx.DeleteItem(ctx, m.sess.ID, item.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("deleting item: %w", err)
		}
		m.log(activity.TypeItemRemoved, item.ID,
			fmt.Sprintf("removed %s %s", item.ProductName, item.BatchCode), nil)
		m.emit(EventCartUpdated, item.ID, nil)
		return nil
	})
	return err
}

// RemoveFromCart is the staff form of RemoveItem.
func (s *Service) RemoveFromCart(ctx context.Context, p Principal, sessionID, cartItemID string) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	return s.RemoveItem(ctx, p, sessionID, cartItemID)
}

// cancelActiveNegotiation closes the item's active negotiation, if any, and
// reports whether one was cancelled.
func cancelActiveNegotiation(ctx context.Context, m *mutation, cartItemID, reason string) (bool, error) {
	n, err := m.tx.GetActiveNegotiation(ctx, m.sess.ID, cartItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading negotiation: %w", err)
	}
	if err := n.Cancel(m.principal.Actor.party(), reason, m.now); err != nil {
		return false, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err := m.tx.UpdateNegotiation(ctx, n); err != nil {
		return false, fmt.Errorf("updating negotiation: %w", err)
	}
	m.log(activity.TypeNegotiationCancelled, cartItemID, "negotiation cancelled: "+reason,
		map[string]string{"negotiation_id": n.ID})
	m.emit(EventNegotiationUpdated, cartItemID, map[string]string{"status": string(negotiation.StatusCancelled)})
	return true, nil
}
