package session

import (
	"context"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/shopspring/decimal"
)

// OverrideResult reports what a staff price override touched.
type OverrideResult struct {
	Repriced              []CartItem `json:"repriced"`
	CancelledNegotiations int        `json:"cancelled_negotiations"`
}

// SetOverridePrice sets the session price for a product. Every cart item of
// the product is repriced and any active negotiation on those items is
// cancelled, since the staff price supersedes it. Items added later pick up
// the override.
func (s *Service) SetOverridePrice(ctx context.Context, p Principal, sessionID, productID string, price decimal.Decimal) (*OverrideResult, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, ErrInvalidInput
	}
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}

	result := &OverrideResult{Repriced: []CartItem{}}
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		if err := m.tx.SetPriceOverride(ctx, m.sess.ID, productID, price); err != nil {
			return fmt.Errorf("saving price override: %w", err)
		}

		items, err := m.tx.ListItems(ctx, m.sess.ID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		for i := range items {
			item := items[i]
			if item.ProductID != productID {
				continue
			}
			cancelled, err := cancelActiveNegotiation(ctx, m, item.ID, "superseded by price override")
			if err != nil {
				return err
			}
			if cancelled {
				result.CancelledNegotiations++
			}
			item.UnitPrice = price
			item.UpdatedAt = m.now
			if err := m.tx.UpdateItem(ctx, &item); err != nil {
				return fmt.Errorf("repricing item: %w", err)
			}
			result.Repriced = append(result.Repriced, item)
		}

		m.log(activity.TypePriceOverridden, "",
			fmt.Sprintf("product %s set to %s", productID, price),
			map[string]any{"product_id": productID, "price": price.String(), "items": len(result.Repriced)})
		m.emit(EventCartUpdated, "", map[string]string{"product_id": productID, "price": price.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HighlightProduct flags the cart items of a batch for customer attention.
// Highlighting one batch clears the flag everywhere else in the session.
// Returns the number of items that carry the batch.
func (s *Service) HighlightProduct(ctx context.Context, p Principal, sessionID, batchID string, highlighted bool) (int, error) {
	if err := requireStaff(p); err != nil {
		return 0, err
	}
	if batchID == "" {
		return 0, ErrInvalidInput
	}

	matched := 0
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		items, err := m.tx.ListItems(ctx, m.sess.ID)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		for i := range items {
			item := items[i]
			want := item.Highlighted
			switch {
			case item.BatchID == batchID:
				matched++
				want = highlighted
			case highlighted:
				want = false
			}
			if want == item.Highlighted {
				continue
			}
			item.Highlighted = want
			item.UpdatedAt = m.now
			if err := m.tx.UpdateItem(ctx, &item); err != nil {
				return fmt.Errorf("updating item: %w", err)
			}
		}

		m.log(activity.TypeProductHighlighted, "",
			fmt.Sprintf("batch %s highlighted=%t", batchID, highlighted),
			map[string]any{"batch_id": batchID, "highlighted": highlighted})
		if highlighted {
			m.emit(EventHighlight, "", map[string]string{"batch_id": batchID})
		}
		m.emit(EventCartUpdated, "", nil)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}
