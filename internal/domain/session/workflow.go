package session

import (
	"context"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/activity"
)

// SetItemStatus moves an item to any workflow column. Both actors may do so
// and any status is reachable from any other. Price and negotiation state are
// left untouched.
func (s *Service) SetItemStatus(ctx context.Context, p Principal, sessionID, cartItemID string, status ItemStatus) (*CartItem, error) {
	if _, err := ParseItemStatus(string(status)); err != nil {
		return nil, err
	}

	var updated *CartItem
	_, err := s.mutate(ctx, sessionID, p, func(ctx context.Context, m *mutation) error {
		item, err := loadItem(ctx, m.tx, m.sess.ID, cartItemID)
		if err != nil {
			return err
		}
		previous := item.Status
		item.Status = status
		item.UpdatedAt = m.now
		if err := m.tx.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		m.log(activity.TypeStatusChanged, item.ID,
			fmt.Sprintf("%s moved %s -> %s", item.ProductName, previous, status),
			map[string]string{"from": string(previous), "to": string(status)})
		m.emit(EventCartUpdated, item.ID, map[string]string{"status": string(status)})
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateItemStatus is the customer form of SetItemStatus.
func (s *Service) UpdateItemStatus(ctx context.Context, p Principal, sessionID, cartItemID string, status ItemStatus) (*CartItem, error) {
	if err := requireCustomer(p); err != nil {
		return nil, err
	}
	return s.SetItemStatus(ctx, p, sessionID, cartItemID, status)
}
