package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/shopspring/decimal"
)

const itemColumns = `
	id, session_id, product_id, batch_id, product_name, batch_code,
	quantity, unit_price, status, highlighted, added_by, created_at, updated_at`

// AddItem inserts a cart item
func (s *Store) AddItem(ctx context.Context, item *session.CartItem) error {
	query := `INSERT INTO cart_items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		item.ID,
		item.SessionID,
		item.ProductID,
		item.BatchID,
		item.ProductName,
		item.BatchCode,
		item.Quantity,
		item.UnitPrice,
		item.Status,
		item.Highlighted,
		item.AddedBy,
		item.CreatedAt.UTC(),
		item.UpdatedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

// GetItem retrieves a cart item within a session
func (s *Store) GetItem(ctx context.Context, sessionID, itemID string) (*session.CartItem, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM cart_items WHERE id = ? AND session_id = ?`, itemID, sessionID)
	return scanItem(row)
}

// ListItems returns a session's cart items in insertion order
func (s *Store) ListItems(ctx context.Context, sessionID string) ([]session.CartItem, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM cart_items WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []session.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart item rows: %w", err)
	}
	return items, nil
}

// UpdateItem writes the mutable item fields
func (s *Store) UpdateItem(ctx context.Context, item *session.CartItem) error {
	query := `
		UPDATE cart_items
		SET quantity = ?, unit_price = ?, status = ?, highlighted = ?, updated_at = ?
		WHERE id = ? AND session_id = ?
	`

	result, err := s.q.ExecContext(ctx, query,
		item.Quantity,
		item.UnitPrice,
		item.Status,
		item.Highlighted,
		item.UpdatedAt.UTC(),
		item.ID,
		item.SessionID,
	)
	if err != nil {
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return requireAffected(result)
}

// DeleteItem removes a cart item
func (s *Store) DeleteItem(ctx context.Context, sessionID, itemID string) error {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND session_id = ?`, itemID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return requireAffected(result)
}

// SetPriceOverride upserts the session price for a product
func (s *Store) SetPriceOverride(ctx context.Context, sessionID, productID string, price decimal.Decimal) error {
	query := `
		INSERT INTO price_overrides (session_id, product_id, price, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, product_id)
		DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at
	`

	if _, err := s.q.ExecContext(ctx, query, sessionID, productID, price); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to set price override: %w", err)
	}
	return nil
}

// GetPriceOverride returns the session price for a product
func (s *Store) GetPriceOverride(ctx context.Context, sessionID, productID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.q.QueryRowContext(ctx,
		`SELECT price FROM price_overrides WHERE session_id = ? AND product_id = ?`,
		sessionID, productID).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, repository.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price override: %w", err)
	}
	return price, nil
}

func scanItem(row rowScanner) (*session.CartItem, error) {
	var item session.CartItem
	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.ProductID,
		&item.BatchID,
		&item.ProductName,
		&item.BatchCode,
		&item.Quantity,
		&item.UnitPrice,
		&item.Status,
		&item.Highlighted,
		&item.AddedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart item: %w", err)
	}
	return &item, nil
}
