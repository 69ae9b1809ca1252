package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
)

// CreateOrder inserts an order and its lines. orders.session_id is unique,
// so a second order for the same session yields ErrConflict.
func (s *Store) CreateOrder(ctx context.Context, order *session.Order) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO orders (id, session_id, client_id, total, created_at) VALUES (?, ?, ?, ?, ?)`,
		order.ID,
		order.SessionID,
		order.ClientID,
		order.Total,
		order.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (
			order_id, line_no, cart_item_id, product_id, batch_id,
			product_name, quantity, unit_price, subtotal
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, line := range order.Lines {
		if _, err := s.q.ExecContext(ctx, lineQuery,
			order.ID,
			i+1,
			line.CartItemID,
			line.ProductID,
			line.BatchID,
			line.ProductName,
			line.Quantity,
			line.UnitPrice,
			line.Subtotal,
		); err != nil {
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	return nil
}

// GetOrder retrieves an order with its lines
func (s *Store) GetOrder(ctx context.Context, id string) (*session.Order, error) {
	var order session.Order
	err := s.q.QueryRowContext(ctx,
		`SELECT id, session_id, client_id, total, created_at FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.SessionID, &order.ClientID, &order.Total, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT cart_item_id, product_id, batch_id, product_name, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = ? ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line session.OrderLine
		if err := rows.Scan(
			&line.CartItemID,
			&line.ProductID,
			&line.BatchID,
			&line.ProductName,
			&line.Quantity,
			&line.UnitPrice,
			&line.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return &order, nil
}
