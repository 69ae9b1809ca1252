package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/shopspring/decimal"
)

const negotiationColumns = `
	id, session_id, cart_item_id, original_price, proposed_price, proposed_quantity,
	counter_price, final_price, reason, status, history, created_at, updated_at, resolved_at`

// CreateNegotiation inserts a negotiation. The partial unique index on
// active negotiations turns a second active row for an item into ErrConflict.
func (s *Store) CreateNegotiation(ctx context.Context, n *negotiation.Negotiation) error {
	history, err := json.Marshal(n.History)
	if err != nil {
		return fmt.Errorf("failed to encode negotiation history: %w", err)
	}

	query := `INSERT INTO negotiations (` + negotiationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.q.ExecContext(ctx, query,
		n.ID,
		n.SessionID,
		n.CartItemID,
		n.OriginalPrice,
		n.ProposedPrice,
		nullDecimal(n.ProposedQuantity),
		nullDecimal(n.CounterPrice),
		nullDecimal(n.FinalPrice),
		n.Reason,
		n.Status,
		string(history),
		n.CreatedAt.UTC(),
		n.UpdatedAt.UTC(),
		utcPtr(n.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create negotiation: %w", err)
	}
	return nil
}

// UpdateNegotiation writes status, prices and history
func (s *Store) UpdateNegotiation(ctx context.Context, n *negotiation.Negotiation) error {
	history, err := json.Marshal(n.History)
	if err != nil {
		return fmt.Errorf("failed to encode negotiation history: %w", err)
	}

	query := `
		UPDATE negotiations
		SET counter_price = ?, final_price = ?, status = ?, history = ?,
		    updated_at = ?, resolved_at = ?
		WHERE id = ?
	`
	result, err := s.q.ExecContext(ctx, query,
		nullDecimal(n.CounterPrice),
		nullDecimal(n.FinalPrice),
		n.Status,
		string(history),
		n.UpdatedAt.UTC(),
		utcPtr(n.ResolvedAt),
		n.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to update negotiation: %w", err)
	}
	return requireAffected(result)
}

// GetActiveNegotiation returns the PENDING or COUNTER_OFFERED negotiation on an item
func (s *Store) GetActiveNegotiation(ctx context.Context, sessionID, cartItemID string) (*negotiation.Negotiation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations
		WHERE session_id = ? AND cart_item_id = ? AND status IN (?, ?)`,
		sessionID, cartItemID, negotiation.StatusPending, negotiation.StatusCounterOffered)
	return scanNegotiation(row)
}

// ListActiveNegotiations returns a session's active negotiations, oldest first
func (s *Store) ListActiveNegotiations(ctx context.Context, sessionID string) ([]negotiation.Negotiation, error) {
	return s.queryNegotiations(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations
		WHERE session_id = ? AND status IN (?, ?)
		ORDER BY rowid`,
		sessionID, negotiation.StatusPending, negotiation.StatusCounterOffered)
}

// ListNegotiations returns every negotiation on an item, oldest first
func (s *Store) ListNegotiations(ctx context.Context, sessionID, cartItemID string) ([]negotiation.Negotiation, error) {
	return s.queryNegotiations(ctx, `
		SELECT `+negotiationColumns+` FROM negotiations
		WHERE session_id = ? AND cart_item_id = ?
		ORDER BY rowid`,
		sessionID, cartItemID)
}

func (s *Store) queryNegotiations(ctx context.Context, query string, args ...any) ([]negotiation.Negotiation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list negotiations: %w", err)
	}
	defer rows.Close()

	negs := []negotiation.Negotiation{}
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		negs = append(negs, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating negotiation rows: %w", err)
	}
	return negs, nil
}

func scanNegotiation(row rowScanner) (*negotiation.Negotiation, error) {
	var n negotiation.Negotiation
	var proposedQuantity, counterPrice, finalPrice decimal.NullDecimal
	var history string
	var resolvedAt sql.NullTime
	err := row.Scan(
		&n.ID,
		&n.SessionID,
		&n.CartItemID,
		&n.OriginalPrice,
		&n.ProposedPrice,
		&proposedQuantity,
		&counterPrice,
		&finalPrice,
		&n.Reason,
		&n.Status,
		&history,
		&n.CreatedAt,
		&n.UpdatedAt,
		&resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan negotiation: %w", err)
	}

	if proposedQuantity.Valid {
		n.ProposedQuantity = &proposedQuantity.Decimal
	}
	if counterPrice.Valid {
		n.CounterPrice = &counterPrice.Decimal
	}
	if finalPrice.Valid {
		n.FinalPrice = &finalPrice.Decimal
	}
	if resolvedAt.Valid {
		n.ResolvedAt = &resolvedAt.Time
	}
	if err := json.Unmarshal([]byte(history), &n.History); err != nil {
		return nil, fmt.Errorf("failed to decode negotiation history: %w", err)
	}
	return &n, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
