package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
)

// CatalogRepository implements session.Catalog over the catalog_batches table
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Upsert inserts or replaces catalog batches
func (r *CatalogRepository) Upsert(ctx context.Context, batches ...session.CatalogBatch) error {
	query := `
		INSERT INTO catalog_batches (batch_id, product_id, product_name, batch_code, unit_price, on_hand)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			product_id = excluded.product_id,
			product_name = excluded.product_name,
			batch_code = excluded.batch_code,
			unit_price = excluded.unit_price,
			on_hand = excluded.on_hand
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range batches {
		if b.BatchID == "" || b.ProductID == "" {
			return repository.ErrInvalidInput
		}
		if _, err := tx.ExecContext(ctx, query,
			b.BatchID, b.ProductID, b.ProductName, b.BatchCode, b.UnitPrice, b.OnHand,
		); err != nil {
			return fmt.Errorf("failed to upsert batch %s: %w", b.BatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by ID
func (r *CatalogRepository) GetBatch(ctx context.Context, batchID string) (*session.CatalogBatch, error) {
	var b session.CatalogBatch
	err := r.db.QueryRowContext(ctx, `
		SELECT batch_id, product_id, product_name, batch_code, unit_price, on_hand
		FROM catalog_batches WHERE batch_id = ?`, batchID,
	).Scan(&b.BatchID, &b.ProductID, &b.ProductName, &b.BatchCode, &b.UnitPrice, &b.OnHand)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &b, nil
}

// SearchBatches performs a full-text search over product names and batch
// codes. Batches with nothing on hand are left out.
func (r *CatalogRepository) SearchBatches(ctx context.Context, query string, limit int) ([]session.CatalogBatch, error) {
	match := ftsPrefixQuery(query)
	if match == "" {
		return []session.CatalogBatch{}, nil
	}

	sqlQuery := `
		SELECT b.batch_id, b.product_id, b.product_name, b.batch_code, b.unit_price, b.on_hand
		FROM catalog_fts
		JOIN catalog_batches b ON b.rowid = catalog_fts.rowid
		WHERE catalog_fts MATCH ?
		ORDER BY rank
	`
	rows, err := r.db.QueryContext(ctx, sqlQuery, match)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	defer rows.Close()

	results := []session.CatalogBatch{}
	for rows.Next() {
		var b session.CatalogBatch
		if err := rows.Scan(&b.BatchID, &b.ProductID, &b.ProductName, &b.BatchCode, &b.UnitPrice, &b.OnHand); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		// on_hand is stored as decimal text, so stock is filtered here.
		if !b.OnHand.IsPositive() {
			continue
		}
		results = append(results, b)
		if limit > 0 && len(results) == limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// ftsPrefixQuery turns free text into an FTS5 prefix query, quoting each
// term so user input cannot inject FTS operators.
func ftsPrefixQuery(input string) string {
	fields := strings.Fields(input)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}
