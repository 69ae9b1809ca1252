package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/liveshop/internal/repository"
)

// APIKeyRepository implements repository.APIKeyRepository for SQLite
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a hashed key
func (r *APIKeyRepository) Create(ctx context.Context, key repository.APIKey) error {
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, actor, subject_id, created_at, description)
		VALUES (?, ?, ?, ?, ?)`,
		key.KeyHash, key.Actor, key.SubjectID, createdAt.UTC(), key.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isCheckViolation(err) {
			return repository.ErrInvalidInput
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// Lookup resolves a key hash
func (r *APIKeyRepository) Lookup(ctx context.Context, keyHash string) (*repository.APIKey, error) {
	var key repository.APIKey
	var lastUsed sql.NullTime
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT key_hash, actor, subject_id, created_at, last_used, description
		FROM api_keys WHERE key_hash = ?`, keyHash,
	).Scan(&key.KeyHash, &key.Actor, &key.SubjectID, &key.CreatedAt, &lastUsed, &description)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup api key: %w", err)
	}
	if lastUsed.Valid {
		key.LastUsed = &lastUsed.Time
	}
	key.Description = description.String
	return &key, nil
}

// Touch records when a key was last used
func (r *APIKeyRepository) Touch(ctx context.Context, keyHash string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, at.UTC(), keyHash)
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return requireAffected(result)
}
