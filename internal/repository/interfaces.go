package repository

import (
	"context"
	"time"
)

// APIKey maps a hashed bearer token to the actor it authenticates
type APIKey struct {
	KeyHash string
	// Actor is STAFF or CUSTOMER.
	Actor string
	// SubjectID is the staff user ID or the customer's client ID.
	SubjectID   string
	Description string
	CreatedAt   time.Time
	LastUsed    *time.Time
}

// APIKeyRepository manages API key persistence
type APIKeyRepository interface {
	Create(ctx context.Context, key APIKey) error
	Lookup(ctx context.Context, keyHash string) (*APIKey, error)
	Touch(ctx context.Context, keyHash string, at time.Time) error
}
