package mocks

import (
	"context"
	"time"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Catalog is a mock for session.Catalog.
type Catalog struct {
	mock.Mock
}

func (m *Catalog) GetBatch(ctx context.Context, batchID string) (*session.CatalogBatch, error) {
	args := m.Called(ctx, batchID)
	if batch, ok := args.Get(0).(*session.CatalogBatch); ok {
		return batch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Catalog) SearchBatches(ctx context.Context, query string, limit int) ([]session.CatalogBatch, error) {
	args := m.Called(ctx, query, limit)
	if list, ok := args.Get(0).([]session.CatalogBatch); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock for session.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, event session.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// APIKeyRepository is a mock for repository.APIKeyRepository.
type APIKeyRepository struct {
	mock.Mock
}

func (m *APIKeyRepository) Create(ctx context.Context, key repository.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *APIKeyRepository) Lookup(ctx context.Context, keyHash string) (*repository.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if key, ok := args.Get(0).(*repository.APIKey); ok {
		return key, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *APIKeyRepository) Touch(ctx context.Context, keyHash string, at time.Time) error {
	args := m.Called(ctx, keyHash, at)
	return args.Error(0)
}
