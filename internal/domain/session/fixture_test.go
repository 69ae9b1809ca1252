package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository/mocks"
	"github.com/rpggio/liveshop/internal/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *session.Service
	store    *sqlite.Store
	catalog  *sqlite.CatalogRepository
	notifier *mocks.Notifier
	clock    *fakeClock
	staff    session.Principal
	customer session.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	catalog := sqlite.NewCatalogRepository(db)
	require.NoError(t, catalog.Upsert(context.Background(),
		session.CatalogBatch{BatchID: "batch-a", ProductID: "prod-a", ProductName: "Alpha", BatchCode: "A-1", UnitPrice: d("10"), OnHand: d("100")},
		session.CatalogBatch{BatchID: "batch-a2", ProductID: "prod-a", ProductName: "Alpha", BatchCode: "A-2", UnitPrice: d("11"), OnHand: d("100")},
		session.CatalogBatch{BatchID: "batch-b", ProductID: "prod-b", ProductName: "Bravo", BatchCode: "B-1", UnitPrice: d("5"), OnHand: d("100")},
		session.CatalogBatch{BatchID: "batch-c", ProductID: "prod-c", ProductName: "Charlie", BatchCode: "C-1", UnitPrice: d("50"), OnHand: d("100")},
		session.CatalogBatch{BatchID: "batch-d", ProductID: "prod-d", ProductName: "Delta", BatchCode: "D-1", UnitPrice: d("120"), OnHand: d("100")},
	))

	notifier := &mocks.Notifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := sqlite.NewStore(db)

	return &fixture{
		svc:      session.NewService(store, catalog, notifier, nil, session.WithClock(clock.Now)),
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		clock:    clock,
		staff:    session.Staff("staff-1"),
		customer: session.Customer("client-1"),
	}
}

func (f *fixture) newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.svc.CreateSession(context.Background(), f.staff, session.CreateSessionRequest{ClientID: "client-1", Title: "Spring drop"})
	require.NoError(t, err)
	return sess
}

func (f *fixture) addItem(t *testing.T, sessionID, batchID, qty string, status session.ItemStatus) *session.CartItem {
	t.Helper()
	item, err := f.svc.AddItem(context.Background(), f.staff, sessionID, session.AddItemRequest{
		BatchID:  batchID,
		Quantity: d(qty),
		Status:   status,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) item(t *testing.T, sessionID, itemID string) session.CartItem {
	t.Helper()
	item, err := f.store.GetItem(context.Background(), sessionID, itemID)
	require.NoError(t, err)
	return *item
}

// events returns the notifications sent so far, optionally filtered by type.
func (f *fixture) events(types ...session.EventType) []session.Event {
	var out []session.Event
	for _, call := range f.notifier.Calls {
		if call.Method != "Notify" {
			continue
		}
		event := call.Arguments.Get(1).(session.Event)
		if len(types) == 0 {
			out = append(out, event)
			continue
		}
		for _, typ := range types {
			if event.Type == typ {
				out = append(out, event)
			}
		}
	}
	return out
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}
