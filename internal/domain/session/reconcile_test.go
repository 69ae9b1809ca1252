package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// Scenario D: mixed cart converted to an order.
func TestEndSession_ConvertsToPurchaseItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	a := f.addItem(t, sess.ID, "batch-a", "3", session.ItemToPurchase)
	c := f.addItem(t, sess.ID, "batch-c", "2", session.ItemToPurchase)
	b := f.addItem(t, sess.ID, "batch-b", "4", session.ItemInterested)
	f.addItem(t, sess.ID, "batch-d", "1", session.ItemSampleRequest)

	propose(t, f, sess.ID, c.ID, "45", "")
	_, err := respond(f, f.staff, sess.ID, c.ID, negotiation.ResponseAccept, "")
	require.NoError(t, err)
	propose(t, f, sess.ID, b.ID, "4", "")

	result, err := f.svc.EndSession(ctx, f.staff, sess.ID, true)
	require.NoError(t, err)
	require.Equal(t, session.StatusEnded, result.Session.Status)
	require.Equal(t, session.OutcomeConverted, result.Session.Outcome)
	require.NotNil(t, result.Session.EndedAt)
	require.NotNil(t, result.Order)
	require.Equal(t, result.Order.ID, *result.Session.OrderID)

	require.Len(t, result.Order.Lines, 2)
	// 3 x 10 + 2 x 45
	requireDecimal(t, "120", result.Order.Total)
	lines := map[string]session.OrderLine{}
	for _, line := range result.Order.Lines {
		lines[line.CartItemID] = line
	}
	requireDecimal(t, "10", lines[a.ID].UnitPrice)
	requireDecimal(t, "45", lines[c.ID].UnitPrice)
	requireDecimal(t, "90", lines[c.ID].Subtotal)

	order, err := f.svc.GetOrder(ctx, f.customer, sess.ID)
	require.NoError(t, err)
	require.Equal(t, result.Order.ID, order.ID)
	requireDecimal(t, "120", order.Total)
	require.Len(t, order.Lines, 2)

	// Dangling negotiations are cancelled and the cart is retained.
	history, err := f.svc.GetNegotiationHistory(ctx, f.staff, sess.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, negotiation.StatusCancelled, history[0].Status)
	grouped, err := f.svc.GetItemsByStatus(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Len(t, grouped.Interested, 1)
	require.Len(t, grouped.SampleRequest, 1)

	created := f.events(session.EventOrderCreated)
	require.Len(t, created, 1)
	require.Equal(t, order.ID, created[0].OrderID)
	require.Len(t, f.events(session.EventSessionEnded), 1)
}

func TestEndSession_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	f.addItem(t, sess.ID, "batch-a", "1", session.ItemToPurchase)

	first, err := f.svc.EndSession(ctx, f.staff, sess.ID, true)
	require.NoError(t, err)

	_, err = f.svc.EndSession(ctx, f.staff, sess.ID, true)
	require.ErrorIs(t, err, session.ErrInvalidState)
	_, err = f.svc.EndSession(ctx, f.staff, sess.ID, false)
	require.ErrorIs(t, err, session.ErrInvalidState)

	order, err := f.svc.GetOrder(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Equal(t, first.Order.ID, order.ID)
	require.Len(t, f.events(session.EventOrderCreated), 1)
}

func TestEndSession_ConcurrentConversions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	f.addItem(t, sess.ID, "batch-a", "1", session.ItemToPurchase)

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.EndSession(ctx, f.staff, sess.ID, true)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, session.ErrInvalidState)
	}
	require.Equal(t, 1, succeeded)
	require.Len(t, f.events(session.EventOrderCreated), 1)
}

func TestEndSession_CloseWithoutConvert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemToPurchase)

	result, err := f.svc.EndSession(ctx, f.staff, sess.ID, false)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeClosed, result.Session.Outcome)
	require.Nil(t, result.Order)
	require.Nil(t, result.Session.OrderID)

	_, err = f.svc.GetOrder(ctx, f.staff, sess.ID)
	require.ErrorIs(t, err, session.ErrOrderNotFound)

	// Every mutation is refused once the session has ended.
	_, err = f.svc.AddItem(ctx, f.staff, sess.ID, session.AddItemRequest{BatchID: "batch-b", Quantity: d("1")})
	require.ErrorIs(t, err, session.ErrInvalidState)
	_, err = f.svc.UpdateQuantity(ctx, f.customer, sess.ID, item.ID, d("2"))
	require.ErrorIs(t, err, session.ErrInvalidState)
	_, err = f.svc.ProposePrice(ctx, f.customer, sess.ID, session.ProposePriceRequest{CartItemID: item.ID, Price: d("5")})
	require.ErrorIs(t, err, session.ErrInvalidState)
	_, err = f.svc.SetOverridePrice(ctx, f.staff, sess.ID, "prod-a", d("5"))
	require.ErrorIs(t, err, session.ErrInvalidState)
	err = f.svc.RemoveItem(ctx, f.staff, sess.ID, item.ID)
	require.ErrorIs(t, err, session.ErrInvalidState)
	_, err = f.svc.RequestCheckout(ctx, f.customer, sess.ID)
	require.ErrorIs(t, err, session.ErrInvalidState)

	// Reads still work.
	snap, err := f.svc.GetSnapshot(ctx, f.customer, sess.ID, 0)
	require.NoError(t, err)
	require.Equal(t, session.StatusEnded, snap.Session.Status)
	require.Len(t, snap.Items.ToPurchase, 1)
}

func TestEndSession_NothingToPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	f.addItem(t, sess.ID, "batch-a", "1", session.ItemInterested)

	_, err := f.svc.EndSession(ctx, f.staff, sess.ID, true)
	require.ErrorIs(t, err, session.ErrNothingToPurchase)
	require.Equal(t, session.KindInvalidState, session.Kind(err))

	got, err := f.svc.GetSession(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusActive, got.Status)
}

func TestEndSession_StaffOnly(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.svc.EndSession(context.Background(), f.customer, sess.ID, false)
	require.ErrorIs(t, err, session.ErrForbidden)
}

// failingOrderStore refuses to write orders while fail is set.
type failingOrderStore struct {
	*sqlite.Store
	fail bool
}

func (s *failingOrderStore) InTx(ctx context.Context, fn func(tx session.Repository) error) error {
	return s.Store.InTx(ctx, func(tx session.Repository) error {
		if s.fail {
			return fn(failingOrderRepo{tx})
		}
		return fn(tx)
	})
}

type failingOrderRepo struct {
	session.Repository
}

func (failingOrderRepo) CreateOrder(context.Context, *session.Order) error {
	return errors.New("disk I/O error")
}

func TestEndSession_FailedConversionCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-c", "1", session.ItemToPurchase)
	propose(t, f, sess.ID, item.ID, "45", "")

	store := &failingOrderStore{Store: f.store, fail: true}
	svc := session.NewService(store, f.catalog, f.notifier, nil, session.WithClock(f.clock.Now))

	_, err := svc.EndSession(ctx, f.staff, sess.ID, true)
	require.Error(t, err)
	require.Equal(t, session.KindInternal, session.Kind(err))

	got, err := svc.GetSession(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusActive, got.Status)
	require.Nil(t, got.OrderID)

	active, err := svc.GetActiveNegotiations(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Len(t, active, 1, "cancellation rolled back with the failed conversion")

	store.fail = false
	result, err := svc.EndSession(ctx, f.staff, sess.ID, true)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeConverted, result.Session.Outcome)
	requireDecimal(t, "50", result.Order.Total)
}

func TestExpireIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stale := f.newSession(t)
	fresh := f.newSession(t)
	ended := f.newSession(t)
	_, err := f.svc.EndSession(ctx, f.staff, ended.ID, false)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	_, err = f.svc.Heartbeat(ctx, f.customer, fresh.ID)
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	expired, err := f.svc.ExpireIdle(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	got, err := f.svc.GetSession(ctx, f.staff, stale.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusEnded, got.Status)
	require.Equal(t, session.OutcomeExpired, got.Outcome)
	require.Nil(t, got.OrderID)

	got, err = f.svc.GetSession(ctx, f.staff, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusActive, got.Status)

	got, err = f.svc.GetSession(ctx, f.staff, ended.ID)
	require.NoError(t, err)
	require.Equal(t, session.OutcomeClosed, got.Outcome)

	expired, err = f.svc.ExpireIdle(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 0, expired)

	_, err = f.svc.ExpireIdle(ctx, 0)
	require.ErrorIs(t, err, session.ErrInvalidInput)
}

func TestRunReaper_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.svc.RunReaper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
