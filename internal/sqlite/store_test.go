package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStore_SessionCRUD(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	sess := insertSession(t, store, "s1", "c1")

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, sess.RoomCode, got.RoomCode)
	require.Equal(t, session.StatusActive, got.Status)
	require.Nil(t, got.OrderID)

	byCode, err := store.GetSessionByRoomCode(ctx, sess.RoomCode)
	require.NoError(t, err)
	require.Equal(t, "s1", byCode.ID)

	ended := time.Now()
	orderID := "o1"
	got.Status = session.StatusEnded
	got.Outcome = session.OutcomeConverted
	got.OrderID = &orderID
	got.EndedAt = &ended
	got.Revision = 5
	require.NoError(t, store.UpdateSession(ctx, got))

	reloaded, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, session.StatusEnded, reloaded.Status)
	require.Equal(t, session.OutcomeConverted, reloaded.Outcome)
	require.Equal(t, "o1", *reloaded.OrderID)
	require.Equal(t, int64(5), reloaded.Revision)
	require.NotNil(t, reloaded.EndedAt)

	_, err = store.GetSession(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = store.UpdateSession(ctx, &session.Session{ID: "missing", Status: session.StatusActive})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ListSessions(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	insertSession(t, store, "s1", "c1")
	insertSession(t, store, "s2", "c2")
	s3 := insertSession(t, store, "s3", "c1")
	s3.Status = session.StatusEnded
	require.NoError(t, store.UpdateSession(ctx, s3))

	all, err := store.ListSessions(ctx, session.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "s3", all[0].ID, "newest first")

	forClient, err := store.ListSessions(ctx, session.ListOptions{ClientID: "c1", Status: session.StatusActive})
	require.NoError(t, err)
	require.Len(t, forClient, 1)
	require.Equal(t, "s1", forClient[0].ID)

	paged, err := store.ListSessions(ctx, session.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, "s2", paged[0].ID)
}

func TestStore_ListIdleSessions(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)

	stale := insertSession(t, store, "stale", "c1")
	stale.LastActivity = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.UpdateSession(ctx, stale))
	insertSession(t, store, "fresh", "c1")

	idle, err := store.ListIdleSessions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, idle, 1)
	require.Equal(t, "stale", idle[0].ID)
}

func TestStore_Items(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	insertSession(t, store, "s1", "c1")
	insertSession(t, store, "s2", "c2")

	item := insertItem(t, store, "s1", "i1", "p1", "12.50")
	insertItem(t, store, "s1", "i2", "p2", "3")

	got, err := store.GetItem(ctx, "s1", "i1")
	require.NoError(t, err)
	require.True(t, got.UnitPrice.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, session.ItemInterested, got.Status)
	require.False(t, got.Highlighted)

	_, err = store.GetItem(ctx, "s2", "i1")
	require.ErrorIs(t, err, repository.ErrNotFound, "items are scoped to their session")

	item.Status = session.ItemToPurchase
	item.Quantity = decimal.NewFromInt(3)
	item.Highlighted = true
	require.NoError(t, store.UpdateItem(ctx, item))

	items, err := store.ListItems(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "i1", items[0].ID)
	require.Equal(t, session.ItemToPurchase, items[0].Status)
	require.True(t, items[0].Highlighted)
	require.True(t, items[0].Subtotal().Equal(decimal.RequireFromString("37.5")))

	item.Status = session.ItemStatus("WISHLIST")
	require.ErrorIs(t, store.UpdateItem(ctx, item), repository.ErrInvalidInput)

	require.NoError(t, store.DeleteItem(ctx, "s1", "i2"))
	require.ErrorIs(t, store.DeleteItem(ctx, "s1", "i2"), repository.ErrNotFound)
}

func TestStore_PriceOverride(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	insertSession(t, store, "s1", "c1")

	_, err := store.GetPriceOverride(ctx, "s1", "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.SetPriceOverride(ctx, "s1", "p1", decimal.NewFromInt(9)))
	require.NoError(t, store.SetPriceOverride(ctx, "s1", "p1", decimal.NewFromInt(8)))

	price, err := store.GetPriceOverride(ctx, "s1", "p1")
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(8)))
}

func TestStore_Negotiations(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	insertSession(t, store, "s1", "c1")
	insertItem(t, store, "s1", "i1", "p1", "50")

	n, err := negotiation.Open("n1", "s1", "i1", decimal.NewFromInt(50), decimal.NewFromInt(40), "bulk discount", time.Now())
	require.NoError(t, err)
	require.NoError(t, n.ForQuantity(decimal.NewFromInt(3)))
	require.NoError(t, store.CreateNegotiation(ctx, n))

	second, err := negotiation.Open("n2", "s1", "i1", decimal.NewFromInt(50), decimal.NewFromInt(35), "", time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, store.CreateNegotiation(ctx, second), repository.ErrConflict, "one active negotiation per item")

	active, err := store.GetActiveNegotiation(ctx, "s1", "i1")
	require.NoError(t, err)
	require.Equal(t, "n1", active.ID)
	require.Equal(t, "bulk discount", active.Reason)
	require.Len(t, active.History, 1)
	require.Nil(t, active.CounterPrice)
	require.True(t, active.ProposedQuantity.Equal(decimal.NewFromInt(3)))
	require.True(t, active.History[0].Quantity.Equal(decimal.NewFromInt(3)))

	counter := decimal.NewFromInt(45)
	_, err = active.Respond(negotiation.PartyStaff, negotiation.ResponseCounter, &counter, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.UpdateNegotiation(ctx, active))

	list, err := store.ListActiveNegotiations(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, negotiation.StatusCounterOffered, list[0].Status)
	require.True(t, list[0].CounterPrice.Equal(counter))

	_, err = active.Respond(negotiation.PartyCustomer, negotiation.ResponseReject, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.UpdateNegotiation(ctx, active))

	_, err = store.GetActiveNegotiation(ctx, "s1", "i1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// A resolved negotiation frees the item for a new proposal.
	require.NoError(t, store.CreateNegotiation(ctx, second))

	history, err := store.ListNegotiations(ctx, "s1", "i1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, negotiation.StatusRejected, history[0].Status)
	require.NotNil(t, history[0].ResolvedAt)
	require.Len(t, history[0].History, 3)
}

func TestStore_Orders(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	insertSession(t, store, "s1", "c1")

	order := &session.Order{
		ID:        "o1",
		SessionID: "s1",
		ClientID:  "c1",
		Total:     decimal.NewFromInt(20),
		CreatedAt: time.Now(),
		Lines: []session.OrderLine{{
			CartItemID:  "i1",
			ProductID:   "p1",
			BatchID:     "b1",
			ProductName: "Product",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(10),
			Subtotal:    decimal.NewFromInt(20),
		}},
	}
	require.NoError(t, store.CreateOrder(ctx, order))

	dup := *order
	dup.ID = "o2"
	require.ErrorIs(t, store.CreateOrder(ctx, &dup), repository.ErrConflict, "one order per session")

	got, err := store.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.True(t, got.Total.Equal(decimal.NewFromInt(20)))
	require.Len(t, got.Lines, 1)
	require.True(t, got.Lines[0].Subtotal.Equal(decimal.NewFromInt(20)))

	_, err = store.GetOrder(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_InTx(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	store := NewStore(db)
	insertSession(t, store, "s1", "c1")

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx session.Repository) error {
		sess, err := tx.GetSession(ctx, "s1")
		require.NoError(t, err)
		sess.Revision = 99
		require.NoError(t, tx.UpdateSession(ctx, sess))
		return boom
	})
	require.ErrorIs(t, err, boom)

	sess, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, int64(1), sess.Revision, "rolled back")

	err = store.InTx(ctx, func(tx session.Repository) error {
		sess, err := tx.GetSession(ctx, "s1")
		if err != nil {
			return err
		}
		sess.Revision = 2
		return tx.UpdateSession(ctx, sess)
	})
	require.NoError(t, err)

	sess, err = store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, int64(2), sess.Revision)
}
