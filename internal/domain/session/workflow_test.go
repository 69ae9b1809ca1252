package session_test

import (
	"context"
	"testing"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/stretchr/testify/require"
)

func TestSetItemStatus_AnyToAnyBothActors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemSampleRequest)

	moves := []struct {
		actor session.Principal
		to    session.ItemStatus
	}{
		{f.customer, session.ItemToPurchase},
		{f.staff, session.ItemSampleRequest},
		{f.customer, session.ItemInterested},
		{f.staff, session.ItemToPurchase},
		{f.customer, session.ItemInterested},
		{f.staff, session.ItemInterested},
	}
	for _, move := range moves {
		updated, err := f.svc.SetItemStatus(ctx, move.actor, sess.ID, item.ID, move.to)
		require.NoError(t, err)
		require.Equal(t, move.to, updated.Status)
		require.Equal(t, move.to, f.item(t, sess.ID, item.ID).Status)
	}

	// Status changes never touch price.
	requireDecimal(t, "10", f.item(t, sess.ID, item.ID).UnitPrice)
}

func TestSetItemStatus_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemInterested)

	_, err := f.svc.SetItemStatus(ctx, f.staff, sess.ID, item.ID, session.ItemStatus("SOLD"))
	require.ErrorIs(t, err, session.ErrInvalidStatus)
	require.Equal(t, session.KindInvalidTransition, session.Kind(err))
	require.Equal(t, session.ItemInterested, f.item(t, sess.ID, item.ID).Status)

	_, err = f.svc.SetItemStatus(ctx, f.staff, sess.ID, "missing", session.ItemToPurchase)
	require.ErrorIs(t, err, session.ErrItemNotFound)

	_, err = f.svc.SetItemStatus(ctx, f.staff, "missing", item.ID, session.ItemToPurchase)
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = f.svc.EndSession(ctx, f.staff, sess.ID, false)
	require.NoError(t, err)
	_, err = f.svc.SetItemStatus(ctx, f.customer, sess.ID, item.ID, session.ItemToPurchase)
	require.ErrorIs(t, err, session.ErrInvalidState)
	require.Equal(t, session.KindInvalidState, session.Kind(err))
}

func TestUpdateItemStatus_CustomerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemInterested)

	_, err := f.svc.UpdateItemStatus(ctx, f.staff, sess.ID, item.ID, session.ItemToPurchase)
	require.ErrorIs(t, err, session.ErrForbidden)

	updated, err := f.svc.UpdateItemStatus(ctx, f.customer, sess.ID, item.ID, session.ItemToPurchase)
	require.NoError(t, err)
	require.Equal(t, session.ItemToPurchase, updated.Status)
}

func TestParseItemStatus(t *testing.T) {
	for _, s := range session.ItemStatuses {
		got, err := session.ParseItemStatus(string(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := session.ParseItemStatus("to_purchase")
	require.ErrorIs(t, err, session.ErrInvalidStatus)
}
