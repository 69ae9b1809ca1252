package session_test

import (
	"context"
	"testing"

	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/stretchr/testify/require"
)

func TestSetOverridePrice_RepricesAndCancels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	a1 := f.addItem(t, sess.ID, "batch-a", "2", session.ItemInterested)
	a2 := f.addItem(t, sess.ID, "batch-a2", "1", session.ItemToPurchase)
	b := f.addItem(t, sess.ID, "batch-b", "1", session.ItemInterested)
	propose(t, f, sess.ID, a1.ID, "8", "")

	result, err := f.svc.SetOverridePrice(ctx, f.staff, sess.ID, "prod-a", d("9"))
	require.NoError(t, err)
	require.Len(t, result.Repriced, 2)
	require.Equal(t, 1, result.CancelledNegotiations)

	requireDecimal(t, "9", f.item(t, sess.ID, a1.ID).UnitPrice)
	requireDecimal(t, "9", f.item(t, sess.ID, a2.ID).UnitPrice)
	requireDecimal(t, "5", f.item(t, sess.ID, b.ID).UnitPrice)

	history, err := f.svc.GetNegotiationHistory(ctx, f.customer, sess.ID, a1.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, negotiation.StatusCancelled, history[0].Status)
	last := history[0].History[len(history[0].History)-1]
	require.Equal(t, negotiation.ActionCancel, last.Action)
	require.Equal(t, "superseded by price override", last.Reason)

	// Responding to the superseded negotiation is a lost race.
	_, err = respond(f, f.staff, sess.ID, a1.ID, negotiation.ResponseAccept, "")
	require.ErrorIs(t, err, session.ErrConflict)

	// A new negotiation may start from the override price.
	n := propose(t, f, sess.ID, a1.ID, "8.50", "")
	requireDecimal(t, "9", n.OriginalPrice)
}

func TestSetOverridePrice_AppliesToLaterItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.svc.SetOverridePrice(ctx, f.staff, sess.ID, "prod-c", d("44.99"))
	require.NoError(t, err)

	item := f.addItem(t, sess.ID, "batch-c", "1", session.ItemInterested)
	requireDecimal(t, "44.99", item.UnitPrice)
}

func TestSetOverridePrice_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.svc.SetOverridePrice(ctx, f.customer, sess.ID, "prod-a", d("9"))
	require.ErrorIs(t, err, session.ErrForbidden)

	_, err = f.svc.SetOverridePrice(ctx, f.staff, sess.ID, "prod-a", d("0"))
	require.ErrorIs(t, err, session.ErrInvalidAmount)

	_, err = f.svc.SetOverridePrice(ctx, f.staff, sess.ID, "", d("9"))
	require.ErrorIs(t, err, session.ErrInvalidInput)

	_, err = f.svc.SetOverridePrice(ctx, f.staff, "missing", "prod-a", d("9"))
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestHighlightProduct_SingleSpotlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	a := f.addItem(t, sess.ID, "batch-a", "1", session.ItemInterested)
	b := f.addItem(t, sess.ID, "batch-b", "1", session.ItemInterested)

	matched, err := f.svc.HighlightProduct(ctx, f.staff, sess.ID, "batch-a", true)
	require.NoError(t, err)
	require.Equal(t, 1, matched)
	require.True(t, f.item(t, sess.ID, a.ID).Highlighted)
	require.False(t, f.item(t, sess.ID, b.ID).Highlighted)

	_, err = f.svc.HighlightProduct(ctx, f.staff, sess.ID, "batch-b", true)
	require.NoError(t, err)
	require.False(t, f.item(t, sess.ID, a.ID).Highlighted)
	require.True(t, f.item(t, sess.ID, b.ID).Highlighted)

	_, err = f.svc.HighlightProduct(ctx, f.staff, sess.ID, "batch-b", false)
	require.NoError(t, err)
	require.False(t, f.item(t, sess.ID, b.ID).Highlighted)

	require.Len(t, f.events(session.EventHighlight), 2)

	_, err = f.svc.HighlightProduct(ctx, f.customer, sess.ID, "batch-a", true)
	require.ErrorIs(t, err, session.ErrForbidden)
}

func TestRemoveFromCart_CancelsNegotiation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-c", "1", session.ItemInterested)
	propose(t, f, sess.ID, item.ID, "40", "")

	err := f.svc.RemoveFromCart(ctx, f.customer, sess.ID, item.ID)
	require.ErrorIs(t, err, session.ErrForbidden)

	require.NoError(t, f.svc.RemoveFromCart(ctx, f.staff, sess.ID, item.ID))

	_, err = f.store.GetItem(ctx, sess.ID, item.ID)
	require.Error(t, err)

	active, err := f.svc.GetActiveNegotiations(ctx, f.staff, sess.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	history, err := f.svc.GetNegotiationHistory(ctx, f.staff, sess.ID, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, negotiation.StatusCancelled, history[0].Status)

	err = f.svc.RemoveItem(ctx, f.customer, sess.ID, item.ID)
	require.ErrorIs(t, err, session.ErrItemNotFound)
}

func TestRemoveItem_CustomerRemovesOwnLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemSampleRequest)

	require.NoError(t, f.svc.RemoveItem(ctx, f.customer, sess.ID, item.ID))

	grouped, err := f.svc.GetItemsByStatus(ctx, f.customer, sess.ID)
	require.NoError(t, err)
	require.Empty(t, grouped.SampleRequest)
	require.Equal(t, 0, grouped.Totals[session.ItemSampleRequest].Count)
}

func TestRequestCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.newSession(t)
	item := f.addItem(t, sess.ID, "batch-a", "1", session.ItemToPurchase)

	_, err := f.svc.RequestCheckout(ctx, f.staff, sess.ID)
	require.ErrorIs(t, err, session.ErrForbidden)

	updated, err := f.svc.RequestCheckout(ctx, f.customer, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CheckoutRequestedAt)
	require.Equal(t, session.StatusActive, updated.Status)

	events := f.events(session.EventCheckoutRequested)
	require.Len(t, events, 1)
	require.Equal(t, sess.ID, events[0].SessionID)
	require.Equal(t, "client-1", events[0].ClientID)
	require.Equal(t, updated.Revision, events[0].Revision)

	// Checkout request leaves the cart alone.
	require.Equal(t, session.ItemToPurchase, f.item(t, sess.ID, item.ID).Status)
}
