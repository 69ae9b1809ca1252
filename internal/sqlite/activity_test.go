package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	entry1 := &activity.ActivityEntry{
		SessionID:    "s1",
		Actor:        "STAFF",
		ActivityType: activity.TypeItemAdded,
		Summary:      "Added item",
		Details:      `{"batch_id":"b1"}`,
		Revision:     2,
	}
	entry2 := &activity.ActivityEntry{
		SessionID:    "s1",
		Actor:        "CUSTOMER",
		ActivityType: activity.TypePriceProposed,
		Summary:      "Proposed price",
		Revision:     3,
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, `{"batch_id":"b1"}`, entries[1].Details)
	require.Equal(t, "", entries[0].Details)
}

func TestActivityRepository_FiltersAndSessionIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	itemID := "i1"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		SessionID:    "s1",
		CartItemID:   &itemID,
		Actor:        "STAFF",
		ActivityType: activity.TypeStatusChanged,
		Summary:      "moved",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		SessionID:    "s1",
		Actor:        "STAFF",
		ActivityType: activity.TypeCheckoutRequested,
		Summary:      "checkout",
	}))

	activityType := activity.TypeStatusChanged
	entries, err := repo.List(ctx, activity.ListActivityOptions{
		SessionID:    "s1",
		CartItemID:   &itemID,
		ActivityType: &activityType,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "i1", *entries[0].CartItemID)

	entries, err = repo.List(ctx, activity.ListActivityOptions{SessionID: "s1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{SessionID: "s2"})
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
