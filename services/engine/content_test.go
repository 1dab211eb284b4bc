package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"engagement-controlplane/pkg/errutil"
)

func TestCheckContentAccess_UnknownContent(t *testing.T) {
	e := newTestEngine(t)
	id := e.newMember(t, "Ada", "ada@example.com")

	_, err := e.svc.CheckContentAccess(context.Background(), id, "no_such_content")
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestCheckContentAccess_FreshMember(t *testing.T) {
	e := newTestEngine(t)
	id := e.newMember(t, "Ada", "ada@example.com")
	ctx := context.Background()

	access, err := e.svc.CheckContentAccess(ctx, id, "beginner_resources")
	require.NoError(t, err)
	require.True(t, access.Allowed)

	// Level gate fails even though the tier matches.
	access, err = e.svc.CheckContentAccess(ctx, id, "community_workshops")
	require.NoError(t, err)
	require.False(t, access.Allowed)
	require.Equal(t, 2, access.RequiredLevel)
	require.Equal(t, 1, access.MemberLevel)

	access, err = e.svc.CheckContentAccess(ctx, id, "special_interest_groups")
	require.NoError(t, err)
	require.False(t, access.Allowed)
}

func TestCheckContentAccess_GoldMember(t *testing.T) {
	e := newTestEngine(t)
	id := e.newMember(t, "Ada", "ada@example.com")
	ctx := context.Background()

	// Push the member to level 5 (gold).
	for i := 0; i < 20; i++ {
		_, err := e.svc.AwardAction(ctx, id, "attend_event", AwardOptions{})
		require.NoError(t, err)
	}

	access, err := e.svc.CheckContentAccess(ctx, id, "advanced_resources")
	require.NoError(t, err)
	require.True(t, access.Allowed)

	access, err = e.svc.CheckContentAccess(ctx, id, "vip_events")
	require.NoError(t, err)
	require.False(t, access.Allowed)
	require.Equal(t, "platinum", access.RequiredTier)
}

func TestAvailableContent(t *testing.T) {
	e := newTestEngine(t)
	id := e.newMember(t, "Ada", "ada@example.com")
	ctx := context.Background()

	items, err := e.svc.AvailableContent(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "beginner_resources", items[0].ID)

	for i := 0; i < 20; i++ {
		_, err := e.svc.AwardAction(ctx, id, "attend_event", AwardOptions{})
		require.NoError(t, err)
	}

	items, err = e.svc.AvailableContent(ctx, id)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	require.ElementsMatch(t, []string{
		"beginner_resources",
		"community_workshops",
		"special_interest_groups",
		"advanced_resources",
		"leadership_channel",
	}, ids)
}
