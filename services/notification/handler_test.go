package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/engine"
	"engagement-controlplane/services/testutil"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	db := testutil.NewTestDB(t, &Notification{})

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	provider, err := catalog.NewProvider("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	return NewHandler(HandlerParams{DB: db, Catalog: provider, Node: node})
}

func deliver(t *testing.T, h *Handler, event engine.Event) {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	task := asynq.NewTask(TypeNotificationDeliver, payload)
	require.NoError(t, h.HandleDeliver(context.Background(), task))
}

func TestHandleDeliver_AchievementUnlocked(t *testing.T) {
	h := newTestHandler(t)

	deliver(t, h, engine.Event{
		Kind:          engine.EventAchievementUnlocked,
		MemberID:      "m1",
		OccurredAt:    time.Now().UTC(),
		AchievementID: "survey_taker",
		Points:        10,
	})

	notifications, err := h.List(context.Background(), "m1", ListRequest{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "Achievement Unlocked: Survey Taker", notifications[0].Title)
	require.Contains(t, notifications[0].Message, "Survey Taker")
	require.False(t, notifications[0].Read)
}

func TestHandleDeliver_LeveledUp(t *testing.T) {
	h := newTestHandler(t)

	deliver(t, h, engine.Event{
		Kind:          engine.EventLeveledUp,
		MemberID:      "m1",
		OccurredAt:    time.Now().UTC(),
		PreviousLevel: 2,
		Level:         3,
	})

	notifications, err := h.List(context.Background(), "m1", ListRequest{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "Level Up! You're now level 3", notifications[0].Title)
}

func TestHandleDeliver_TierChanged(t *testing.T) {
	h := newTestHandler(t)

	deliver(t, h, engine.Event{
		Kind:         engine.EventTierChanged,
		MemberID:     "m1",
		OccurredAt:   time.Now().UTC(),
		PreviousTier: "bronze",
		Tier:         "silver",
	})

	notifications, err := h.List(context.Background(), "m1", ListRequest{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "Access Level Upgraded: Silver Access", notifications[0].Title)
}

func TestHandleDeliver_ChallengeCompleted(t *testing.T) {
	h := newTestHandler(t)

	deliver(t, h, engine.Event{
		Kind:        engine.EventChallengeCompleted,
		MemberID:    "m1",
		OccurredAt:  time.Now().UTC(),
		ChallengeID: "survey_challenge",
		Points:      50,
	})

	notifications, err := h.List(context.Background(), "m1", ListRequest{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "Challenge Completed: Survey Champion", notifications[0].Title)
	require.Contains(t, notifications[0].Message, "50 points")
}

func TestHandleDeliver_SkipsPointsAwarded(t *testing.T) {
	h := newTestHandler(t)

	deliver(t, h, engine.Event{
		Kind:       engine.EventPointsAwarded,
		MemberID:   "m1",
		OccurredAt: time.Now().UTC(),
		ActionID:   "complete_survey",
		Points:     30,
	})

	notifications, err := h.List(context.Background(), "m1", ListRequest{})
	require.NoError(t, err)
	require.Empty(t, notifications)
}

func TestMarkRead(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	deliver(t, h, engine.Event{
		Kind:       engine.EventLeveledUp,
		MemberID:   "m1",
		OccurredAt: time.Now().UTC(),
		Level:      2,
	})

	notifications, err := h.List(ctx, "m1", ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	require.NoError(t, h.MarkRead(ctx, "m1", notifications[0].ID))

	notifications, err = h.List(ctx, "m1", ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, notifications)

	require.Error(t, h.MarkRead(ctx, "m1", "missing"))
}
