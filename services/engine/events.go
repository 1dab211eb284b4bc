package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventPointsAwarded       EventKind = "points_awarded"
	EventLeveledUp           EventKind = "leveled_up"
	EventAchievementUnlocked EventKind = "achievement_unlocked"
	EventTierChanged         EventKind = "tier_changed"
	EventChallengeCompleted  EventKind = "challenge_completed"
)

// Event is one domain fact produced by a committed profile mutation.
// Only the fields relevant to the kind are set.
type Event struct {
	Kind       EventKind `json:"kind"`
	MemberID   string    `json:"member_id"`
	OccurredAt time.Time `json:"occurred_at"`

	ActionID      string `json:"action_id,omitempty"`
	Points        int64  `json:"points,omitempty"`
	PreviousLevel int    `json:"previous_level,omitempty"`
	Level         int    `json:"level,omitempty"`
	AchievementID string `json:"achievement_id,omitempty"`
	PreviousTier  string `json:"previous_tier,omitempty"`
	Tier          string `json:"tier,omitempty"`
	ChallengeID   string `json:"challenge_id,omitempty"`
}

// Sink receives events after the producing transaction has committed.
// Delivery is best effort; a sink failure never affects profile state.
type Sink interface {
	Dispatch(ctx context.Context, events []Event)
}

// LogSink writes events to the process log. Used when no queue is
// configured and as the test default.
type LogSink struct{}

func (LogSink) Dispatch(ctx context.Context, events []Event) {
	for _, e := range events {
		zap.L().Info("reward event",
			zap.String("kind", string(e.Kind)),
			zap.String("member_id", e.MemberID),
			zap.Any("event", e),
		)
	}
}
