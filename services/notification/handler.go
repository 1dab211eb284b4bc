package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/engine"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler consumes delivery tasks and persists member notifications.
type Handler struct {
	db      *gorm.DB
	catalog *catalog.Provider
	node    *snowflake.Node
}

type HandlerParams struct {
	fx.In

	DB      *gorm.DB
	Catalog *catalog.Provider
	Node    *snowflake.Node
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{db: p.DB, catalog: p.Catalog, node: p.Node}
}

func (h *Handler) HandleDeliver(ctx context.Context, task *asynq.Task) error {
	var event engine.Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		zap.L().Error("malformed notification payload", zap.Error(err))
		// Retrying cannot fix a bad payload.
		return nil
	}

	title, message, ok := h.render(event)
	if !ok {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	n := &Notification{
		ID:        h.node.Generate().String(),
		MemberID:  event.MemberID,
		Type:      string(event.Kind),
		Title:     title,
		Message:   message,
		Data:      datatypes.JSON(data),
		CreatedAt: event.OccurredAt,
	}
	if err := h.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}

	zap.L().Info("notification delivered",
		zap.String("member_id", event.MemberID),
		zap.String("type", string(event.Kind)),
		zap.String("title", title),
	)
	return nil
}

// render maps an event to user-facing copy. PointsAwarded events carry
// no notification of their own.
func (h *Handler) render(event engine.Event) (title, message string, ok bool) {
	snap := h.catalog.Snapshot()

	switch event.Kind {
	case engine.EventLeveledUp:
		return fmt.Sprintf("Level Up! You're now level %d", event.Level),
			fmt.Sprintf("Congratulations! You've reached level %d in the community.", event.Level),
			true

	case engine.EventAchievementUnlocked:
		name, description := event.AchievementID, ""
		for i := range snap.Achievements {
			if snap.Achievements[i].ID == event.AchievementID {
				name = snap.Achievements[i].Name
				description = snap.Achievements[i].Description
				break
			}
		}
		return fmt.Sprintf("Achievement Unlocked: %s", name),
			fmt.Sprintf("You've earned the %s achievement: %s", name, description),
			true

	case engine.EventTierChanged:
		name := event.Tier
		if tier, found := snap.Tier(event.Tier); found {
			name = tier.Name
		}
		return fmt.Sprintf("Access Level Upgraded: %s", name),
			fmt.Sprintf("You've been upgraded to %s! You now have access to new features and content.", name),
			true

	case engine.EventChallengeCompleted:
		name := event.ChallengeID
		if def, found := snap.Challenge(event.ChallengeID); found {
			name = def.Name
		}
		return fmt.Sprintf("Challenge Completed: %s", name),
			fmt.Sprintf("You've completed the %s challenge and earned %d points!", name, event.Points),
			true

	default:
		return "", "", false
	}
}

type ListRequest struct {
	UnreadOnly bool `form:"unread_only"`
	Limit      int  `form:"limit,default=50"`
	Offset     int  `form:"offset"`
}

// List returns a member's notifications, newest first.
func (h *Handler) List(ctx context.Context, memberID string, req ListRequest) ([]*Notification, error) {
	if req.Limit <= 0 || req.Limit > 250 {
		req.Limit = 50
	}

	q := h.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at desc").
		Limit(req.Limit).
		Offset(req.Offset)
	if req.UnreadOnly {
		q = q.Where("read = ?", false)
	}

	var notifications []*Notification
	if err := q.Find(&notifications).Error; err != nil {
		return nil, errutil.Internal("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkRead flips one notification's read flag.
func (h *Handler) MarkRead(ctx context.Context, memberID, notificationID string) error {
	res := h.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND member_id = ?", notificationID, memberID).
		Update("read", true)
	if res.Error != nil {
		return errutil.Internal("failed to update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("notification not found", nil)
	}
	return nil
}
