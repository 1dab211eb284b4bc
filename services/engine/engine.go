package engine

import (
	"context"
	"errors"
	"time"

	"engagement-controlplane/pkg/db/pagination"
	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/member"
	"engagement-controlplane/services/profile"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	awardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reward_awards_total"},
		[]string{"action_id"},
	)
	achievementUnlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "reward_achievement_unlocks_total"},
	)
	challengeCompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "reward_challenge_completions_total"},
	)
)

func init() {
	prometheus.MustRegister(awardsTotal, achievementUnlocksTotal, challengeCompletionsTotal)
}

// errReplay aborts a commit without writing anything when a one-time
// action has already been credited.
var errReplay = errors.New("one-time action already awarded")

// Service evaluates reward semantics against catalog snapshots and
// persists outcomes through the profile store.
type Service struct {
	store   *profile.Store
	catalog *catalog.Provider
	members member.Directory
	sink    Sink
	node    *snowflake.Node
	group   singleflight.Group
}

type ServiceParams struct {
	fx.In

	Store   *profile.Store
	Catalog *catalog.Provider
	Members member.Directory
	Sink    Sink
	Node    *snowflake.Node
}

func New(p ServiceParams) *Service {
	if p.Sink == nil {
		p.Sink = LogSink{}
	}
	return &Service{
		store:   p.Store,
		catalog: p.Catalog,
		members: p.Members,
		sink:    p.Sink,
		node:    p.Node,
	}
}

type AwardOptions struct {
	Description    string
	OverridePoints *int64
}

type AwardResult struct {
	MemberID        string   `json:"member_id"`
	ActionID        string   `json:"action_id"`
	PointsAwarded   int64    `json:"points_awarded"`
	CurrentPoints   int64    `json:"current_points"`
	LifetimePoints  int64    `json:"lifetime_points"`
	Level           int      `json:"level"`
	AccessTierID    string   `json:"access_tier_id"`
	NewAchievements []string `json:"new_achievements,omitempty"`
}

// AwardAction credits a catalog action to a member and runs the full
// evaluation pipeline. Replaying a one-time action succeeds with zero
// points awarded.
func (s *Service) AwardAction(ctx context.Context, memberID, actionID string, opts AwardOptions) (*AwardResult, error) {
	snap := s.catalog.Snapshot()

	action, ok := snap.Action(actionID)
	if !ok {
		return nil, errutil.NotFound("unknown reward action", nil)
	}

	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	points := action.Points
	if opts.OverridePoints != nil {
		points = *opts.OverridePoints
	}
	description := opts.Description
	if description == "" {
		description = action.Name
	}

	var (
		outcome creditOutcome
		now     = time.Now().UTC()
	)
	committed, err := s.store.Commit(ctx, memberID, func(tx *gorm.DB, p *profile.RewardProfile) error {
		if action.OneTime {
			replayed, err := s.store.HasEntry(tx, memberID, actionID)
			if err != nil {
				return err
			}
			if replayed {
				return errReplay
			}
		}

		if err := s.credit(tx, p, actionID, description, points, now, &outcome); err != nil {
			return err
		}
		if err := s.evaluate(tx, snap, p, now, &outcome); err != nil {
			return err
		}

		outcome.events = append(outcome.events, Event{
			Kind:       EventPointsAwarded,
			MemberID:   memberID,
			OccurredAt: now,
			ActionID:   actionID,
			Points:     points,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, errReplay) {
			return s.replayResult(ctx, memberID, actionID)
		}
		return nil, err
	}

	awardsTotal.WithLabelValues(actionID).Inc()
	zap.L().With(traceFields(ctx)...).Info("action awarded",
		zap.String("member_id", memberID),
		zap.String("action_id", actionID),
		zap.Int64("points", points),
		zap.Strings("new_achievements", outcome.unlocked),
	)
	s.dispatch(ctx, outcome.events)

	return &AwardResult{
		MemberID:        memberID,
		ActionID:        actionID,
		PointsAwarded:   points,
		CurrentPoints:   committed.CurrentPoints,
		LifetimePoints:  committed.LifetimePoints,
		Level:           committed.Level,
		AccessTierID:    committed.AccessTierID,
		NewAchievements: outcome.unlocked,
	}, nil
}

func (s *Service) replayResult(ctx context.Context, memberID, actionID string) (*AwardResult, error) {
	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &AwardResult{
		MemberID:       memberID,
		ActionID:       actionID,
		CurrentPoints:  p.CurrentPoints,
		LifetimePoints: p.LifetimePoints,
		Level:          p.Level,
		AccessTierID:   p.AccessTierID,
	}, nil
}

// creditOutcome accumulates side effects inside one commit so events
// only leave the process after the transaction lands.
type creditOutcome struct {
	events   []Event
	unlocked []string
}

// credit appends one ledger entry and moves both balances.
func (s *Service) credit(tx *gorm.DB, p *profile.RewardProfile, actionID, description string, points int64, now time.Time, out *creditOutcome) error {
	entry := &profile.LedgerEntry{
		ID:          s.node.Generate().String(),
		MemberID:    p.MemberID,
		ActionID:    actionID,
		Points:      points,
		Description: description,
		CreatedAt:   now,
	}
	if err := s.store.AppendEntry(tx, entry); err != nil {
		return err
	}

	p.CurrentPoints += points
	p.LifetimePoints += points
	return nil
}

// evaluate recomputes the level, runs one achievement scan and resolves
// the access tier. Achievement bonuses credit inside the same pass; the
// scan never restarts.
func (s *Service) evaluate(tx *gorm.DB, snap *catalog.Catalog, p *profile.RewardProfile, now time.Time, out *creditOutcome) error {
	s.reconcileLevel(snap, p, now, out)

	counts, err := s.store.ActionCounts(tx, p.MemberID)
	if err != nil {
		return err
	}

	for i := range snap.Achievements {
		def := &snap.Achievements[i]

		earned, err := s.store.HasAchievement(tx, p.MemberID, def.ID)
		if err != nil {
			return err
		}
		if earned {
			continue
		}

		facts := catalog.Facts{
			Level:          p.Level,
			CurrentPoints:  p.CurrentPoints,
			LifetimePoints: p.LifetimePoints,
			ActionCounts:   counts,
		}
		if !catalog.AllSatisfied(def.Criteria, facts) {
			continue
		}

		record := &profile.AchievementRecord{
			MemberID:      p.MemberID,
			AchievementID: def.ID,
			EarnedAt:      now,
		}
		if err := s.store.AddAchievement(tx, record); err != nil {
			return err
		}

		out.unlocked = append(out.unlocked, def.ID)
		out.events = append(out.events, Event{
			Kind:          EventAchievementUnlocked,
			MemberID:      p.MemberID,
			OccurredAt:    now,
			AchievementID: def.ID,
			Points:        def.RewardPoints,
		})
		achievementUnlocksTotal.Inc()

		if def.RewardPoints > 0 {
			bonusAction := "achievement:" + def.ID
			if err := s.credit(tx, p, bonusAction, def.Name, def.RewardPoints, now, out); err != nil {
				return err
			}
			counts[bonusAction]++
			s.reconcileLevel(snap, p, now, out)
		}
	}

	s.reconcileTier(snap, p, now, out)
	return nil
}

func (s *Service) reconcileLevel(snap *catalog.Catalog, p *profile.RewardProfile, now time.Time, out *creditOutcome) {
	level := snap.LevelFor(p.LifetimePoints)
	if level > p.Level {
		out.events = append(out.events, Event{
			Kind:          EventLeveledUp,
			MemberID:      p.MemberID,
			OccurredAt:    now,
			PreviousLevel: p.Level,
			Level:         level,
		})
	}
	p.Level = level
}

// reconcileTier promotes the stored tier when the level now qualifies
// for a higher one. Granted tiers are never revoked, so a catalog
// reload that raises min_levels leaves existing members where they are.
func (s *Service) reconcileTier(snap *catalog.Catalog, p *profile.RewardProfile, now time.Time, out *creditOutcome) {
	resolved := snap.ResolveTier(p.Level)
	if resolved.ID == p.AccessTierID {
		return
	}
	if rank, ok := snap.TierRank(p.AccessTierID); ok {
		resolvedRank, _ := snap.TierRank(resolved.ID)
		if resolvedRank < rank {
			return
		}
	}
	out.events = append(out.events, Event{
		Kind:         EventTierChanged,
		MemberID:     p.MemberID,
		OccurredAt:   now,
		PreviousTier: p.AccessTierID,
		Tier:         resolved.ID,
	})
	p.AccessTierID = resolved.ID
}

// ensureProfile lazily creates the profile for a member the directory
// knows about. Creation runs the signup award so onboarding side
// effects fire exactly once, guarded by singleflight.
func (s *Service) ensureProfile(ctx context.Context, memberID string) error {
	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if p != nil {
		return nil
	}

	exists, err := s.members.Exists(ctx, memberID)
	if err != nil {
		return err
	}
	if !exists {
		return errutil.NotFound("unknown member", nil)
	}

	_, err, _ = s.group.Do("profile:"+memberID, func() (interface{}, error) {
		existing, err := s.store.Get(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, nil
		}

		snap := s.catalog.Snapshot()
		fresh := &profile.RewardProfile{
			MemberID:     memberID,
			Level:        1,
			AccessTierID: snap.FloorTier().ID,
		}
		if err := s.store.Create(ctx, fresh); err != nil {
			return nil, err
		}

		zap.L().Info("reward profile created", zap.String("member_id", memberID))

		if _, ok := snap.Action("signup"); ok {
			if _, err := s.AwardAction(ctx, memberID, "signup", AwardOptions{Description: "Signed up"}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// ProfileView is the read model returned by GetProfile.
type ProfileView struct {
	MemberID          string                 `json:"member_id"`
	CurrentPoints     int64                  `json:"current_points"`
	LifetimePoints    int64                  `json:"lifetime_points"`
	Level             int                    `json:"level"`
	PointsToNextLevel int64                  `json:"points_to_next_level"`
	Tier              *catalog.AccessTierDef `json:"access_tier"`
	Achievements      []AchievementView      `json:"achievements"`
}

type AchievementView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	BadgeImage  string    `json:"badge_image"`
	Category    string    `json:"category"`
	EarnedAt    time.Time `json:"earned_at"`
}

// GetProfile returns the member's profile, creating it lazily for known
// members on first touch.
func (s *Service) GetProfile(ctx context.Context, memberID string) (*ProfileView, error) {
	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("reward profile not found", nil)
	}

	snap := s.catalog.Snapshot()
	records, err := s.store.Achievements(ctx, memberID)
	if err != nil {
		return nil, err
	}

	achievements := make([]AchievementView, 0, len(records))
	for _, r := range records {
		view := AchievementView{ID: r.AchievementID, EarnedAt: r.EarnedAt}
		for i := range snap.Achievements {
			if snap.Achievements[i].ID == r.AchievementID {
				def := &snap.Achievements[i]
				view.Name = def.Name
				view.Description = def.Description
				view.BadgeImage = def.BadgeImage
				view.Category = def.Category
				break
			}
		}
		achievements = append(achievements, view)
	}

	return &ProfileView{
		MemberID:          p.MemberID,
		CurrentPoints:     p.CurrentPoints,
		LifetimePoints:    p.LifetimePoints,
		Level:             p.Level,
		PointsToNextLevel: PointsToNextLevel(snap, p.LifetimePoints),
		Tier:              s.tierFor(snap, p.AccessTierID),
		Achievements:      achievements,
	}, nil
}

func (s *Service) tierFor(snap *catalog.Catalog, tierID string) *catalog.AccessTierDef {
	if t, ok := snap.Tier(tierID); ok {
		return t
	}
	// Tier removed by a catalog reload; fall back to the level mapping
	// on the next GetTier call.
	return snap.FloorTier()
}

// History pages through the member's point ledger.
func (s *Service) History(ctx context.Context, memberID string, page pagination.Pagination) ([]*profile.LedgerEntry, *pagination.PageInfo, error) {
	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, nil, err
	}
	return s.store.History(ctx, memberID, page)
}

func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func (s *Service) dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	s.sink.Dispatch(ctx, events)
}
