package engine

import (
	"context"
	"time"

	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/profile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChallengeProgressView is the per-member progress on one challenge.
// Progress is the arithmetic mean of the per-criterion fractions.
type ChallengeProgressView struct {
	ChallengeID  string                      `json:"challenge_id"`
	Name         string                      `json:"name"`
	Description  string                      `json:"description"`
	RewardPoints int64                       `json:"reward_points"`
	Progress     float64                     `json:"progress"`
	Completed    bool                        `json:"completed"`
	Recorded     bool                        `json:"recorded"`
	PerCriterion []catalog.CriterionProgress `json:"per_criterion"`
}

func windowError(state catalog.ChallengeWindowState) error {
	return errutil.UnprocessableEntity("challenge is not open", nil,
		errutil.WithDetails(errutil.Detail{Field: "challenge_id", Message: string(state)}),
	)
}

// ChallengeProgress evaluates one open challenge for a member.
func (s *Service) ChallengeProgress(ctx context.Context, memberID, challengeID string) (*ChallengeProgressView, error) {
	snap := s.catalog.Snapshot()

	def, ok := snap.Challenge(challengeID)
	if !ok {
		return nil, errutil.NotFound("unknown challenge", nil)
	}
	if open, state := def.IsOpen(time.Now().UTC()); !open {
		return nil, windowError(state)
	}

	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	facts, err := s.factsFor(ctx, memberID)
	if err != nil {
		return nil, err
	}
	recorded, err := s.hasRecordedCompletion(ctx, memberID, challengeID)
	if err != nil {
		return nil, err
	}

	view := buildProgressView(def, facts)
	view.Recorded = recorded
	return view, nil
}

// ListChallenges returns progress on every open challenge. Closed ones
// are skipped rather than failing the whole listing.
func (s *Service) ListChallenges(ctx context.Context, memberID string) ([]*ChallengeProgressView, error) {
	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	facts, err := s.factsFor(ctx, memberID)
	if err != nil {
		return nil, err
	}
	completions, err := s.store.Completions(ctx, memberID)
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]bool, len(completions))
	for _, c := range completions {
		recorded[c.ChallengeID] = true
	}

	snap := s.catalog.Snapshot()
	now := time.Now().UTC()

	views := make([]*ChallengeProgressView, 0, len(snap.Challenges))
	for i := range snap.Challenges {
		def := &snap.Challenges[i]
		if open, _ := def.IsOpen(now); !open {
			continue
		}
		view := buildProgressView(def, facts)
		view.Recorded = recorded[def.ID]
		views = append(views, view)
	}
	return views, nil
}

// CompleteChallengeResult reports the payout of a completion attempt.
type CompleteChallengeResult struct {
	ChallengeID    string `json:"challenge_id"`
	PointsAwarded  int64  `json:"points_awarded"`
	CurrentPoints  int64  `json:"current_points"`
	LifetimePoints int64  `json:"lifetime_points"`
	Level          int    `json:"level"`
	AlreadyDone    bool   `json:"already_completed"`
}

// CompleteChallenge re-validates the criteria server side and pays the
// reward exactly once per member and challenge.
func (s *Service) CompleteChallenge(ctx context.Context, memberID, challengeID string) (*CompleteChallengeResult, error) {
	snap := s.catalog.Snapshot()

	def, ok := snap.Challenge(challengeID)
	if !ok {
		return nil, errutil.NotFound("unknown challenge", nil)
	}
	if open, state := def.IsOpen(time.Now().UTC()); !open {
		return nil, windowError(state)
	}

	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	var (
		outcome     creditOutcome
		alreadyDone bool
		now         = time.Now().UTC()
	)
	committed, err := s.store.Commit(ctx, memberID, func(tx *gorm.DB, p *profile.RewardProfile) error {
		done, err := s.store.HasCompletion(tx, memberID, challengeID)
		if err != nil {
			return err
		}
		if done {
			alreadyDone = true
			return errReplay
		}

		counts, err := s.store.ActionCounts(tx, memberID)
		if err != nil {
			return err
		}
		facts := catalog.Facts{
			Level:          p.Level,
			CurrentPoints:  p.CurrentPoints,
			LifetimePoints: p.LifetimePoints,
			ActionCounts:   counts,
		}
		if !catalog.AllSatisfied(def.Criteria, facts) {
			return errutil.UnprocessableEntity("challenge criteria not met", nil)
		}

		completion := &profile.ChallengeCompletion{
			MemberID:      memberID,
			ChallengeID:   challengeID,
			CompletedAt:   now,
			PointsAwarded: def.RewardPoints,
		}
		if err := s.store.AddCompletion(tx, completion); err != nil {
			return err
		}

		if def.RewardPoints > 0 {
			if err := s.credit(tx, p, "challenge:"+challengeID, def.Name, def.RewardPoints, now, &outcome); err != nil {
				return err
			}
		}
		if err := s.evaluate(tx, snap, p, now, &outcome); err != nil {
			return err
		}

		outcome.events = append(outcome.events, Event{
			Kind:        EventChallengeCompleted,
			MemberID:    memberID,
			OccurredAt:  now,
			ChallengeID: challengeID,
			Points:      def.RewardPoints,
		})
		return nil
	})
	if err != nil {
		if alreadyDone {
			p, getErr := s.store.Get(ctx, memberID)
			if getErr != nil {
				return nil, getErr
			}
			return &CompleteChallengeResult{
				ChallengeID:    challengeID,
				CurrentPoints:  p.CurrentPoints,
				LifetimePoints: p.LifetimePoints,
				Level:          p.Level,
				AlreadyDone:    true,
			}, nil
		}
		return nil, err
	}

	challengeCompletionsTotal.Inc()
	zap.L().With(traceFields(ctx)...).Info("challenge completed",
		zap.String("member_id", memberID),
		zap.String("challenge_id", challengeID),
		zap.Int64("points", def.RewardPoints),
	)
	s.dispatch(ctx, outcome.events)

	return &CompleteChallengeResult{
		ChallengeID:    challengeID,
		PointsAwarded:  def.RewardPoints,
		CurrentPoints:  committed.CurrentPoints,
		LifetimePoints: committed.LifetimePoints,
		Level:          committed.Level,
	}, nil
}

func (s *Service) factsFor(ctx context.Context, memberID string) (catalog.Facts, error) {
	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return catalog.Facts{}, err
	}
	if p == nil {
		return catalog.Facts{}, errutil.NotFound("reward profile not found", nil)
	}
	counts, err := s.store.ActionCountsFor(ctx, memberID)
	if err != nil {
		return catalog.Facts{}, err
	}
	return catalog.Facts{
		Level:          p.Level,
		CurrentPoints:  p.CurrentPoints,
		LifetimePoints: p.LifetimePoints,
		ActionCounts:   counts,
	}, nil
}

func (s *Service) hasRecordedCompletion(ctx context.Context, memberID, challengeID string) (bool, error) {
	completions, err := s.store.Completions(ctx, memberID)
	if err != nil {
		return false, err
	}
	for _, c := range completions {
		if c.ChallengeID == challengeID {
			return true, nil
		}
	}
	return false, nil
}

func buildProgressView(def *catalog.ChallengeDef, facts catalog.Facts) *ChallengeProgressView {
	per := make([]catalog.CriterionProgress, 0, len(def.Criteria))
	completed := true
	var sum float64
	for _, cr := range def.Criteria {
		p := cr.Evaluate(facts)
		per = append(per, p)
		sum += p.Progress
		if !p.Completed {
			completed = false
		}
	}

	progress := 0.0
	if len(per) > 0 {
		progress = sum / float64(len(per))
	}

	return &ChallengeProgressView{
		ChallengeID:  def.ID,
		Name:         def.Name,
		Description:  def.Description,
		RewardPoints: def.RewardPoints,
		Progress:     progress,
		Completed:    completed,
		PerCriterion: per,
	}
}
