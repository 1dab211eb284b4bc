package engine

import (
	"context"
	"time"

	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/profile"

	"gorm.io/gorm"
)

// ResolveTier maps a level to its access tier under the current catalog.
func (s *Service) ResolveTier(level int) *catalog.AccessTierDef {
	return s.catalog.Snapshot().ResolveTier(level)
}

// GetTier returns the member's access tier. The stored tier id is a
// cache of ResolveTier(level); when a catalog reload shifts the mapping
// upward the stale cache is repaired here and TierChanged fires. A
// granted tier is never taken away, so a downward shift leaves the
// stored tier in place.
func (s *Service) GetTier(ctx context.Context, memberID string) (*catalog.AccessTierDef, error) {
	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	snap := s.catalog.Snapshot()
	if current, ok := snap.Tier(p.AccessTierID); ok {
		currentRank, _ := snap.TierRank(current.ID)
		resolvedRank, _ := snap.TierRank(snap.ResolveTier(p.Level).ID)
		if resolvedRank <= currentRank {
			return current, nil
		}
	}

	var outcome creditOutcome
	now := time.Now().UTC()
	committed, err := s.store.Commit(ctx, memberID, func(tx *gorm.DB, locked *profile.RewardProfile) error {
		s.reconcileTier(snap, locked, now, &outcome)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, outcome.events)
	return s.tierFor(snap, committed.AccessTierID), nil
}
