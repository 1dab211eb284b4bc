package engine

import (
	"context"

	"engagement-controlplane/pkg/errutil"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/profile"
)

// ContentAccess reports the outcome of the dual gate on one item.
type ContentAccess struct {
	ContentID     string `json:"content_id"`
	Allowed       bool   `json:"allowed"`
	RequiredLevel int    `json:"required_level"`
	RequiredTier  string `json:"required_tier"`
	MemberLevel   int    `json:"member_level"`
	MemberTier    string `json:"member_tier"`
}

// CheckContentAccess requires both the level gate and the tier rank
// gate to pass.
func (s *Service) CheckContentAccess(ctx context.Context, memberID, contentID string) (*ContentAccess, error) {
	snap := s.catalog.Snapshot()

	item, ok := snap.ContentItem(contentID)
	if !ok {
		return nil, errutil.NotFound("unknown content item", nil)
	}

	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	return &ContentAccess{
		ContentID:     item.ID,
		Allowed:       s.contentAllowed(snap, p, item),
		RequiredLevel: item.RequiredLevel,
		RequiredTier:  item.RequiredTierID,
		MemberLevel:   p.Level,
		MemberTier:    p.AccessTierID,
	}, nil
}

// AvailableContent lists every catalog item the member qualifies for.
func (s *Service) AvailableContent(ctx context.Context, memberID string) ([]*catalog.ContentItem, error) {
	if err := s.ensureProfile(ctx, memberID); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	snap := s.catalog.Snapshot()
	available := make([]*catalog.ContentItem, 0, len(snap.Content))
	for i := range snap.Content {
		item := &snap.Content[i]
		if s.contentAllowed(snap, p, item) {
			available = append(available, item)
		}
	}
	return available, nil
}

func (s *Service) contentAllowed(snap *catalog.Catalog, p *profile.RewardProfile, item *catalog.ContentItem) bool {
	if p.Level < item.RequiredLevel {
		return false
	}

	memberRank, ok := snap.TierRank(p.AccessTierID)
	if !ok {
		// Stale tier cache after a reload; judge by level instead.
		memberRank, _ = snap.TierRank(snap.ResolveTier(p.Level).ID)
	}
	requiredRank, ok := snap.TierRank(item.RequiredTierID)
	if !ok {
		return false
	}
	return memberRank >= requiredRank
}
