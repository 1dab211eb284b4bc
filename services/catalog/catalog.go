package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Catalog is one immutable, versioned snapshot of the reward
// configuration. The engine holds a snapshot for the duration of an
// evaluation pass; reloads swap in a new snapshot and never mutate an
// existing one.
type Catalog struct {
	Version         int64            `yaml:"version" json:"version"`
	LevelThresholds []int64          `yaml:"level_thresholds" json:"level_thresholds"`
	Actions         []RewardAction   `yaml:"actions" json:"actions"`
	Achievements    []AchievementDef `yaml:"achievements" json:"achievements"`
	Tiers           []AccessTierDef  `yaml:"tiers" json:"tiers"`
	Challenges      []ChallengeDef   `yaml:"challenges" json:"challenges"`
	Content         []ContentItem    `yaml:"content" json:"content"`

	actionsByID    map[string]*RewardAction
	tiersByID      map[string]*AccessTierDef
	tierRank       map[string]int
	challengesByID map[string]*ChallengeDef
	contentByID    map[string]*ContentItem
}

// finalize sorts tiers, builds lookup maps and validates the snapshot.
// Must be called once after construction, before any reads.
func (c *Catalog) finalize() error {
	sort.SliceStable(c.Tiers, func(i, j int) bool {
		return c.Tiers[i].MinLevel < c.Tiers[j].MinLevel
	})

	c.actionsByID = make(map[string]*RewardAction, len(c.Actions))
	for i := range c.Actions {
		a := &c.Actions[i]
		if a.ID == "" {
			return fmt.Errorf("action with empty id")
		}
		if a.Points < 0 {
			return fmt.Errorf("action %s: negative points", a.ID)
		}
		if _, ok := c.actionsByID[a.ID]; ok {
			return fmt.Errorf("duplicate action id %s", a.ID)
		}
		c.actionsByID[a.ID] = a
	}

	c.tiersByID = make(map[string]*AccessTierDef, len(c.Tiers))
	c.tierRank = make(map[string]int, len(c.Tiers))
	for i := range c.Tiers {
		t := &c.Tiers[i]
		if _, ok := c.tiersByID[t.ID]; ok {
			return fmt.Errorf("duplicate tier id %s", t.ID)
		}
		c.tiersByID[t.ID] = t
		c.tierRank[t.ID] = i
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("catalog requires at least one tier")
	}
	if c.Tiers[0].MinLevel > 1 {
		return fmt.Errorf("lowest tier %s must be reachable at level 1", c.Tiers[0].ID)
	}

	c.challengesByID = make(map[string]*ChallengeDef, len(c.Challenges))
	for i := range c.Challenges {
		ch := &c.Challenges[i]
		if _, ok := c.challengesByID[ch.ID]; ok {
			return fmt.Errorf("duplicate challenge id %s", ch.ID)
		}
		if len(ch.Criteria) == 0 {
			return fmt.Errorf("challenge %s: no criteria", ch.ID)
		}
		if err := c.validateCriteria(ch.Criteria); err != nil {
			return fmt.Errorf("challenge %s: %w", ch.ID, err)
		}
		c.challengesByID[ch.ID] = ch
	}

	seen := make(map[string]bool, len(c.Achievements))
	for i := range c.Achievements {
		a := &c.Achievements[i]
		if seen[a.ID] {
			return fmt.Errorf("duplicate achievement id %s", a.ID)
		}
		seen[a.ID] = true
		if len(a.Criteria) == 0 {
			return fmt.Errorf("achievement %s: no criteria", a.ID)
		}
		if err := c.validateCriteria(a.Criteria); err != nil {
			return fmt.Errorf("achievement %s: %w", a.ID, err)
		}
	}

	c.contentByID = make(map[string]*ContentItem, len(c.Content))
	for i := range c.Content {
		item := &c.Content[i]
		if _, ok := c.contentByID[item.ID]; ok {
			return fmt.Errorf("duplicate content id %s", item.ID)
		}
		if _, ok := c.tiersByID[item.RequiredTierID]; !ok {
			return fmt.Errorf("content %s: unknown tier %s", item.ID, item.RequiredTierID)
		}
		c.contentByID[item.ID] = item
	}

	if len(c.LevelThresholds) == 0 {
		c.LevelThresholds = defaultLevelThresholds()
	}
	if c.LevelThresholds[0] != 0 {
		return fmt.Errorf("level threshold table must start at 0")
	}
	for i := 1; i < len(c.LevelThresholds); i++ {
		if c.LevelThresholds[i] <= c.LevelThresholds[i-1] {
			return fmt.Errorf("level thresholds must be strictly ascending")
		}
	}

	return nil
}

func (c *Catalog) validateCriteria(criteria []Criterion) error {
	for _, cr := range criteria {
		switch cr.Type {
		case CriterionActionCount:
			if _, ok := c.actionsByID[cr.ActionID]; !ok {
				return fmt.Errorf("criterion references unknown action %s", cr.ActionID)
			}
			if cr.Count <= 0 {
				return fmt.Errorf("action_count criterion requires count > 0")
			}
		case CriterionLevelAtLeast:
			if cr.Level < 1 {
				return fmt.Errorf("level_at_least criterion requires level >= 1")
			}
		case CriterionPointsAtLeast:
			if cr.Points <= 0 {
				return fmt.Errorf("points_at_least criterion requires points > 0")
			}
		case CriterionExpression:
			if cr.Expression == "" {
				return fmt.Errorf("expression criterion requires an expression")
			}
		default:
			return fmt.Errorf("unknown criterion type %q", cr.Type)
		}
	}
	return nil
}

func (c *Catalog) Action(id string) (*RewardAction, bool) {
	a, ok := c.actionsByID[id]
	return a, ok
}

func (c *Catalog) Tier(id string) (*AccessTierDef, bool) {
	t, ok := c.tiersByID[id]
	return t, ok
}

// TierRank reports a tier's position in the ascending MinLevel order.
func (c *Catalog) TierRank(id string) (int, bool) {
	r, ok := c.tierRank[id]
	return r, ok
}

func (c *Catalog) Challenge(id string) (*ChallengeDef, bool) {
	ch, ok := c.challengesByID[id]
	return ch, ok
}

func (c *Catalog) ContentItem(id string) (*ContentItem, bool) {
	item, ok := c.contentByID[id]
	return item, ok
}

// FloorTier is the lowest-ordered tier, the default for new profiles.
func (c *Catalog) FloorTier() *AccessTierDef {
	return &c.Tiers[0]
}

// ResolveTier picks the tier with the largest MinLevel <= level, falling
// back to the floor tier.
func (c *Catalog) ResolveTier(level int) *AccessTierDef {
	resolved := c.FloorTier()
	for i := range c.Tiers {
		if c.Tiers[i].MinLevel <= level {
			resolved = &c.Tiers[i]
		}
	}
	return resolved
}

// LevelFor derives a level from lifetime points using the threshold
// table. Pure; points past the top threshold stay at the top level.
func (c *Catalog) LevelFor(lifetimePoints int64) int {
	return LevelForThresholds(c.LevelThresholds, lifetimePoints)
}

func LevelForThresholds(thresholds []int64, lifetimePoints int64) int {
	level := 1
	for i, threshold := range thresholds {
		if lifetimePoints >= threshold {
			level = i + 1
		}
	}
	return level
}

// MaxLevel is the number of entries in the threshold table.
func (c *Catalog) MaxLevel() int {
	return len(c.LevelThresholds)
}

// IsChallengeOpen reports whether a challenge is active and inside its
// optional window at the given instant.
func (ch *ChallengeDef) IsOpen(now time.Time) (bool, ChallengeWindowState) {
	if ch.Status != ChallengeActive {
		return false, ChallengeWindowInactive
	}
	if ch.StartAt != nil && now.Before(*ch.StartAt) {
		return false, ChallengeWindowNotStarted
	}
	if ch.EndAt != nil && now.After(*ch.EndAt) {
		return false, ChallengeWindowEnded
	}
	return true, ChallengeWindowOpen
}

type ChallengeWindowState string

const (
	ChallengeWindowOpen       ChallengeWindowState = "open"
	ChallengeWindowInactive   ChallengeWindowState = "inactive"
	ChallengeWindowNotStarted ChallengeWindowState = "not_started"
	ChallengeWindowEnded      ChallengeWindowState = "ended"
)
