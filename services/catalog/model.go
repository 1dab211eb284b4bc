package catalog

import (
	"time"
)

// RewardAction is a catalog entry describing one creditable action.
type RewardAction struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Points      int64  `yaml:"points" json:"points"`
	Category    string `yaml:"category" json:"category"`
	OneTime     bool   `yaml:"one_time" json:"one_time"`
}

type CriterionType string

const (
	CriterionActionCount   CriterionType = "action_count"
	CriterionLevelAtLeast  CriterionType = "level_at_least"
	CriterionPointsAtLeast CriterionType = "points_at_least"
	CriterionExpression    CriterionType = "expression"
)

// Criterion is one atomic condition used by achievements and challenges.
// Exactly one of the value fields is meaningful depending on Type.
type Criterion struct {
	Type       CriterionType `yaml:"type" json:"type"`
	ActionID   string        `yaml:"action_id,omitempty" json:"action_id,omitempty"`
	Count      int64         `yaml:"count,omitempty" json:"count,omitempty"`
	Level      int           `yaml:"level,omitempty" json:"level,omitempty"`
	Points     int64         `yaml:"points,omitempty" json:"points,omitempty"`
	Expression string        `yaml:"expression,omitempty" json:"expression,omitempty"`
}

type AchievementDef struct {
	ID           string      `yaml:"id" json:"id"`
	Name         string      `yaml:"name" json:"name"`
	Description  string      `yaml:"description" json:"description"`
	BadgeImage   string      `yaml:"badge_image" json:"badge_image"`
	Category     string      `yaml:"category" json:"category"`
	Criteria     []Criterion `yaml:"criteria" json:"criteria"`
	RewardPoints int64       `yaml:"reward_points" json:"reward_points"`
}

// AccessTierDef is a named access level unlocked at a member-level
// threshold. Tiers are totally ordered by MinLevel; rank is the index in
// ascending order.
type AccessTierDef struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	MinLevel    int      `yaml:"min_level" json:"min_level"`
	Features    []string `yaml:"features" json:"features"`
}

type ChallengeStatus string

const (
	ChallengeActive   ChallengeStatus = "active"
	ChallengeInactive ChallengeStatus = "inactive"
)

type ChallengeDef struct {
	ID           string          `yaml:"id" json:"id"`
	Name         string          `yaml:"name" json:"name"`
	Description  string          `yaml:"description" json:"description"`
	RewardPoints int64           `yaml:"reward_points" json:"reward_points"`
	Criteria     []Criterion     `yaml:"criteria" json:"criteria"`
	Status       ChallengeStatus `yaml:"status" json:"status"`
	StartAt      *time.Time      `yaml:"start_at,omitempty" json:"start_at,omitempty"`
	EndAt        *time.Time      `yaml:"end_at,omitempty" json:"end_at,omitempty"`
}

// ContentItem is a gated piece of exclusive content. Access requires both
// the member level and the tier rank test to pass.
type ContentItem struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description" json:"description"`
	ContentType    string `yaml:"content_type" json:"content_type"`
	RequiredLevel  int    `yaml:"required_level" json:"required_level"`
	RequiredTierID string `yaml:"required_tier_id" json:"required_tier_id"`
}
