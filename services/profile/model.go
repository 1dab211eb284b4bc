package profile

import "time"

// RewardProfile is the per-member aggregate root. CurrentPoints is the
// spendable balance, LifetimePoints only ever grows and drives level
// derivation.
type RewardProfile struct {
	MemberID       string    `gorm:"column:member_id;primaryKey" json:"member_id"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
	CurrentPoints  int64     `gorm:"column:current_points" json:"current_points"`
	LifetimePoints int64     `gorm:"column:lifetime_points" json:"lifetime_points"`
	Level          int       `gorm:"column:level" json:"level"`
	AccessTierID   string    `gorm:"column:access_tier_id" json:"access_tier_id"`
}

func (RewardProfile) TableName() string {
	return "reward_profiles"
}

// LedgerEntry is one append-only point credit. Synthetic action ids of
// the form "achievement:<id>" and "challenge:<id>" record bonus payouts.
type LedgerEntry struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	MemberID    string    `gorm:"column:member_id;index:idx_ledger_member_created" json:"member_id"`
	ActionID    string    `gorm:"column:action_id;index" json:"action_id"`
	Points      int64     `gorm:"column:points" json:"points"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_ledger_member_created" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "point_ledger"
}

type AchievementRecord struct {
	MemberID      string    `gorm:"column:member_id;primaryKey" json:"member_id"`
	AchievementID string    `gorm:"column:achievement_id;primaryKey" json:"achievement_id"`
	EarnedAt      time.Time `gorm:"column:earned_at" json:"earned_at"`
}

func (AchievementRecord) TableName() string {
	return "achievement_records"
}

type ChallengeCompletion struct {
	MemberID      string    `gorm:"column:member_id;primaryKey" json:"member_id"`
	ChallengeID   string    `gorm:"column:challenge_id;primaryKey" json:"challenge_id"`
	CompletedAt   time.Time `gorm:"column:completed_at" json:"completed_at"`
	PointsAwarded int64     `gorm:"column:points_awarded" json:"points_awarded"`
}

func (ChallengeCompletion) TableName() string {
	return "challenge_completions"
}

// Models lists every table this package owns, for migration and tests.
func Models() []any {
	return []any{
		&RewardProfile{},
		&LedgerEntry{},
		&AchievementRecord{},
		&ChallengeCompletion{},
	}
}
