package profile

import (
	"context"
	"sync"
	"time"

	"engagement-controlplane/pkg/db/option"
	"engagement-controlplane/pkg/db/pagination"
	"engagement-controlplane/pkg/errutil"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// keyedMutex serializes work per member so two concurrent commits for
// the same member never interleave inside the process. The row lock
// inside the transaction covers other processes.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*memberLock
}

type memberLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) *memberLock {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &memberLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return l
}

func (k *keyedMutex) unlock(key string, l *memberLock) {
	l.Unlock()

	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Store owns reward profile persistence. All mutations go through
// Commit, which serializes per member and runs inside a transaction
// holding a row lock on the profile.
type Store struct {
	db    *gorm.DB
	locks keyedMutex
}

type StoreParams struct {
	fx.In

	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{
		db:    p.DB,
		locks: keyedMutex{locks: make(map[string]*memberLock)},
	}
}

// Get returns the profile, or nil when the member has none yet.
func (s *Store) Get(ctx context.Context, memberID string) (*RewardProfile, error) {
	var p RewardProfile
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errutil.Internal("failed to load reward profile", err)
	}
	return &p, nil
}

// Create inserts a fresh profile. Conflicts surface as errors so the
// lazy creation path can detect a concurrent insert.
func (s *Store) Create(ctx context.Context, p *RewardProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return errutil.Internal("profile not persistable", err)
	}
	return nil
}

// Commit loads the member's profile under a row lock, applies mutate
// and persists the result. mutate receives the transaction so related
// rows (ledger entries, achievement records) join the same commit.
func (s *Store) Commit(ctx context.Context, memberID string, mutate func(tx *gorm.DB, p *RewardProfile) error) (*RewardProfile, error) {
	l := s.locks.lock(memberID)
	defer s.locks.unlock(memberID, l)

	var result *RewardProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p RewardProfile
		err := tx.Scopes(option.LockingUpdate).
			Where("member_id = ?", memberID).
			First(&p).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return errutil.NotFound("reward profile not found", err)
			}
			return errutil.Internal("failed to load reward profile", err)
		}

		if err := mutate(tx, &p); err != nil {
			return err
		}

		p.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&p).Error; err != nil {
			return errutil.Internal("profile not persistable", err)
		}

		result = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AppendEntry writes one ledger row inside the given transaction.
func (s *Store) AppendEntry(tx *gorm.DB, entry *LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := tx.Create(entry).Error; err != nil {
		return errutil.Internal("failed to append ledger entry", err)
	}
	return nil
}

// HasEntry reports whether the member already has a ledger row for the
// action. Used for one-time action enforcement, so it must run inside
// the commit transaction.
func (s *Store) HasEntry(tx *gorm.DB, memberID, actionID string) (bool, error) {
	var count int64
	err := tx.Model(&LedgerEntry{}).
		Where("member_id = ? AND action_id = ?", memberID, actionID).
		Count(&count).Error
	if err != nil {
		return false, errutil.Internal("failed to query ledger", err)
	}
	return count > 0, nil
}

type actionCountRow struct {
	ActionID string
	Total    int64
}

// ActionCounts aggregates the member's ledger by action id.
func (s *Store) ActionCounts(tx *gorm.DB, memberID string) (map[string]int64, error) {
	var rows []actionCountRow
	err := tx.Model(&LedgerEntry{}).
		Select("action_id, count(*) as total").
		Where("member_id = ?", memberID).
		Group("action_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errutil.Internal("failed to aggregate ledger", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ActionID] = r.Total
	}
	return counts, nil
}

// ActionCountsFor is the read-only variant used outside a commit.
func (s *Store) ActionCountsFor(ctx context.Context, memberID string) (map[string]int64, error) {
	return s.ActionCounts(s.db.WithContext(ctx), memberID)
}

func (s *Store) Achievements(ctx context.Context, memberID string) ([]*AchievementRecord, error) {
	var records []*AchievementRecord
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("earned_at asc").
		Find(&records).Error
	if err != nil {
		return nil, errutil.Internal("failed to load achievements", err)
	}
	return records, nil
}

func (s *Store) HasAchievement(tx *gorm.DB, memberID, achievementID string) (bool, error) {
	var count int64
	err := tx.Model(&AchievementRecord{}).
		Where("member_id = ? AND achievement_id = ?", memberID, achievementID).
		Count(&count).Error
	if err != nil {
		return false, errutil.Internal("failed to query achievements", err)
	}
	return count > 0, nil
}

func (s *Store) AddAchievement(tx *gorm.DB, record *AchievementRecord) error {
	if record.EarnedAt.IsZero() {
		record.EarnedAt = time.Now().UTC()
	}
	if err := tx.Create(record).Error; err != nil {
		return errutil.Internal("failed to record achievement", err)
	}
	return nil
}

func (s *Store) Completions(ctx context.Context, memberID string) ([]*ChallengeCompletion, error) {
	var records []*ChallengeCompletion
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("completed_at asc").
		Find(&records).Error
	if err != nil {
		return nil, errutil.Internal("failed to load challenge completions", err)
	}
	return records, nil
}

func (s *Store) HasCompletion(tx *gorm.DB, memberID, challengeID string) (bool, error) {
	var count int64
	err := tx.Model(&ChallengeCompletion{}).
		Where("member_id = ? AND challenge_id = ?", memberID, challengeID).
		Count(&count).Error
	if err != nil {
		return false, errutil.Internal("failed to query challenge completions", err)
	}
	return count > 0, nil
}

func (s *Store) AddCompletion(tx *gorm.DB, record *ChallengeCompletion) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now().UTC()
	}
	if err := tx.Create(record).Error; err != nil {
		return errutil.Internal("failed to record challenge completion", err)
	}
	return nil
}

// History pages through the member's ledger, newest first, using an
// opaque (created_at, id) cursor.
func (s *Store) History(ctx context.Context, memberID string, page pagination.Pagination) ([]*LedgerEntry, *pagination.PageInfo, error) {
	limit := page.Limit
	if limit <= 0 || limit > 250 {
		limit = 20
	}

	q := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at desc, id desc").
		Limit(limit + 1)

	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		after, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", after, after, cursor.ID)
	}

	var entries []*LedgerEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, nil, errutil.Internal("failed to load point history", err)
	}

	entries, pageInfo := pagination.BuildCursorPageInfo(entries, limit, func(e *LedgerEntry) string {
		cur, err := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
			ID:        e.ID,
		})
		if err != nil {
			return ""
		}
		return cur
	})

	return entries, pageInfo, nil
}
