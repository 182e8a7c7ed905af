// Package lifecycle implements reversible deletion for scoped rows.
//
// A Lifecycle either keeps the row in place and flags it deleted
// (PreserveKey) or moves a copy to an archive table and re-inserts it with a
// new primary key on restore (Reinsert). Both expose the same operations and
// the same purge semantics.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// Strategy selects how a deleted row is kept.
type Strategy int

const (
	// PreserveKey flags the row deleted; id and display key survive restore.
	PreserveKey Strategy = iota
	// Reinsert copies the row to an archive table; restore assigns a new id.
	Reinsert
)

func (s Strategy) String() string {
	switch s {
	case PreserveKey:
		return "preserve-key"
	case Reinsert:
		return "reinsert"
	}
	return "unknown"
}

// Record is a scoped row that can be deleted and restored.
type Record interface {
	RecordID() uint
	RecordKey() string
	DeletedTime() time.Time
}

// Deleted is one entry of a deleted listing. Ref is what Restore and Purge
// accept: the display key for PreserveKey, the archive row id for Reinsert.
type Deleted[T Record] struct {
	Ref          string    `json:"ref"`
	Item         T         `json:"item"`
	DeletedAt    time.Time `json:"deletedAt"`
	CommentCount int64     `json:"commentCount"`
}

// Lifecycle is reversible deletion for one resource.
type Lifecycle[T Record] interface {
	Strategy() Strategy
	// Delete removes the active row with the given id from the owner's scope
	// and returns it as it was.
	Delete(ctx context.Context, owner domain.Owner, id uint) (T, error)
	// ListDeleted returns the owner's deleted rows, newest deletion first.
	ListDeleted(ctx context.Context, owner domain.Owner) ([]Deleted[T], error)
	// DeletedByKey looks up deleted rows by display key.
	DeletedByKey(ctx context.Context, owner domain.Owner, keys []string) (map[string]Deleted[T], error)
	// Restore brings a deleted row back and returns the active row.
	Restore(ctx context.Context, owner domain.Owner, ref string) (T, error)
	// Purge permanently removes a deleted row and everything attached to it.
	Purge(ctx context.Context, owner domain.Owner, ref string) (T, error)
}

// Hooks run inside the transaction of the corresponding operation. A hook
// error rolls the operation back.
type Hooks[T Record] struct {
	Deleted func(tx *gorm.DB, owner domain.Owner, item T) error
	// Restored receives the id the row had before it was deleted.
	Restored func(tx *gorm.DB, owner domain.Owner, item T, previousID uint) error
	Purged   func(tx *gorm.DB, owner domain.Owner, item T) error
}

// Options configure a lifecycle.
type Options struct {
	// Target is the comment/tag/attachment target type of the resource.
	Target domain.TargetType
	// Resource names the resource in not-found messages ("Task").
	Resource string
	// KeyColumn holds the display key (display_id or slug).
	KeyColumn string
	// TouchOnDelete refreshes updated_at when the row is flagged deleted.
	TouchOnDelete bool
	Purger        *Purger
	Now           func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) notFound(owner domain.Owner) error {
	return domain.NotFound(owner.Label(o.Resource) + " not found")
}

func (o Options) wrap(owner domain.Owner, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return o.notFound(owner)
	}
	return err
}

// commentCounts counts comments per display key for one target type.
func commentCounts(tx *gorm.DB, scopeKey string, target domain.TargetType, keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}

	var rows []struct {
		TargetDisplayID string
		Count           int64
	}
	err := tx.Model(&models.Comment{}).
		Select("target_display_id, COUNT(*) AS count").
		Where("scope_key = ? AND target_type = ? AND target_display_id IN ?", scopeKey, target, keys).
		Group("target_display_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.TargetDisplayID] = r.Count
	}
	return counts, nil
}
