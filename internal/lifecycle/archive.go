package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"gorm.io/gorm"
)

// Codec converts between an active row T and its archived copy A.
type Codec[T, A Record] struct {
	// Archive copies an active row, stamping the deletion time.
	Archive func(item T, at time.Time) A
	// Revive builds a fresh active row (zero id) from an archived copy.
	Revive func(archived A, at time.Time) T
	// View shows an archived copy as the active row it was.
	View func(archived A) T
}

// Archive moves deleted rows into a separate table and re-inserts them on
// restore. Refs are archive row ids.
type Archive[T, A Record] struct {
	db    *gorm.DB
	opts  Options
	codec Codec[T, A]
	hooks Hooks[T]
}

// NewArchive returns a Reinsert lifecycle between the tables of T and A.
func NewArchive[T, A Record](db *gorm.DB, opts Options, codec Codec[T, A], hooks Hooks[T]) *Archive[T, A] {
	return &Archive[T, A]{db: db, opts: opts, codec: codec, hooks: hooks}
}

func (a *Archive[T, A]) Strategy() Strategy { return Reinsert }

func (a *Archive[T, A]) Delete(ctx context.Context, owner domain.Owner, id uint) (T, error) {
	var item T
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&item).Error; err != nil {
			return err
		}

		archived := a.codec.Archive(item, a.opts.now())
		if err := tx.Create(&archived).Error; err != nil {
			return err
		}

		res := tx.Unscoped().Where("id = ?", id).Delete(new(T))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return a.opts.notFound(owner)
		}
		if a.hooks.Deleted != nil {
			return a.hooks.Deleted(tx, owner, item)
		}
		return nil
	})
	return item, a.opts.wrap(owner, err)
}

func (a *Archive[T, A]) ListDeleted(ctx context.Context, owner domain.Owner) ([]Deleted[T], error) {
	var rows []A
	err := a.db.WithContext(ctx).
		Where("scope_key = ?", owner.ScopeKey()).
		Order("deleted_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return a.entries(ctx, owner, rows)
}

func (a *Archive[T, A]) DeletedByKey(ctx context.Context, owner domain.Owner, keys []string) (map[string]Deleted[T], error) {
	result := make(map[string]Deleted[T], len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	// Newest first so the latest copy of a key wins.
	var rows []A
	err := a.db.WithContext(ctx).
		Where("scope_key = ?", owner.ScopeKey()).
		Where(a.opts.KeyColumn+" IN ?", keys).
		Order("deleted_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries, err := a.entries(ctx, owner, rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		key := e.Item.RecordKey()
		if _, seen := result[key]; !seen {
			result[key] = e
		}
	}
	return result, nil
}

func (a *Archive[T, A]) entries(ctx context.Context, owner domain.Owner, rows []A) ([]Deleted[T], error) {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.RecordKey()
	}
	counts, err := commentCounts(a.db.WithContext(ctx), owner.ScopeKey(), a.opts.Target, keys)
	if err != nil {
		return nil, err
	}

	out := make([]Deleted[T], len(rows))
	for i, r := range rows {
		out[i] = Deleted[T]{
			Ref:          strconv.FormatUint(uint64(r.RecordID()), 10),
			Item:         a.codec.View(r),
			DeletedAt:    r.DeletedTime(),
			CommentCount: counts[r.RecordKey()],
		}
	}
	return out, nil
}

func (a *Archive[T, A]) find(tx *gorm.DB, owner domain.Owner, ref string) (A, error) {
	var archived A
	id, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return archived, a.opts.notFound(owner)
	}
	err = tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&archived).Error
	return archived, err
}

func (a *Archive[T, A]) Restore(ctx context.Context, owner domain.Owner, ref string) (T, error) {
	var item T
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		archived, err := a.find(tx, owner, ref)
		if err != nil {
			return err
		}

		item = a.codec.Revive(archived, a.opts.now())
		if err := tx.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict(owner.Label(a.opts.Resource) + " with the same key already exists")
			}
			return err
		}

		res := tx.Where("id = ?", archived.RecordID()).Delete(new(A))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return a.opts.notFound(owner)
		}
		if a.hooks.Restored != nil {
			return a.hooks.Restored(tx, owner, item, a.codec.View(archived).RecordID())
		}
		return nil
	})
	return item, a.opts.wrap(owner, err)
}

func (a *Archive[T, A]) Purge(ctx context.Context, owner domain.Owner, ref string) (T, error) {
	var (
		item  T
		blobs []string
	)
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		archived, err := a.find(tx, owner, ref)
		if err != nil {
			return err
		}
		item = a.codec.View(archived)

		blobs, err = a.opts.Purger.Dependents(tx, owner.ScopeKey(), a.opts.Target, archived.RecordKey())
		if err != nil {
			return err
		}
		if a.hooks.Purged != nil {
			if err := a.hooks.Purged(tx, owner, item); err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", archived.RecordID()).Delete(new(A))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return a.opts.notFound(owner)
		}
		return nil
	})
	if err != nil {
		return item, a.opts.wrap(owner, err)
	}
	a.opts.Purger.RemoveBlobs(ctx, blobs)
	return item, nil
}
