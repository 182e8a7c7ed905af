package lifecycle

import (
	"context"

	"github.com/arnold/memoboard-api/internal/domain"
	"gorm.io/gorm"
)

// Flag keeps deleted rows in place with deleted_at set. T must carry a
// gorm.DeletedAt field.
type Flag[T Record] struct {
	db    *gorm.DB
	opts  Options
	hooks Hooks[T]
}

// NewFlag returns a PreserveKey lifecycle over the table of T.
func NewFlag[T Record](db *gorm.DB, opts Options, hooks Hooks[T]) *Flag[T] {
	return &Flag[T]{db: db, opts: opts, hooks: hooks}
}

func (f *Flag[T]) Strategy() Strategy { return PreserveKey }

func (f *Flag[T]) Delete(ctx context.Context, owner domain.Owner, id uint) (T, error) {
	var item T
	now := f.opts.now()
	values := map[string]any{"deleted_at": now}
	if f.opts.TouchOnDelete {
		values["updated_at"] = now
	}

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The soft-delete clause adds deleted_at IS NULL, so of two racing
		// deletes only one matches a row.
		res := tx.Model(new(T)).
			Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).
			UpdateColumns(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return f.opts.notFound(owner)
		}
		if err := tx.Unscoped().Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if f.hooks.Deleted != nil {
			return f.hooks.Deleted(tx, owner, item)
		}
		return nil
	})
	return item, f.opts.wrap(owner, err)
}

func (f *Flag[T]) ListDeleted(ctx context.Context, owner domain.Owner) ([]Deleted[T], error) {
	var rows []T
	err := f.db.WithContext(ctx).Unscoped().
		Where("scope_key = ? AND deleted_at IS NOT NULL", owner.ScopeKey()).
		Order("deleted_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return f.entries(ctx, owner, rows)
}

func (f *Flag[T]) DeletedByKey(ctx context.Context, owner domain.Owner, keys []string) (map[string]Deleted[T], error) {
	result := make(map[string]Deleted[T], len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var rows []T
	err := f.db.WithContext(ctx).Unscoped().
		Where("scope_key = ? AND deleted_at IS NOT NULL", owner.ScopeKey()).
		Where(f.opts.KeyColumn+" IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries, err := f.entries(ctx, owner, rows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		result[e.Ref] = e
	}
	return result, nil
}

func (f *Flag[T]) entries(ctx context.Context, owner domain.Owner, rows []T) ([]Deleted[T], error) {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.RecordKey()
	}
	counts, err := commentCounts(f.db.WithContext(ctx), owner.ScopeKey(), f.opts.Target, keys)
	if err != nil {
		return nil, err
	}

	out := make([]Deleted[T], len(rows))
	for i, r := range rows {
		out[i] = Deleted[T]{
			Ref:          r.RecordKey(),
			Item:         r,
			DeletedAt:    r.DeletedTime(),
			CommentCount: counts[r.RecordKey()],
		}
	}
	return out, nil
}

func (f *Flag[T]) Restore(ctx context.Context, owner domain.Owner, ref string) (T, error) {
	var item T
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(new(T)).
			Where("scope_key = ? AND deleted_at IS NOT NULL", owner.ScopeKey()).
			Where(f.opts.KeyColumn+" = ?", ref).
			UpdateColumns(map[string]any{"deleted_at": nil, "updated_at": f.opts.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return f.opts.notFound(owner)
		}
		if err := tx.Where("scope_key = ?", owner.ScopeKey()).
			Where(f.opts.KeyColumn+" = ?", ref).
			First(&item).Error; err != nil {
			return err
		}
		if f.hooks.Restored != nil {
			return f.hooks.Restored(tx, owner, item, item.RecordID())
		}
		return nil
	})
	return item, f.opts.wrap(owner, err)
}

func (f *Flag[T]) Purge(ctx context.Context, owner domain.Owner, ref string) (T, error) {
	var (
		item  T
		blobs []string
	)
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Unscoped().
			Where("scope_key = ? AND deleted_at IS NOT NULL", owner.ScopeKey()).
			Where(f.opts.KeyColumn+" = ?", ref).
			First(&item).Error
		if err != nil {
			return err
		}

		blobs, err = f.opts.Purger.Dependents(tx, owner.ScopeKey(), f.opts.Target, item.RecordKey())
		if err != nil {
			return err
		}
		if f.hooks.Purged != nil {
			if err := f.hooks.Purged(tx, owner, item); err != nil {
				return err
			}
		}
		return tx.Unscoped().Where("id = ?", item.RecordID()).Delete(new(T)).Error
	})
	if err != nil {
		return item, f.opts.wrap(owner, err)
	}
	f.opts.Purger.RemoveBlobs(ctx, blobs)
	return item, nil
}
