package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/search"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// Notifier delivers a per-user event.
type Notifier interface {
	Notify(ctx context.Context, userID string, event notify.Event)
}

// Indexer keeps the search index in step with memo and task writes.
type Indexer interface {
	Index(r search.Record)
	Remove(scopeKey string, t domain.ItemType, displayID string)
}

// BoardEvents publishes realtime board changes.
type BoardEvents interface {
	Publish(boardID uint, actorID, eventType string, data any)
}

type nopIndexer struct{}

func (nopIndexer) Index(search.Record)                    {}
func (nopIndexer) Remove(string, domain.ItemType, string) {}

type nopEvents struct{}

func (nopEvents) Publish(uint, string, string, any) {}

var richText = bluemonday.UGCPolicy()

// sanitize strips unsafe markup from user-supplied rich text.
func sanitize(s string) string {
	return richText.Sanitize(s)
}

// validate runs ozzo validation and converts failures to a ValidationError
// with per-field issues.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		issues := make(map[string]string, len(fields))
		for field, ferr := range fields {
			issues[field] = ferr.Error()
		}
		return &domain.ValidationError{Message: "Validation failed", Issues: issues}
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return &domain.ValidationError{Message: err.Error()}
}

// nextDisplaySeq returns the next display sequence of a scope, counting
// active, flagged and archived rows so restored rows never collide.
func nextDisplaySeq(tx *gorm.DB, scopeKey string, tables ...any) (int, error) {
	highest := 0
	for _, table := range tables {
		var n int
		err := tx.Unscoped().Model(table).
			Where("scope_key = ?", scopeKey).
			Select("COALESCE(MAX(display_seq), 0)").
			Scan(&n).Error
		if err != nil {
			return 0, err
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// createWithDisplayID assigns prefix+seq and inserts, retrying when a
// concurrent insert took the same display id.
func createWithDisplayID(db *gorm.DB, prefix, scopeKey string, tables []any, assign func(seq int, displayID string), insert func(tx *gorm.DB) error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = db.Transaction(func(tx *gorm.DB) error {
			seq, err := nextDisplaySeq(tx, scopeKey, tables...)
			if err != nil {
				return err
			}
			assign(seq, fmt.Sprintf("%s%d", prefix, seq))
			return insert(tx)
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

// uniqueSlug returns base, or base-2, base-3... whichever is free.
func uniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "untitled"
	}
	slug := base
	for n := 2; ; n++ {
		used, err := taken(slug)
		if err != nil {
			return "", err
		}
		if !used {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

// itemTable returns the active table of an item type.
func itemTable(t domain.ItemType) any {
	switch t {
	case domain.ItemMemo:
		return &models.Memo{}
	case domain.ItemTask:
		return &models.Task{}
	}
	panic(fmt.Sprintf("unknown item type %q", string(t)))
}

// resolveItem maps a display id or numeric id to the active item's id and
// display id within the scope. Display ids are tried first.
func resolveItem(tx *gorm.DB, scopeKey string, t domain.ItemType, ident string) (uint, string, error) {
	type row struct {
		ID        uint
		DisplayID string
	}
	lookup := func(column string, value any) (row, error) {
		var r row
		err := tx.Model(itemTable(t)).
			Select("id, display_id").
			Where("scope_key = ?", scopeKey).
			Where(column+" = ?", value).
			Limit(1).
			Scan(&r).Error
		return r, err
	}

	r, err := lookup("display_id", ident)
	if err != nil {
		return 0, "", err
	}
	if r.ID == 0 {
		id, perr := strconv.ParseUint(ident, 10, 64)
		if perr != nil {
			return 0, "", gorm.ErrRecordNotFound
		}
		if r, err = lookup("id", id); err != nil {
			return 0, "", err
		}
		if r.ID == 0 {
			return 0, "", gorm.ErrRecordNotFound
		}
	}
	return r.ID, r.DisplayID, nil
}

// targetExists reports whether an active comment/tag target exists in scope.
// Board targets are keyed by slug, items by display id.
func targetExists(tx *gorm.DB, scopeKey string, target domain.TargetType, key string) (bool, error) {
	var (
		table  any
		column string
	)
	switch target {
	case domain.TargetMemo:
		table, column = &models.Memo{}, "display_id"
	case domain.TargetTask:
		table, column = &models.Task{}, "display_id"
	case domain.TargetBoard:
		table, column = &models.Board{}, "slug"
	case domain.TargetComment:
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return false, nil
		}
		var n int64
		err = tx.Model(&models.Comment{}).Where("scope_key = ? AND id = ?", scopeKey, id).Count(&n).Error
		return n > 0, err
	}

	var n int64
	err := tx.Model(table).Where("scope_key = ?", scopeKey).Where(column+" = ?", key).Count(&n).Error
	return n > 0, err
}

// itemHooks keeps board placements in step with an item's lifecycle.
func itemHooks[T lifecycle.Record](t domain.ItemType) lifecycle.Hooks[T] {
	return lifecycle.Hooks[T]{
		Deleted: func(tx *gorm.DB, owner domain.Owner, item T) error {
			return tx.Where("scope_key = ? AND item_type = ? AND display_id = ?", owner.ScopeKey(), t, item.RecordKey()).
				Delete(&models.BoardItem{}).Error
		},
		Restored: func(tx *gorm.DB, owner domain.Owner, item T, _ uint) error {
			return tx.Unscoped().Model(&models.BoardItem{}).
				Where("scope_key = ? AND item_type = ? AND display_id = ? AND deleted_at IS NOT NULL", owner.ScopeKey(), t, item.RecordKey()).
				UpdateColumn("deleted_at", nil).Error
		},
	}
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(message)
	}
	return err
}
