package lifecycle

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// BlobRemover deletes stored attachment content.
type BlobRemover interface {
	Delete(ctx context.Context, key string) error
}

// Purger removes the rows that hang off a target: comments, the comments'
// attachments, attachments, taggings and board placements.
type Purger struct {
	blobs  BlobRemover
	logger *slog.Logger
}

func NewPurger(blobs BlobRemover, logger *slog.Logger) *Purger {
	return &Purger{blobs: blobs, logger: logger}
}

// Dependents deletes everything attached to (target, key) in the scope and
// returns the storage keys of the deleted attachments.
func (p *Purger) Dependents(tx *gorm.DB, scopeKey string, target domain.TargetType, key string) ([]string, error) {
	var commentIDs []uint
	if target.Commentable() {
		err := tx.Model(&models.Comment{}).
			Where("scope_key = ? AND target_type = ? AND target_display_id = ?", scopeKey, target, key).
			Pluck("id", &commentIDs).Error
		if err != nil {
			return nil, err
		}
	}

	attachments := tx.Where("scope_key = ? AND target_type = ? AND target_display_id = ?", scopeKey, target, key)
	if len(commentIDs) > 0 {
		refs := make([]string, len(commentIDs))
		for i, id := range commentIDs {
			refs[i] = strconv.FormatUint(uint64(id), 10)
		}
		attachments = attachments.Or("scope_key = ? AND target_type = ? AND target_display_id IN ?", scopeKey, domain.TargetComment, refs)
	}

	var storageKeys []string
	if err := tx.Model(&models.Attachment{}).Where(attachments).Pluck("storage_key", &storageKeys).Error; err != nil {
		return nil, err
	}
	if err := tx.Where(attachments).Delete(&models.Attachment{}).Error; err != nil {
		return nil, err
	}

	if len(commentIDs) > 0 {
		if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Where("scope_key = ? AND target_type = ? AND target_display_id = ?", scopeKey, target, key).
		Delete(&models.Tagging{}).Error; err != nil {
		return nil, err
	}

	switch target {
	case domain.TargetMemo, domain.TargetTask:
		err := tx.Unscoped().
			Where("scope_key = ? AND item_type = ? AND display_id = ?", scopeKey, target, key).
			Delete(&models.BoardItem{}).Error
		if err != nil {
			return nil, err
		}
	case domain.TargetBoard, domain.TargetComment:
	}

	return storageKeys, nil
}

// RemoveBlobs deletes stored content after the owning rows are gone. Failures
// are logged and otherwise ignored.
func (p *Purger) RemoveBlobs(ctx context.Context, keys []string) {
	if p == nil || p.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := p.blobs.Delete(ctx, key); err != nil {
			p.logger.WarnContext(ctx, "blob delete failed", "key", key, "error", err)
		}
	}
}
