package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/storage"
	"gorm.io/gorm"
)

// Upload is an incoming attachment.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type AttachmentService struct {
	db       *gorm.DB
	store    storage.Store
	maxBytes int64
	logger   *slog.Logger
}

func NewAttachmentService(db *gorm.DB, store storage.Store, maxBytes int64, logger *slog.Logger) *AttachmentService {
	return &AttachmentService{db: db, store: store, maxBytes: maxBytes, logger: logger}
}

// Create stores the upload and records it against an active target.
func (s *AttachmentService) Create(ctx context.Context, owner domain.Owner, targetType, key string, up Upload) (*models.Attachment, error) {
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return nil, err
	}
	if up.Size <= 0 {
		return nil, domain.Invalid("File is empty")
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return nil, domain.Invalid(fmt.Sprintf("File must be under %d bytes", s.maxBytes))
	}
	name := filepath.Base(up.FileName)
	if name == "." || name == "/" {
		return nil, domain.Invalid("File name is required")
	}

	db := s.db.WithContext(ctx)
	ok, err := targetExists(db, owner.ScopeKey(), target, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFound("Target not found")
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attachment := models.Attachment{
		ScopeKey:        owner.ScopeKey(),
		TeamID:          owner.TeamIDPtr(),
		TargetType:      target,
		TargetDisplayID: key,
		UserID:          owner.UserID,
		FileName:        name,
		ContentType:     contentType,
		Size:            up.Size,
		StorageKey:      storage.NewKey(owner.ScopeKey(), name),
	}
	if err := s.store.Put(ctx, attachment.StorageKey, up.Body, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	if err := db.Create(&attachment).Error; err != nil {
		s.removeBlob(ctx, attachment.StorageKey)
		return nil, err
	}
	return &attachment, nil
}

func (s *AttachmentService) List(ctx context.Context, owner domain.Owner, targetType, key string) ([]models.Attachment, error) {
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return nil, err
	}
	attachments := []models.Attachment{}
	err = s.db.WithContext(ctx).
		Where("scope_key = ? AND target_type = ? AND target_display_id = ?", owner.ScopeKey(), target, key).
		Order("created_at ASC, id ASC").
		Find(&attachments).Error
	return attachments, err
}

func (s *AttachmentService) get(ctx context.Context, owner domain.Owner, id uint) (*models.Attachment, error) {
	var attachment models.Attachment
	err := s.db.WithContext(ctx).Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&attachment).Error
	if err != nil {
		return nil, notFoundOr(err, "Attachment not found")
	}
	return &attachment, nil
}

// Open returns the attachment and its content. The caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, owner domain.Owner, id uint) (*models.Attachment, io.ReadCloser, error) {
	attachment, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.store.Open(ctx, attachment.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, domain.NotFound("Attachment content not found")
		}
		return nil, nil, err
	}
	return attachment, body, nil
}

// Delete removes an attachment. Uploaders may delete their own; team admins
// may delete any.
func (s *AttachmentService) Delete(ctx context.Context, owner domain.Owner, id uint) error {
	attachment, err := s.get(ctx, owner, id)
	if err != nil {
		return err
	}
	if attachment.UserID != owner.UserID && !(owner.IsTeam() && owner.IsAdmin()) {
		return domain.Forbidden("You can only delete your own attachments")
	}
	if err := s.db.WithContext(ctx).Delete(attachment).Error; err != nil {
		return err
	}
	s.removeBlob(ctx, attachment.StorageKey)
	return nil
}

func (s *AttachmentService) removeBlob(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "blob delete failed", "key", key, "error", err)
	}
}
