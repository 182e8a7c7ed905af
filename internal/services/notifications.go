package services

import (
	"context"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// NotificationService reads and updates the persisted inbox.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Unread        int64                 `json:"unread"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, limit int) (NotificationPage, error) {
	page, limit = clampPage(page, limit)
	db := s.db.WithContext(ctx)

	notifications := []models.Notification{}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return NotificationPage{}, err
	}

	out := NotificationPage{Notifications: notifications, Page: page, Limit: limit}
	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&out.Total).Error; err != nil {
		return NotificationPage{}, err
	}
	if err := db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&out.Unread).Error; err != nil {
		return NotificationPage{}, err
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}
