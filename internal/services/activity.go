package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// Activity actions
const (
	ActionCreated      = "created"
	ActionUpdated      = "updated"
	ActionDeleted      = "deleted"
	ActionRestored     = "restored"
	ActionPurged       = "purged"
	ActionItemAdded    = "item_added"
	ActionItemRemoved  = "item_removed"
	ActionCommented    = "commented"
	ActionMemberJoined = "member_joined"
	ActionMemberLeft   = "member_left"
	ActionMemberRole   = "member_role_changed"
)

type ActivityService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewActivityService(db *gorm.DB, logger *slog.Logger) *ActivityService {
	return &ActivityService{db: db, logger: logger}
}

// Log records an activity entry. It runs after the primary write and never
// fails it.
func (s *ActivityService) Log(ctx context.Context, owner domain.Owner, action string, target domain.TargetType, key string, metadata map[string]any) {
	activity := models.Activity{
		ScopeKey:        owner.ScopeKey(),
		TeamID:          owner.TeamIDPtr(),
		UserID:          owner.UserID,
		Action:          action,
		TargetType:      target,
		TargetDisplayID: key,
	}
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			activity.Metadata = data
		}
	}

	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		s.logger.WarnContext(ctx, "activity log failed", "action", action, "target", target, "key", key, "error", err)
	}
}

type ActivityPage struct {
	Activities []models.Activity `json:"activities"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

// List returns the scope's activity, newest first.
func (s *ActivityService) List(ctx context.Context, owner domain.Owner, page, limit int) (ActivityPage, error) {
	page, limit = clampPage(page, limit)
	db := s.db.WithContext(ctx)

	var activities []models.Activity
	err := db.Where("scope_key = ?", owner.ScopeKey()).
		Preload("User").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return ActivityPage{}, err
	}

	var total int64
	if err := db.Model(&models.Activity{}).Where("scope_key = ?", owner.ScopeKey()).Count(&total).Error; err != nil {
		return ActivityPage{}, err
	}
	return ActivityPage{Activities: activities, Total: total, Page: page, Limit: limit}, nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit
}
