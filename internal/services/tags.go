package services

import (
	"context"
	"errors"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) List(ctx context.Context, owner domain.Owner) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.db.WithContext(ctx).Where("scope_key = ?", owner.ScopeKey()).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (s *TagService) Create(ctx context.Context, owner domain.Owner, req models.TagRequest) (*models.Tag, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	tag := models.Tag{
		ScopeKey: owner.ScopeKey(),
		TeamID:   owner.TeamIDPtr(),
		UserID:   owner.UserID,
		Name:     req.Name,
		Color:    req.Color,
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("Tag already exists")
		}
		return nil, err
	}
	return &tag, nil
}

func (s *TagService) get(tx *gorm.DB, owner domain.Owner, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&tag).Error; err != nil {
		return nil, notFoundOr(err, "Tag not found")
	}
	return &tag, nil
}

func (s *TagService) Update(ctx context.Context, owner domain.Owner, id uint, req models.TagRequest) (*models.Tag, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	tag, err := s.get(db, owner, id)
	if err != nil {
		return nil, err
	}
	tag.Name = req.Name
	tag.Color = req.Color
	if err := db.Save(tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("Tag already exists")
		}
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, owner domain.Owner, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).Delete(&models.Tag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("Tag not found")
		}
		return tx.Where("tag_id = ?", id).Delete(&models.Tagging{}).Error
	})
}

// Attach tags an active memo, task or board. Tagging twice is a conflict.
func (s *TagService) Attach(ctx context.Context, owner domain.Owner, tagID uint, req models.TaggingRequest) (*models.Tagging, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	target, err := domain.ParseTargetType(req.TargetType)
	if err != nil {
		return nil, err
	}

	var tagging models.Tagging
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag, err := s.get(tx, owner, tagID)
		if err != nil {
			return err
		}
		ok, err := targetExists(tx, owner.ScopeKey(), target, req.TargetDisplayID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("Target not found")
		}

		tagging = models.Tagging{
			TagID:           tag.ID,
			ScopeKey:        owner.ScopeKey(),
			TargetType:      target,
			TargetDisplayID: req.TargetDisplayID,
			Tag:             *tag,
		}
		if err := tx.Omit("Tag").Create(&tagging).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("Tag already attached")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tagging, nil
}

func (s *TagService) Detach(ctx context.Context, owner domain.Owner, tagID uint, targetType, key string) error {
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("tag_id = ? AND scope_key = ? AND target_type = ? AND target_display_id = ?", tagID, owner.ScopeKey(), target, key).
		Delete(&models.Tagging{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Tag not attached")
	}
	return nil
}

// ForTarget lists the tags on a target.
func (s *TagService) ForTarget(ctx context.Context, owner domain.Owner, targetType, key string) ([]models.Tag, error) {
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return nil, err
	}
	tags := []models.Tag{}
	err = s.db.WithContext(ctx).
		Joins("JOIN taggings ON taggings.tag_id = tags.id").
		Where("taggings.scope_key = ? AND taggings.target_type = ? AND taggings.target_display_id = ?", owner.ScopeKey(), target, key).
		Order("tags.name ASC").
		Find(&tags).Error
	return tags, err
}
