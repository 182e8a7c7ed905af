package services

import (
	"context"
	"errors"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) List(ctx context.Context, owner domain.Owner) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.WithContext(ctx).
		Where("scope_key = ?", owner.ScopeKey()).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

func (s *CategoryService) Create(ctx context.Context, owner domain.Owner, req models.CategoryRequest) (*models.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	category := models.Category{
		ScopeKey: owner.ScopeKey(),
		TeamID:   owner.TeamIDPtr(),
		UserID:   owner.UserID,
		Name:     req.Name,
		Color:    req.Color,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("Category already exists")
		}
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, owner domain.Owner, id uint, req models.CategoryRequest) (*models.Category, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var category models.Category
	if err := db.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&category).Error; err != nil {
		return nil, notFoundOr(err, "Category not found")
	}
	category.Name = req.Name
	category.Color = req.Color
	if err := db.Save(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Conflict("Category already exists")
		}
		return nil, err
	}
	return &category, nil
}

// Delete removes a category and clears it from memos and tasks, including
// deleted ones.
func (s *CategoryService) Delete(ctx context.Context, owner domain.Owner, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("Category not found")
		}
		for _, table := range []any{&models.Memo{}, &models.DeletedMemo{}, &models.Task{}} {
			if err := tx.Unscoped().Model(table).
				Where("scope_key = ? AND category_id = ?", owner.ScopeKey(), id).
				UpdateColumn("category_id", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
