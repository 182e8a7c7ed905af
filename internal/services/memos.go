package services

import (
	"context"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/search"
	"gorm.io/gorm"
)

// MemoService manages memos. Personal memos are archived to deleted_memos on
// delete; team memos are flagged in place.
type MemoService struct {
	db       *gorm.DB
	activity *ActivityService
	index    Indexer
	personal lifecycle.Lifecycle[models.Memo]
	team     lifecycle.Lifecycle[models.Memo]
}

func NewMemoService(db *gorm.DB, purger *lifecycle.Purger, activity *ActivityService, index Indexer) *MemoService {
	if index == nil {
		index = nopIndexer{}
	}
	opts := lifecycle.Options{
		Target:    domain.TargetMemo,
		Resource:  "Memo",
		KeyColumn: "display_id",
		Purger:    purger,
	}
	hooks := itemHooks[models.Memo](domain.ItemMemo)
	return &MemoService{
		db:       db,
		activity: activity,
		index:    index,
		personal: lifecycle.NewArchive(db, opts, lifecycle.Codec[models.Memo, models.DeletedMemo]{
			Archive: models.ArchiveMemo,
			Revive:  models.ReviveMemo,
			View:    models.DeletedMemo.View,
		}, hooks),
		team: lifecycle.NewFlag(db, opts, hooks),
	}
}

// Lifecycle returns the deletion strategy for the owner's scope.
func (s *MemoService) Lifecycle(owner domain.Owner) lifecycle.Lifecycle[models.Memo] {
	if owner.IsTeam() {
		return s.team
	}
	return s.personal
}

func (s *MemoService) notFound(owner domain.Owner) error {
	return domain.NotFound(owner.Label("Memo") + " not found")
}

func (s *MemoService) record(m models.Memo) search.Record {
	return search.NewRecord(m.ScopeKey, domain.ItemMemo, m.DisplayID, m.Title, m.Content, m.UpdatedAt)
}

func (s *MemoService) checkCategory(ctx context.Context, owner domain.Owner, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND scope_key = ?", *id, owner.ScopeKey()).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Invalid("Category not found")
	}
	return nil
}

func (s *MemoService) Create(ctx context.Context, owner domain.Owner, req models.CreateMemoRequest) (*models.Memo, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, owner, req.CategoryID); err != nil {
		return nil, err
	}

	memo := models.Memo{
		ScopeKey:   owner.ScopeKey(),
		UserID:     owner.UserID,
		TeamID:     owner.TeamIDPtr(),
		Title:      req.Title,
		Content:    sanitize(req.Content),
		CategoryID: req.CategoryID,
	}
	err := createWithDisplayID(s.db.WithContext(ctx), "M", owner.ScopeKey(),
		[]any{&models.Memo{}, &models.DeletedMemo{}},
		func(seq int, displayID string) {
			memo.ID = 0
			memo.DisplaySeq = seq
			memo.DisplayID = displayID
		},
		func(tx *gorm.DB) error { return tx.Create(&memo).Error },
	)
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionCreated, domain.TargetMemo, memo.DisplayID, map[string]any{"title": memo.Title})
	s.index.Index(s.record(memo))
	return &memo, nil
}

func (s *MemoService) Get(ctx context.Context, owner domain.Owner, displayID string) (*models.Memo, error) {
	var memo models.Memo
	err := s.db.WithContext(ctx).
		Where("scope_key = ? AND display_id = ?", owner.ScopeKey(), displayID).
		First(&memo).Error
	if err != nil {
		return nil, notFoundOr(err, owner.Label("Memo")+" not found")
	}
	return &memo, nil
}

// List returns active memos, most recently updated first.
func (s *MemoService) List(ctx context.Context, owner domain.Owner, categoryID *uint) ([]models.Memo, error) {
	q := s.db.WithContext(ctx).Where("scope_key = ?", owner.ScopeKey())
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	memos := []models.Memo{}
	err := q.Order("updated_at DESC, created_at DESC").Find(&memos).Error
	return memos, err
}

func (s *MemoService) Update(ctx context.Context, owner domain.Owner, displayID string, req models.UpdateMemoRequest) (*models.Memo, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, owner, req.CategoryID); err != nil {
		return nil, err
	}

	memo, err := s.Get(ctx, owner, displayID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = sanitize(*req.Content)
	}
	if req.ClearCategory {
		updates["category_id"] = nil
	} else if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if len(updates) == 0 {
		return memo, nil
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.Memo{}).Where("id = ?", memo.ID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.notFound(owner)
	}
	var fresh models.Memo
	if err := db.First(&fresh, memo.ID).Error; err != nil {
		return nil, notFoundOr(err, owner.Label("Memo")+" not found")
	}
	memo = &fresh

	s.activity.Log(ctx, owner, ActionUpdated, domain.TargetMemo, memo.DisplayID, nil)
	s.index.Index(s.record(*memo))
	return memo, nil
}

// Delete accepts a display id or a numeric id.
func (s *MemoService) Delete(ctx context.Context, owner domain.Owner, ident string) (*models.Memo, error) {
	id, _, err := resolveItem(s.db.WithContext(ctx), owner.ScopeKey(), domain.ItemMemo, ident)
	if err != nil {
		return nil, notFoundOr(err, owner.Label("Memo")+" not found")
	}
	memo, err := s.Lifecycle(owner).Delete(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionDeleted, domain.TargetMemo, memo.DisplayID, map[string]any{"title": memo.Title})
	s.index.Remove(memo.ScopeKey, domain.ItemMemo, memo.DisplayID)
	return &memo, nil
}

func (s *MemoService) ListDeleted(ctx context.Context, owner domain.Owner) ([]lifecycle.Deleted[models.Memo], error) {
	return s.Lifecycle(owner).ListDeleted(ctx, owner)
}

func (s *MemoService) Restore(ctx context.Context, owner domain.Owner, ref string) (*models.Memo, error) {
	memo, err := s.Lifecycle(owner).Restore(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, owner, ActionRestored, domain.TargetMemo, memo.DisplayID, nil)
	s.index.Index(s.record(memo))
	return &memo, nil
}

func (s *MemoService) Purge(ctx context.Context, owner domain.Owner, ref string) error {
	memo, err := s.Lifecycle(owner).Purge(ctx, owner, ref)
	if err != nil {
		return err
	}
	s.activity.Log(ctx, owner, ActionPurged, domain.TargetMemo, memo.DisplayID, map[string]any{"title": memo.Title})
	s.index.Remove(owner.ScopeKey(), domain.ItemMemo, memo.DisplayID)
	return nil
}
