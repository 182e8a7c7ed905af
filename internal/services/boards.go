package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/realtime"
	"gorm.io/gorm"
)

// BoardService manages boards and the memos and tasks placed on them.
// Personal boards are archived to deleted_boards; team boards are flagged.
type BoardService struct {
	db       *gorm.DB
	memos    *MemoService
	tasks    *TaskService
	users    *UserService
	activity *ActivityService
	events   BoardEvents
	slack    *SlackService
	personal lifecycle.Lifecycle[models.Board]
	team     lifecycle.Lifecycle[models.Board]
	now      func() time.Time
}

func NewBoardService(db *gorm.DB, purger *lifecycle.Purger, memos *MemoService, tasks *TaskService, users *UserService, activity *ActivityService, events BoardEvents, slack *SlackService) *BoardService {
	if events == nil {
		events = nopEvents{}
	}
	opts := lifecycle.Options{
		Target:    domain.TargetBoard,
		Resource:  "Board",
		KeyColumn: "slug",
		Purger:    purger,
	}
	purged := func(tx *gorm.DB, _ domain.Owner, b models.Board) error {
		if err := tx.Unscoped().Where("board_id = ?", b.ID).Delete(&models.BoardItem{}).Error; err != nil {
			return err
		}
		return tx.Where("board_id = ?", b.ID).Delete(&models.SlackConfig{}).Error
	}

	return &BoardService{
		db:       db,
		memos:    memos,
		tasks:    tasks,
		users:    users,
		activity: activity,
		events:   events,
		slack:    slack,
		personal: lifecycle.NewArchive(db, opts, lifecycle.Codec[models.Board, models.DeletedBoard]{
			Archive: models.ArchiveBoard,
			Revive:  models.ReviveBoard,
			View:    models.DeletedBoard.View,
		}, lifecycle.Hooks[models.Board]{
			// The revived board has a new id; its placements follow it.
			Restored: func(tx *gorm.DB, _ domain.Owner, b models.Board, previousID uint) error {
				if previousID == b.ID {
					return nil
				}
				return tx.Unscoped().Model(&models.BoardItem{}).
					Where("board_id = ?", previousID).
					UpdateColumn("board_id", b.ID).Error
			},
			Purged: purged,
		}),
		team: lifecycle.NewFlag(db, opts, lifecycle.Hooks[models.Board]{Purged: purged}),
		now:  time.Now,
	}
}

func (s *BoardService) Lifecycle(owner domain.Owner) lifecycle.Lifecycle[models.Board] {
	if owner.IsTeam() {
		return s.team
	}
	return s.personal
}

func (s *BoardService) notFound(owner domain.Owner) error {
	return domain.NotFound(owner.Label("Board") + " not found")
}

// slugTaken checks active, flagged and archived boards of the scope.
func slugTaken(tx *gorm.DB, scopeKey, slug string) (bool, error) {
	var n int64
	if err := tx.Unscoped().Model(&models.Board{}).Where("scope_key = ? AND slug = ?", scopeKey, slug).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := tx.Model(&models.DeletedBoard{}).Where("scope_key = ? AND slug = ?", scopeKey, slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *BoardService) Create(ctx context.Context, owner domain.Owner, req models.CreateBoardRequest) (*models.Board, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	board := models.Board{
		ScopeKey:    owner.ScopeKey(),
		UserID:      owner.UserID,
		TeamID:      owner.TeamIDPtr(),
		Name:        req.Name,
		Description: req.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken := func(slug string) (bool, error) { return slugTaken(tx, owner.ScopeKey(), slug) }
		if req.Slug != "" {
			used, err := taken(req.Slug)
			if err != nil {
				return err
			}
			if used {
				return domain.Conflict("Board slug already taken")
			}
			board.Slug = req.Slug
		} else {
			slug, err := uniqueSlug(models.Slugify(req.Name), taken)
			if err != nil {
				return err
			}
			board.Slug = slug
		}

		if err := tx.Create(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("Board slug already taken")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionCreated, domain.TargetBoard, board.Slug, map[string]any{"name": board.Name})
	return &board, nil
}

// active loads an active board of the scope by numeric id or slug.
func (s *BoardService) active(tx *gorm.DB, owner domain.Owner, ident string) (*models.Board, error) {
	var board models.Board
	q := tx.Where("scope_key = ?", owner.ScopeKey())
	if id, err := strconv.ParseUint(ident, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", ident)
	}
	if err := q.First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.notFound(owner)
		}
		return nil, err
	}
	return &board, nil
}

func (s *BoardService) Get(ctx context.Context, owner domain.Owner, ident string) (*models.Board, error) {
	return s.active(s.db.WithContext(ctx), owner, ident)
}

// List returns active boards with visible item counts, most recently
// updated first. archived filters on the archived flag when set.
func (s *BoardService) List(ctx context.Context, owner domain.Owner, archived *bool) ([]models.BoardSummary, error) {
	db := s.db.WithContext(ctx)
	q := db.Where("scope_key = ?", owner.ScopeKey())
	if archived != nil {
		q = q.Where("archived = ?", *archived)
	}
	var boards []models.Board
	if err := q.Order("updated_at DESC, created_at DESC").Find(&boards).Error; err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return []models.BoardSummary{}, nil
	}

	ids := make([]uint, len(boards))
	for i, b := range boards {
		ids[i] = b.ID
	}
	var counts []struct {
		BoardID  uint
		ItemType domain.ItemType
		Count    int64
	}
	err := db.Table("board_items").
		Select("board_items.board_id, board_items.item_type, COUNT(*) AS count").
		Joins("LEFT JOIN memos ON board_items.item_type = ? AND memos.scope_key = board_items.scope_key AND memos.display_id = board_items.display_id AND memos.deleted_at IS NULL", domain.ItemMemo).
		Joins("LEFT JOIN tasks ON board_items.item_type = ? AND tasks.scope_key = board_items.scope_key AND tasks.display_id = board_items.display_id AND tasks.deleted_at IS NULL", domain.ItemTask).
		Where("board_items.board_id IN ? AND board_items.deleted_at IS NULL", ids).
		Where("(memos.id IS NOT NULL OR tasks.id IS NOT NULL)").
		Group("board_items.board_id, board_items.item_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byBoard := make(map[uint]*models.BoardSummary, len(boards))
	out := make([]models.BoardSummary, len(boards))
	for i, b := range boards {
		out[i] = models.BoardSummary{Board: b}
		byBoard[b.ID] = &out[i]
	}
	for _, c := range counts {
		summary := byBoard[c.BoardID]
		switch c.ItemType {
		case domain.ItemMemo:
			summary.MemoCount = c.Count
		case domain.ItemTask:
			summary.TaskCount = c.Count
		}
	}
	return out, nil
}

func (s *BoardService) Update(ctx context.Context, owner domain.Owner, ident string, req models.UpdateBoardRequest) (*models.Board, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	board, err := s.active(db, owner, ident)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}
	if req.Archived != nil {
		updates["archived"] = *req.Archived
	}
	if len(updates) == 0 {
		return board, nil
	}

	res := db.Model(&models.Board{}).Where("id = ?", board.ID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.notFound(owner)
	}
	var fresh models.Board
	if err := db.First(&fresh, board.ID).Error; err != nil {
		return nil, err
	}
	board = &fresh

	s.activity.Log(ctx, owner, ActionUpdated, domain.TargetBoard, board.Slug, updates)
	s.events.Publish(board.ID, owner.UserID, realtime.EventBoardUpdated, board)
	return board, nil
}

func (s *BoardService) Delete(ctx context.Context, owner domain.Owner, ident string) (*models.Board, error) {
	board, err := s.active(s.db.WithContext(ctx), owner, ident)
	if err != nil {
		return nil, err
	}
	deleted, err := s.Lifecycle(owner).Delete(ctx, owner, board.ID)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, owner, ActionDeleted, domain.TargetBoard, deleted.Slug, map[string]any{"name": deleted.Name})
	return &deleted, nil
}

func (s *BoardService) ListDeleted(ctx context.Context, owner domain.Owner) ([]lifecycle.Deleted[models.Board], error) {
	return s.Lifecycle(owner).ListDeleted(ctx, owner)
}

func (s *BoardService) Restore(ctx context.Context, owner domain.Owner, ref string) (*models.Board, error) {
	board, err := s.Lifecycle(owner).Restore(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, owner, ActionRestored, domain.TargetBoard, board.Slug, nil)
	return &board, nil
}

func (s *BoardService) Purge(ctx context.Context, owner domain.Owner, ref string) error {
	board, err := s.Lifecycle(owner).Purge(ctx, owner, ref)
	if err != nil {
		return err
	}
	s.activity.Log(ctx, owner, ActionPurged, domain.TargetBoard, board.Slug, map[string]any{"name": board.Name})
	return nil
}

// AddItem places a memo or task on a board. itemID may be a display id or a
// numeric id.
func (s *BoardService) AddItem(ctx context.Context, owner domain.Owner, boardIdent string, req models.AddBoardItemRequest) (*models.BoardItemView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	itemType, err := domain.ParseItemType(req.ItemType)
	if err != nil {
		return nil, err
	}

	var (
		board *models.Board
		item  models.BoardItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if board, err = s.active(tx, owner, boardIdent); err != nil {
			return err
		}

		_, displayID, err := resolveItem(tx, owner.ScopeKey(), itemType, req.ItemID)
		if err != nil {
			return notFoundOr(err, owner.Label(itemLabel(itemType))+" not found")
		}

		var n int64
		if err := tx.Model(&models.BoardItem{}).
			Where("board_id = ? AND item_type = ? AND display_id = ?", board.ID, itemType, displayID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateBoardItem
		}

		var highest int
		if err := tx.Unscoped().Model(&models.BoardItem{}).
			Where("board_id = ? AND item_type = ?", board.ID, itemType).
			Select("COALESCE(MAX(board_index), 0)").
			Scan(&highest).Error; err != nil {
			return err
		}

		item = models.BoardItem{
			BoardID:    board.ID,
			ScopeKey:   owner.ScopeKey(),
			ItemType:   itemType,
			DisplayID:  displayID,
			BoardIndex: highest + 1,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return s.touch(tx, board.ID)
	})
	if err != nil {
		return nil, err
	}

	view := &models.BoardItemView{BoardItem: item}
	s.attach(ctx, owner, view)

	s.activity.Log(ctx, owner, ActionItemAdded, domain.TargetBoard, board.Slug, map[string]any{"itemType": itemType, "displayId": item.DisplayID})
	s.events.Publish(board.ID, owner.UserID, realtime.EventItemAdded, view)
	if owner.IsTeam() {
		s.slack.Post(ctx, owner.TeamID, &board.ID, fmt.Sprintf("*%s* added %s to board *%s*",
			s.users.Handle(ctx, owner.UserID), item.DisplayID, board.Name))
	}
	return view, nil
}

// RemoveItem deletes the placement of an item on a board.
func (s *BoardService) RemoveItem(ctx context.Context, owner domain.Owner, boardIdent, itemTypeParam, displayID string) error {
	itemType, err := domain.ParseItemType(itemTypeParam)
	if err != nil {
		return err
	}

	var board *models.Board
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if board, err = s.active(tx, owner, boardIdent); err != nil {
			return err
		}
		res := tx.Unscoped().
			Where("board_id = ? AND item_type = ? AND display_id = ?", board.ID, itemType, displayID).
			Delete(&models.BoardItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("Item not found in board")
		}
		return s.touch(tx, board.ID)
	})
	if err != nil {
		return err
	}

	s.activity.Log(ctx, owner, ActionItemRemoved, domain.TargetBoard, board.Slug, map[string]any{"itemType": itemType, "displayId": displayID})
	s.events.Publish(board.ID, owner.UserID, realtime.EventItemRemoved, map[string]any{"itemType": itemType, "displayId": displayID})
	return nil
}

func (s *BoardService) touch(tx *gorm.DB, boardID uint) error {
	return tx.Model(&models.Board{}).Where("id = ?", boardID).UpdateColumn("updated_at", s.now()).Error
}

func itemLabel(t domain.ItemType) string {
	switch t {
	case domain.ItemMemo:
		return "Memo"
	case domain.ItemTask:
		return "Task"
	}
	panic(fmt.Sprintf("unknown item type %q", string(t)))
}

// attach loads the memo or task a single view points at.
func (s *BoardService) attach(ctx context.Context, owner domain.Owner, view *models.BoardItemView) {
	views := []models.BoardItemView{*view}
	if out, err := s.resolveViews(s.db.WithContext(ctx), owner, views); err == nil && len(out) == 1 {
		*view = out[0]
	}
}

// ListItems returns the board's items whose memo or task is active, in
// insertion order. Items whose target is missing or deleted are skipped.
func (s *BoardService) ListItems(ctx context.Context, owner domain.Owner, boardIdent string) ([]models.BoardItemView, error) {
	db := s.db.WithContext(ctx)
	board, err := s.active(db, owner, boardIdent)
	if err != nil {
		return nil, err
	}

	var items []models.BoardItem
	if err := db.Where("board_id = ?", board.ID).Order("board_index ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	views := make([]models.BoardItemView, len(items))
	for i, it := range items {
		views[i] = models.BoardItemView{BoardItem: it}
	}
	views, err = s.resolveViews(db, owner, views)
	if err != nil {
		return nil, err
	}

	next := map[domain.ItemType]int{}
	for i := range views {
		next[views[i].ItemType]++
		views[i].BoardIndex = next[views[i].ItemType]
	}
	return views, nil
}

// resolveViews fills Memo/Task from the active tables and drops views whose
// item is missing or deleted.
func (s *BoardService) resolveViews(db *gorm.DB, owner domain.Owner, views []models.BoardItemView) ([]models.BoardItemView, error) {
	keys := map[domain.ItemType][]string{}
	for _, v := range views {
		keys[v.ItemType] = append(keys[v.ItemType], v.DisplayID)
	}

	memos := map[string]*models.Memo{}
	if len(keys[domain.ItemMemo]) > 0 {
		var rows []models.Memo
		if err := db.Where("scope_key = ? AND display_id IN ?", owner.ScopeKey(), keys[domain.ItemMemo]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			memos[rows[i].DisplayID] = &rows[i]
		}
	}
	tasks := map[string]*models.Task{}
	if len(keys[domain.ItemTask]) > 0 {
		var rows []models.Task
		if err := db.Where("scope_key = ? AND display_id IN ?", owner.ScopeKey(), keys[domain.ItemTask]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i := range rows {
			tasks[rows[i].DisplayID] = &rows[i]
		}
	}

	out := make([]models.BoardItemView, 0, len(views))
	for _, v := range views {
		switch v.ItemType {
		case domain.ItemMemo:
			v.Memo = memos[v.DisplayID]
			if v.Memo == nil {
				continue
			}
		case domain.ItemTask:
			v.Task = tasks[v.DisplayID]
			if v.Task == nil {
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListDeletedItems returns the board's items whose memo or task is deleted,
// most recently deleted first. Each item is looked up through its own
// deletion strategy, so personal and team boards behave the same.
func (s *BoardService) ListDeletedItems(ctx context.Context, owner domain.Owner, boardIdent string) ([]models.DeletedBoardItemView, error) {
	db := s.db.WithContext(ctx)
	board, err := s.active(db, owner, boardIdent)
	if err != nil {
		return nil, err
	}

	var items []models.BoardItem
	if err := db.Unscoped().
		Where("board_id = ? AND deleted_at IS NOT NULL", board.ID).
		Order("board_index ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	keys := map[domain.ItemType][]string{}
	for _, it := range items {
		keys[it.ItemType] = append(keys[it.ItemType], it.DisplayID)
	}
	deletedMemos, err := s.memos.Lifecycle(owner).DeletedByKey(ctx, owner, keys[domain.ItemMemo])
	if err != nil {
		return nil, err
	}
	deletedTasks, err := s.tasks.Lifecycle(owner).DeletedByKey(ctx, owner, keys[domain.ItemTask])
	if err != nil {
		return nil, err
	}

	out := []models.DeletedBoardItemView{}
	for _, it := range items {
		view := models.DeletedBoardItemView{BoardItem: it}
		switch it.ItemType {
		case domain.ItemMemo:
			d, ok := deletedMemos[it.DisplayID]
			if !ok {
				continue
			}
			memo := d.Item
			view.Memo, view.Ref, view.ItemDeletedAt, view.CommentCount = &memo, d.Ref, d.DeletedAt, d.CommentCount
		case domain.ItemTask:
			d, ok := deletedTasks[it.DisplayID]
			if !ok {
				continue
			}
			task := d.Item
			view.Task, view.Ref, view.ItemDeletedAt, view.CommentCount = &task, d.Ref, d.DeletedAt, d.CommentCount
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ItemDeletedAt.After(out[j].ItemDeletedAt)
	})
	return out, nil
}
