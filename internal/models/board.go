package models

import (
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Board groups memos and tasks. Team boards are soft-deleted in place;
// personal boards move to DeletedBoard.
type Board struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Slug        string         `json:"slug" gorm:"not null;uniqueIndex:idx_boards_scope_slug"`
	ScopeKey    string         `json:"-" gorm:"not null;uniqueIndex:idx_boards_scope_slug;index"`
	UserID      string         `json:"userId" gorm:"not null;index"`
	TeamID      *uint          `json:"teamId" gorm:"index"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Completed   bool           `json:"completed" gorm:"default:false"`
	Archived    bool           `json:"archived" gorm:"default:false"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"deletedAt" gorm:"index"`
}

func (b Board) RecordID() uint    { return b.ID }
func (b Board) RecordKey() string { return b.Slug }

func (b Board) DeletedTime() time.Time {
	if b.DeletedAt.Valid {
		return b.DeletedAt.Time
	}
	return time.Time{}
}

// DeletedBoard is the copy of a personal board taken when it was deleted.
type DeletedBoard struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OriginalID  uint      `json:"originalId" gorm:"not null;index"`
	Slug        string    `json:"slug" gorm:"not null;index"`
	ScopeKey    string    `json:"-" gorm:"not null;index"`
	UserID      string    `json:"userId" gorm:"not null"`
	TeamID      *uint     `json:"teamId"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Completed   bool      `json:"completed"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	DeletedAt   time.Time `json:"deletedAt" gorm:"not null;index"`
}

func (d DeletedBoard) RecordID() uint         { return d.ID }
func (d DeletedBoard) RecordKey() string      { return d.Slug }
func (d DeletedBoard) DeletedTime() time.Time { return d.DeletedAt }

func ArchiveBoard(b Board, at time.Time) DeletedBoard {
	return DeletedBoard{
		OriginalID:  b.ID,
		Slug:        b.Slug,
		ScopeKey:    b.ScopeKey,
		UserID:      b.UserID,
		TeamID:      b.TeamID,
		Name:        b.Name,
		Description: b.Description,
		Completed:   b.Completed,
		Archived:    b.Archived,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		DeletedAt:   at,
	}
}

// View shows the archived copy as the board it was when deleted.
func (d DeletedBoard) View() Board {
	b := ReviveBoard(d, d.UpdatedAt)
	b.ID = d.OriginalID
	b.DeletedAt = gorm.DeletedAt{Time: d.DeletedAt, Valid: true}
	return b
}

func ReviveBoard(d DeletedBoard, at time.Time) Board {
	return Board{
		Slug:        d.Slug,
		ScopeKey:    d.ScopeKey,
		UserID:      d.UserID,
		TeamID:      d.TeamID,
		Name:        d.Name,
		Description: d.Description,
		Completed:   d.Completed,
		Archived:    d.Archived,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   at,
	}
}

// BoardItem places a memo or task on a board. It references the item by
// display id so it survives the item's id changing across delete/restore.
type BoardItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	BoardID    uint            `json:"boardId" gorm:"not null;index:idx_board_items_lookup"`
	ScopeKey   string          `json:"-" gorm:"not null;index:idx_board_items_target"`
	ItemType   domain.ItemType `json:"itemType" gorm:"not null;index:idx_board_items_lookup;index:idx_board_items_target"`
	DisplayID  string          `json:"displayId" gorm:"not null;index:idx_board_items_lookup;index:idx_board_items_target"`
	BoardIndex int             `json:"boardIndex" gorm:"not null;default:0"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt  `json:"deletedAt" gorm:"index"`
}

// BoardSummary is a board with the number of visible items per type.
type BoardSummary struct {
	Board
	MemoCount int64 `json:"memoCount"`
	TaskCount int64 `json:"taskCount"`
}

// BoardItemView is a visible board item with its memo or task. BoardIndex is
// the 1-based position among items of the same type.
type BoardItemView struct {
	BoardItem
	Memo *Memo `json:"memo,omitempty"`
	Task *Task `json:"task,omitempty"`
}

// DeletedBoardItemView is a board item whose memo or task is deleted. Ref
// restores or purges the item through its own deleted listing.
type DeletedBoardItemView struct {
	BoardItem
	Ref           string    `json:"ref"`
	ItemDeletedAt time.Time `json:"itemDeletedAt"`
	CommentCount  int64     `json:"commentCount"`
	Memo          *Memo     `json:"memo,omitempty"`
	Task          *Task     `json:"task,omitempty"`
}

type CreateBoardRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (r CreateBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Slug, validation.Length(1, 100), validation.By(slugRule)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

type UpdateBoardRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	Archived    *bool   `json:"archived"`
}

func (r UpdateBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
	)
}

// AddBoardItemRequest identifies the item by display id or numeric id.
type AddBoardItemRequest struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

func (r AddBoardItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemType, validation.Required, validation.In("memo", "task")),
		validation.Field(&r.ItemID, validation.Required),
	)
}
