package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// Memo is a note owned by a user or a team. Team memos are soft-deleted in
// place; personal memos move to DeletedMemo.
type Memo struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	DisplayID  string         `json:"displayId" gorm:"not null;uniqueIndex:idx_memos_scope_display"`
	DisplaySeq int            `json:"-" gorm:"not null;default:0"`
	ScopeKey   string         `json:"-" gorm:"not null;uniqueIndex:idx_memos_scope_display;index"`
	UserID     string         `json:"userId" gorm:"not null;index"`
	TeamID     *uint          `json:"teamId" gorm:"index"`
	Title      string         `json:"title" gorm:"not null"`
	Content    string         `json:"content" gorm:"type:text"`
	CategoryID *uint          `json:"categoryId" gorm:"index"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"deletedAt" gorm:"index"`
}

func (m Memo) RecordID() uint    { return m.ID }
func (m Memo) RecordKey() string { return m.DisplayID }

func (m Memo) DeletedTime() time.Time {
	if m.DeletedAt.Valid {
		return m.DeletedAt.Time
	}
	return time.Time{}
}

// DeletedMemo is the copy of a personal memo taken when it was deleted.
type DeletedMemo struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OriginalID uint      `json:"originalId" gorm:"not null;index"`
	DisplayID  string    `json:"displayId" gorm:"not null;index"`
	DisplaySeq int       `json:"-" gorm:"not null;default:0"`
	ScopeKey   string    `json:"-" gorm:"not null;index"`
	UserID     string    `json:"userId" gorm:"not null"`
	TeamID     *uint     `json:"teamId"`
	Title      string    `json:"title" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text"`
	CategoryID *uint     `json:"categoryId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	DeletedAt  time.Time `json:"deletedAt" gorm:"not null;index"`
}

func (d DeletedMemo) RecordID() uint        { return d.ID }
func (d DeletedMemo) RecordKey() string     { return d.DisplayID }
func (d DeletedMemo) DeletedTime() time.Time { return d.DeletedAt }

// ArchiveMemo copies an active memo into its deleted form.
func ArchiveMemo(m Memo, at time.Time) DeletedMemo {
	return DeletedMemo{
		OriginalID: m.ID,
		DisplayID:  m.DisplayID,
		DisplaySeq: m.DisplaySeq,
		ScopeKey:   m.ScopeKey,
		UserID:     m.UserID,
		TeamID:     m.TeamID,
		Title:      m.Title,
		Content:    m.Content,
		CategoryID: m.CategoryID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		DeletedAt:  at,
	}
}

// View shows the archived copy as the memo it was when deleted.
func (d DeletedMemo) View() Memo {
	m := ReviveMemo(d, d.UpdatedAt)
	m.ID = d.OriginalID
	m.DeletedAt = gorm.DeletedAt{Time: d.DeletedAt, Valid: true}
	return m
}

// ReviveMemo rebuilds an active memo from its deleted form. The id is left
// zero so the insert assigns a new one.
func ReviveMemo(d DeletedMemo, at time.Time) Memo {
	return Memo{
		DisplayID:  d.DisplayID,
		DisplaySeq: d.DisplaySeq,
		ScopeKey:   d.ScopeKey,
		UserID:     d.UserID,
		TeamID:     d.TeamID,
		Title:      d.Title,
		Content:    d.Content,
		CategoryID: d.CategoryID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  at,
	}
}

type CreateMemoRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *uint  `json:"categoryId"`
}

func (r CreateMemoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Length(0, 100000)),
	)
}

type UpdateMemoRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	CategoryID    *uint   `json:"categoryId"`
	ClearCategory bool    `json:"clearCategory"`
}

func (r UpdateMemoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Content, validation.Length(0, 100000)),
	)
}
