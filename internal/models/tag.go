package models

import (
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ScopeKey  string    `json:"-" gorm:"not null;uniqueIndex:idx_tags_scope_name"`
	TeamID    *uint     `json:"teamId"`
	UserID    string    `json:"userId" gorm:"not null"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_tags_scope_name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tagging attaches a tag to a memo, task or board by display key.
type Tagging struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	TagID           uint              `json:"tagId" gorm:"not null;uniqueIndex:idx_taggings_unique"`
	ScopeKey        string            `json:"-" gorm:"not null;index:idx_taggings_target"`
	TargetType      domain.TargetType `json:"targetType" gorm:"not null;uniqueIndex:idx_taggings_unique;index:idx_taggings_target"`
	TargetDisplayID string            `json:"targetDisplayId" gorm:"not null;uniqueIndex:idx_taggings_unique;index:idx_taggings_target"`
	CreatedAt       time.Time         `json:"createdAt"`

	Tag Tag `json:"tag,omitempty" gorm:"foreignKey:TagID"`
}

type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (r TagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Color, validation.Length(0, 20)),
	)
}

type TaggingRequest struct {
	TargetType      string `json:"targetType"`
	TargetDisplayID string `json:"targetDisplayId"`
}

func (r TaggingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetType, validation.Required, validation.In("memo", "task", "board")),
		validation.Field(&r.TargetDisplayID, validation.Required),
	)
}
