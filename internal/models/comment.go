package models

import (
	"encoding/json"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/datatypes"
)

type Comment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	ScopeKey        string            `json:"-" gorm:"not null;index:idx_comments_target"`
	TeamID          *uint             `json:"teamId"`
	TargetType      domain.TargetType `json:"targetType" gorm:"not null;index:idx_comments_target"`
	TargetDisplayID string            `json:"targetDisplayId" gorm:"not null;index:idx_comments_target"`
	UserID          string            `json:"userId" gorm:"not null;index"`
	Content         string            `json:"content" gorm:"type:text;not null"`
	Mentions        datatypes.JSON    `json:"mentions"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// MentionedUserIDs decodes the stored mention list.
func (c *Comment) MentionedUserIDs() []string {
	var ids []string
	if len(c.Mentions) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Mentions, &ids); err != nil {
		return nil
	}
	return ids
}

type CreateCommentRequest struct {
	TargetType      string   `json:"targetType"`
	TargetDisplayID string   `json:"targetDisplayId"`
	Content         string   `json:"content"`
	Mentions        []string `json:"mentions"`
}

func (r CreateCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetType, validation.Required, validation.In("memo", "task", "board")),
		validation.Field(&r.TargetDisplayID, validation.Required),
		validation.Field(&r.Content, validation.Required, validation.Length(1, 10000)),
		validation.Field(&r.Mentions, validation.Length(0, 50)),
	)
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

func (r UpdateCommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 10000)),
	)
}
