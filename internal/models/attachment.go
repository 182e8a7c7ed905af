package models

import (
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
)

// Attachment is a file stored in the blob store under StorageKey.
type Attachment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	ScopeKey        string            `json:"-" gorm:"not null;index:idx_attachments_target"`
	TeamID          *uint             `json:"teamId"`
	TargetType      domain.TargetType `json:"targetType" gorm:"not null;index:idx_attachments_target"`
	TargetDisplayID string            `json:"targetDisplayId" gorm:"not null;index:idx_attachments_target"`
	UserID          string            `json:"userId" gorm:"not null"`
	FileName        string            `json:"fileName" gorm:"not null"`
	ContentType     string            `json:"contentType"`
	Size            int64             `json:"size"`
	StorageKey      string            `json:"-" gorm:"not null;uniqueIndex"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}
