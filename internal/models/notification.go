package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a persisted inbox entry. Live delivery goes through the
// mailbox; this row is what the inbox lists afterwards.
type Notification struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    string         `json:"userId" gorm:"not null;index"`
	Kind      string         `json:"kind" gorm:"not null"` // task.assigned, join_request.created, join_request.status, comment.mention
	Title     string         `json:"title" gorm:"not null"`
	Body      string         `json:"body"`
	Read      bool           `json:"read" gorm:"default:false"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
