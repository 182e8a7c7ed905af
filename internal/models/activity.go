package models

import (
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"gorm.io/datatypes"
)

type Activity struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	ScopeKey        string            `json:"-" gorm:"not null;index"`
	TeamID          *uint             `json:"teamId" gorm:"index"`
	UserID          string            `json:"userId" gorm:"not null"`
	Action          string            `json:"action" gorm:"not null"` // created, deleted, restored, item_added, member_joined, ...
	TargetType      domain.TargetType `json:"targetType"`
	TargetDisplayID string            `json:"targetDisplayId"`
	Metadata        datatypes.JSON    `json:"metadata"`
	CreatedAt       time.Time         `json:"createdAt"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}
