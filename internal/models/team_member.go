package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

type TeamMember struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TeamID    uint      `json:"teamId" gorm:"not null;uniqueIndex:idx_team_members_unique"`
	UserID    string    `json:"userId" gorm:"not null;uniqueIndex:idx_team_members_unique;index"`
	Role      string    `json:"role" gorm:"not null;default:'member'"` // admin, member
	JoinedAt  time.Time `json:"joinedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

func (tm *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if tm.JoinedAt.IsZero() {
		tm.JoinedAt = time.Now()
	}
	return nil
}

type UpdateMemberRequest struct {
	Role string `json:"role"`
}

func (r UpdateMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In("admin", "member")),
	)
}
