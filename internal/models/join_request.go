package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	JoinPending  = "pending"
	JoinApproved = "approved"
	JoinRejected = "rejected"
)

// JoinRequest asks a team's admins to admit a user who holds an invite.
type JoinRequest struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TeamID    uint       `json:"teamId" gorm:"not null;index"`
	UserID    string     `json:"userId" gorm:"not null;index"`
	InviteID  uint       `json:"inviteId" gorm:"not null"`
	Message   string     `json:"message"`
	Status    string     `json:"status" gorm:"not null;default:'pending';index"`
	DecidedBy *string    `json:"decidedBy"`
	DecidedAt *time.Time `json:"decidedAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	User User `json:"user" gorm:"foreignKey:UserID"`
	Team Team `json:"team" gorm:"foreignKey:TeamID"`
}

type CreateJoinRequest struct {
	Message string `json:"message"`
}

func (r CreateJoinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Length(0, 500)),
	)
}
