package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SlackConfig routes team notifications to an incoming webhook. WebhookURL
// holds the sealed form when an encryption key is configured.
type SlackConfig struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TeamID     uint      `json:"teamId" gorm:"not null;index"`
	BoardID    *uint     `json:"boardId" gorm:"index"`
	WebhookURL string    `json:"-" gorm:"not null"`
	Enabled    bool      `json:"enabled"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SlackConfigView is a config as returned to admins, with the URL masked.
type SlackConfigView struct {
	SlackConfig
	WebhookHint string `json:"webhookHint"`
}

type CreateSlackConfigRequest struct {
	WebhookURL string `json:"webhookUrl"`
	BoardID    *uint  `json:"boardId"`
}

func (r CreateSlackConfigRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.WebhookURL, validation.Required, is.URL),
	)
}

type UpdateSlackConfigRequest struct {
	WebhookURL *string `json:"webhookUrl"`
	Enabled    *bool   `json:"enabled"`
}

func (r UpdateSlackConfigRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.WebhookURL, validation.NilOrNotEmpty, is.URL),
	)
}
