package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// User is provisioned from the identity provider's claims; ID is the
// provider subject.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"index"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	FCMToken    string    `json:"-" gorm:"column:fcm_token"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Handle is the name shown to other users.
func (u *User) Handle() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Name        *string `json:"name"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.NilOrNotEmpty, validation.Length(1, 80)),
		validation.Field(&r.Name, validation.Length(0, 120)),
		validation.Field(&r.AvatarURL, validation.Length(0, 2048)),
	)
}

type DeviceTokenRequest struct {
	Token string `json:"token"`
}

func (r DeviceTokenRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}
