package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

type TeamInvite struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TeamID    uint       `json:"teamId" gorm:"not null;index"`
	InviterID string     `json:"inviterId" gorm:"not null"`
	Code      string     `json:"code" gorm:"uniqueIndex;not null"`
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxUses   int        `json:"maxUses" gorm:"default:0"` // 0 = unlimited
	UsedCount int        `json:"usedCount" gorm:"default:0"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (ti *TeamInvite) BeforeCreate(tx *gorm.DB) error {
	if ti.Code != "" {
		return nil
	}
	code, err := generateInviteCode()
	if err != nil {
		return err
	}
	ti.Code = code
	return nil
}

// IsValid checks if the invite can still be used at now.
func (ti *TeamInvite) IsValid(now time.Time) bool {
	if ti.ExpiresAt != nil && now.After(*ti.ExpiresAt) {
		return false
	}
	if ti.MaxUses > 0 && ti.UsedCount >= ti.MaxUses {
		return false
	}
	return true
}

func generateInviteCode() (string, error) {
	b := make([]byte, 6) // 12 hex chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type CreateInviteRequest struct {
	MaxUses        int `json:"maxUses"`        // 0 = unlimited
	ExpiresInHours int `json:"expiresInHours"` // 0 = never
}

func (r CreateInviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxUses, validation.Min(0), validation.Max(1000)),
		validation.Field(&r.ExpiresInHours, validation.Min(0), validation.Max(24*365)),
	)
}

// InvitePreview is what a prospective member sees before requesting to join.
type InvitePreview struct {
	Code      string     `json:"code"`
	TeamID    uint       `json:"teamId"`
	TeamName  string     `json:"teamName"`
	TeamSlug  string     `json:"teamSlug"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Valid     bool       `json:"valid"`
}
