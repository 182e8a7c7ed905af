package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ScopeKey  string    `json:"-" gorm:"not null;uniqueIndex:idx_categories_scope_name"`
	TeamID    *uint     `json:"teamId"`
	UserID    string    `json:"userId" gorm:"not null"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_categories_scope_name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Color, validation.Length(0, 20)),
	)
}
