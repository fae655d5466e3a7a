package models

import (
	"time"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:15;not null;uniqueIndex" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"-"`
	Password    string    `gorm:"not null" json:"-"` // Hash
	DisplayName string    `gorm:"size:50" json:"display_name"`
	Bio         string    `gorm:"size:200" json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdate lists the user fields callers may change after registration.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
}
