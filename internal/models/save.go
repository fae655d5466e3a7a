package models

import (
	"time"
)

// Save is an append-only bookmark of a comment.
type Save struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedByID uint      `gorm:"not null;index;uniqueIndex:idx_save_user_post" json:"created_by_id"`
	CreatedBy   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID      uint      `gorm:"not null;index;uniqueIndex:idx_save_user_post" json:"post_id"`
	Post        Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post"`
	CreatedAt   time.Time `json:"created_at"`
}
