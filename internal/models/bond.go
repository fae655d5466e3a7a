package models

import (
	"time"
)

// Bond is a directed follow edge. Every user has exactly one self-edge, created
// at registration, which marks account existence and is never listed or counted.
type Bond struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedByID uint      `gorm:"not null;index;uniqueIndex:idx_bond_pair" json:"created_by_id"`
	CreatedBy   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"created_by"`
	ToUserID    uint      `gorm:"not null;index;uniqueIndex:idx_bond_pair" json:"to_user_id"`
	ToUser      User      `gorm:"foreignKey:ToUserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"to_user"`
	SeenAt      float64   `gorm:"not null;default:0" json:"seen_at"` // 0 = unseen by ToUser
	CreatedAt   time.Time `json:"created_at"`
}

// IsSelf reports whether b is the registration self-edge.
func (b *Bond) IsSelf() bool {
	return b.CreatedByID == b.ToUserID
}
