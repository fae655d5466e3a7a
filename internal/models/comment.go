package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// MaxContent is the width of the content column.
const MaxContent = 480

// Comment is a node of the thread tree. A nil ParentID marks a thread root.
//
// Ancestors is the root-to-parent id path, written once at insert and never
// rewritten. Nodes reference each other by id only; parent_id carries no
// foreign key, so deleting a node leaves its descendants as they were.
type Comment struct {
	ID            uint                      `gorm:"primaryKey" json:"id"`
	ParentID      *uint                     `gorm:"index;uniqueIndex:idx_parent_author" json:"parent_id"`
	Ancestors     datatypes.JSONSlice[uint] `gorm:"not null" json:"ancestors"`
	CreatedByID   uint                      `gorm:"not null;index;uniqueIndex:idx_parent_author" json:"created_by_id"`
	CreatedBy     User                      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"created_by"`
	Content       string                    `gorm:"size:480;not null" json:"content"`
	MentionID     *uint                     `gorm:"index" json:"mention_id"`
	Mention       *User                     `gorm:"foreignKey:MentionID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"mention,omitempty"`
	Link          string                    `gorm:"size:480" json:"link"`
	Hashtag       string                    `gorm:"size:480;index" json:"hashtag"`
	MentionSeenAt float64                   `gorm:"not null;default:0" json:"mention_seen_at"` // 0 = unseen
	ReplySeenAt   float64                   `gorm:"not null;default:0" json:"reply_seen_at"`   // 0 = unseen
	Score         int                       `gorm:"not null;default:0;index" json:"score"`
	ContentHTML   string                    `gorm:"-" json:"content_html,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// IsThread reports whether c is a thread root.
func (c *Comment) IsThread() bool {
	return c.ParentID == nil
}

// RootID returns the id of the thread c belongs to.
func (c *Comment) RootID() uint {
	if len(c.Ancestors) == 0 {
		return c.ID
	}
	root := c.Ancestors[0]
	for _, id := range c.Ancestors[1:] {
		if id < root {
			root = id
		}
	}
	return root
}

// Handle is the external base-36 form of the comment id.
func (c *Comment) Handle() string {
	return strconv.FormatUint(uint64(c.ID), 36)
}

// Watermark converts t to the unix-seconds form stored in the seen columns.
func Watermark(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
