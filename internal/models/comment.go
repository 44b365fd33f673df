package models

import (
	"time"
)

// Comment is attached to one config and carries its own vote counters,
// mirrored from the comment_votes ledger under the same transaction rule
// as config counters.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Cid       string    `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	ConfigID  uint      `gorm:"not null;index" json:"config_id"`
	Config    Config    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // nil for top-level comments
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Upvotes   int       `gorm:"default:0;not null" json:"upvotes"`
	Downvotes int       `gorm:"default:0;not null" json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
}
