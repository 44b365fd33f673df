package models

import (
	"time"
)

// Report item types.
const (
	ReportItemConfig  = "config"
	ReportItemComment = "comment"
)

type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"` // reporter
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ItemType  string    `gorm:"size:20;not null" json:"item_type"` // "config", "comment"
	ItemID    uint      `gorm:"not null;index" json:"item_id"`
	ItemPid   string    `gorm:"size:8" json:"item_pid"` // public id of the config the item lives on
	Reason    string    `gorm:"size:200;not null" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
