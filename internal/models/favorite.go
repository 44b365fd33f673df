package models

import (
	"time"
)

// Favorite marks a config a user wants to find again. Feeds the trending
// score but never the vote counters.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_favorites_user_config" json:"user_id"`
	ConfigID  uint      `gorm:"not null;index;uniqueIndex:idx_favorites_user_config" json:"config_id"`
	Config    Config    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"config"`
	CreatedAt time.Time `json:"created_at"`
}
