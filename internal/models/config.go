package models

import (
	"time"
)

// Config is a user-submitted emulator configuration profile for one game.
// Upvotes and Downvotes are denormalized from the votes ledger and must only
// ever change in the same transaction as the ledger row they mirror.
type Config struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Pid            string    `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	UserID         uint      `gorm:"not null;index;uniqueIndex:idx_configs_user_game" json:"user_id"`
	User           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	GameID         uint      `gorm:"not null;index;uniqueIndex:idx_configs_user_game" json:"game_id"`
	Game           Game      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"game"`
	GamehubVersion string    `gorm:"size:50;not null" json:"gamehub_version"`
	VideoURL       *string   `json:"video_url"` // nullable: an explicit null in a PATCH clears it
	Upvotes        int       `gorm:"default:0;not null" json:"upvotes"`
	Downvotes      int       `gorm:"default:0;not null" json:"downvotes"`
	Score          int       `gorm:"default:0" json:"score"` // trending rank cache, recomputed async
	Views          int       `gorm:"default:0" json:"views"`
	IsHidden       bool      `gorm:"default:false;index" json:"is_hidden"`
	IsLegacy       bool      `gorm:"default:false" json:"is_legacy"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Detail ConfigDetail `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"detail"`

	// Filled by queries, not persisted
	CommentCount  int `gorm:"-" json:"comment_count"`
	FavoriteCount int `gorm:"-" json:"favorite_count"`
}
