package models

import (
	"time"
)

// Game is the parent entity configs hang off. Each user may publish at most
// one config per game.
type Game struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:8;not null" json:"slug"`
	Title     string    `gorm:"not null;index" json:"title"`
	Developer string    `json:"developer"`
	Year      int       `json:"year"`
	BoxartURL string    `json:"boxart_url"`
	Summary   string    `gorm:"type:text" json:"summary"`
	CreatedBy uint      `gorm:"index" json:"created_by"`
	Creator   User      `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Filled by queries, not persisted
	ConfigCount int `gorm:"-" json:"config_count"`
}
