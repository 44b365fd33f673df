package models

import (
	"time"
)

// Vote is one user's current opinion of one config: exactly one row per
// (user, config) pair, value +1 or -1. "No vote" is the absence of a row,
// never a stored zero. The composite unique index backs the one-vote
// invariant under concurrent casts.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_config" json:"user_id"`
	ConfigID  uint      `gorm:"not null;index;uniqueIndex:idx_votes_user_config" json:"config_id"`
	Value     int       `gorm:"not null" json:"value"` // +1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // bumped when a vote flips sign
}

// CommentVote is the same ledger shape keyed by comment.
type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_votes_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;index;uniqueIndex:idx_comment_votes_user_comment" json:"comment_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
