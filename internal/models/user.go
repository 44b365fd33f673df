package models

import (
	"time"
)

// User roles. Moderators can edit and hide other people's content; only
// admins can permanently delete it.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User status values.
const (
	StatusActive = 0
	StatusMuted  = 1
	StatusBanned = 2
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"not null" json:"username"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	Password      string     `gorm:"not null" json:"-"` // bcrypt hash
	Avatar        string     `gorm:"default:🎮" json:"avatar"`
	Bio           string     `gorm:"size:200" json:"bio"`
	Reputation    int        `gorm:"default:0" json:"reputation"`
	Role          string     `gorm:"size:20;default:'user';not null" json:"role"`
	Status        int        `gorm:"default:0" json:"status"` // 0: active, 1: muted, 2: banned
	PunishExpires *time.Time `json:"punish_expires"`
	IsActivated   bool       `gorm:"default:false" json:"is_activated"`
	VerifyCode    string     `gorm:"size:20" json:"-"` // shared by activation and password reset
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsStaff reports whether the user holds a moderation role.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanEditContent is the shared authorship predicate: the owner may always
// edit their own content, staff may edit anyone's.
func (u *User) CanEditContent(ownerID uint) bool {
	return u.ID == ownerID || u.IsStaff()
}
