package models

import (
	"time"
)

type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password    string     `gorm:"not null" json:"-"` // bcrypt hash
	Email       string     `gorm:"size:120" json:"email"`
	EmailNotify bool       `gorm:"default:true" json:"email_notify"`
	IsOnline    bool       `gorm:"default:false" json:"is_online"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// No DeletedAt, users are never hard-deleted
}

// UserView is the public shape of a user. The password hash never leaves
// the models package through it.
type UserView struct {
	ID         uint       `json:"id"`
	Username   string     `json:"username"`
	IsOnline   bool       `json:"is_online"`
	LastSeenAt *time.Time `json:"last_seen_at"`
}

func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		IsOnline:   u.IsOnline,
		LastSeenAt: u.LastSeenAt,
	}
}
