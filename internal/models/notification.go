package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeReply   NotificationType = "reply"
	NotificationTypeHelpful NotificationType = "helpful"
)

// Notification is a derived event: somebody replied to you or marked your
// content helpful. IsRead and EmailSent are independent flags; each flips
// once and never reverts.
type Notification struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"not null;index" json:"user_id"` // recipient
	User         User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID      uint             `gorm:"not null;index" json:"actor_id"`
	Actor        User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	DiscussionID *uint            `gorm:"index" json:"discussion_id"`
	ReplyID      *uint            `gorm:"index" json:"reply_id"`
	Type         NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message      string           `gorm:"type:text" json:"message"`
	IsRead       bool             `gorm:"default:false;index" json:"is_read"`
	EmailSent    bool             `gorm:"default:false" json:"email_sent"`
	CreatedAt    time.Time        `json:"created_at"`
}
