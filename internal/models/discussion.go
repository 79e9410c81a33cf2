package models

import (
	"time"

	"gorm.io/datatypes"
)

type Discussion struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	UserID       uint                        `gorm:"not null;index" json:"user_id"`
	User         User                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title        string                      `gorm:"not null" json:"title"`
	Content      string                      `gorm:"type:text;not null" json:"content"`
	ImagePaths   datatypes.JSONSlice[string] `json:"image_paths"`
	Captions     datatypes.JSONSlice[string] `json:"captions"` // positionally paired with ImagePaths
	HelpfulCount int                         `gorm:"default:0" json:"helpful_count"`
	CreatedAt    time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// DiscussionView pairs a discussion with its resolved author for feed and
// detail responses.
type DiscussionView struct {
	Discussion
	Author     UserView `json:"author"`
	ReplyCount int      `json:"reply_count"`
}
