package models

import (
	"time"

	"gorm.io/datatypes"
)

type Reply struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	DiscussionID uint                        `gorm:"not null;index" json:"discussion_id"`
	Discussion   Discussion                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID       uint                        `gorm:"not null;index" json:"user_id"`
	User         User                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID     *uint                       `gorm:"index" json:"parent_id"` // nil for top-level replies
	Content      string                      `gorm:"type:text;not null" json:"content"`
	ImagePaths   datatypes.JSONSlice[string] `json:"image_paths"`
	Captions     datatypes.JSONSlice[string] `json:"captions"`
	HelpfulCount int                         `gorm:"default:0" json:"helpful_count"`
	CreatedAt    time.Time                   `gorm:"index" json:"created_at"`
}
