package models

import (
	"time"
)

type SaveMode string

const (
	SaveModeSnapshot SaveMode = "snapshot" // keep the thread as it was when saved
	SaveModeTrack    SaveMode = "track"    // keep following new replies
)

func (m SaveMode) Valid() bool {
	return m == SaveModeSnapshot || m == SaveModeTrack
}

type Bookmark struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index;uniqueIndex:idx_user_discussion" json:"user_id"`
	DiscussionID uint       `gorm:"not null;index;uniqueIndex:idx_user_discussion" json:"discussion_id"`
	Discussion   Discussion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	SaveMode     SaveMode   `gorm:"size:20;not null;default:'snapshot'" json:"save_mode"`
	CreatedAt    time.Time  `json:"created_at"`
}
