package models

import (
	"errors"
	"time"
)

// HelpfulMark is one user's helpful toggle on a discussion or a reply.
// Exactly one of DiscussionID / ReplyID is set; the composite unique
// indexes give at most one mark per (user, target). Postgres and SQLite
// both treat NULLs as distinct, so the two partial pairs do not collide.
type HelpfulMark struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_user_discussion_mark;uniqueIndex:idx_user_reply_mark" json:"user_id"`
	DiscussionID *uint     `gorm:"uniqueIndex:idx_user_discussion_mark" json:"discussion_id"`
	ReplyID      *uint     `gorm:"uniqueIndex:idx_user_reply_mark" json:"reply_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type TargetKind string

const (
	TargetDiscussion TargetKind = "discussion"
	TargetReply      TargetKind = "reply"
)

func (k TargetKind) Valid() bool {
	return k == TargetDiscussion || k == TargetReply
}

var ErrBadTarget = errors.New("mark target must name exactly one of discussion or reply")

// MarkTarget is the tagged-union form of a mark's target. The persisted
// shape keeps two nullable columns; this type enforces "exactly one set"
// at construction so the rest of the code never checks both.
type MarkTarget struct {
	Kind TargetKind
	ID   uint
}

func DiscussionTarget(id uint) MarkTarget {
	return MarkTarget{Kind: TargetDiscussion, ID: id}
}

func ReplyTarget(id uint) MarkTarget {
	return MarkTarget{Kind: TargetReply, ID: id}
}

// TargetOf recovers the union from a stored mark row.
func TargetOf(m HelpfulMark) (MarkTarget, error) {
	switch {
	case m.DiscussionID != nil && m.ReplyID == nil:
		return DiscussionTarget(*m.DiscussionID), nil
	case m.ReplyID != nil && m.DiscussionID == nil:
		return ReplyTarget(*m.ReplyID), nil
	}
	return MarkTarget{}, ErrBadTarget
}

// Mark materializes the two-column persisted shape for this target.
func (t MarkTarget) Mark(userID uint) HelpfulMark {
	m := HelpfulMark{UserID: userID}
	id := t.ID
	if t.Kind == TargetDiscussion {
		m.DiscussionID = &id
	} else {
		m.ReplyID = &id
	}
	return m
}
