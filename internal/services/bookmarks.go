package services

import (
	"context"
	"errors"

	"threadloom/internal/errs"
	"threadloom/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookmarkService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBookmarkService(db *gorm.DB, logger *zap.Logger) *BookmarkService {
	return &BookmarkService{db: db, logger: logger}
}

// Upsert saves a discussion for the user. Re-bookmarking updates the save
// mode on the existing row instead of erroring or duplicating; the
// (user, discussion) unique index plus ON CONFLICT keeps this atomic.
func (s *BookmarkService) Upsert(ctx context.Context, userID, discussionID uint, mode models.SaveMode) (models.Bookmark, error) {
	if !mode.Valid() {
		return models.Bookmark{}, errs.Validation("save mode must be %q or %q", models.SaveModeSnapshot, models.SaveModeTrack)
	}

	var discussion models.Discussion
	if err := s.db.WithContext(ctx).First(&discussion, discussionID).Error; err != nil {
		return models.Bookmark{}, errs.FromDB(err, "discussion")
	}

	bookmark := models.Bookmark{
		UserID:       userID,
		DiscussionID: discussionID,
		SaveMode:     mode,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "discussion_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"save_mode": mode}),
	}).Create(&bookmark).Error
	if err != nil {
		return models.Bookmark{}, errs.Internal(err, "bookmark upsert")
	}

	// Re-read so the caller sees the surviving row (id, created_at)
	var saved models.Bookmark
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		First(&saved).Error; err != nil {
		return models.Bookmark{}, errs.Internal(err, "bookmark readback")
	}
	return saved, nil
}

func (s *BookmarkService) Remove(ctx context.Context, userID, discussionID uint) error {
	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		First(&bookmark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("bookmark not found")
		}
		return errs.Internal(err, "bookmark lookup")
	}
	if err := s.db.WithContext(ctx).Delete(&bookmark).Error; err != nil {
		return errs.Internal(err, "bookmark delete")
	}
	return nil
}

// IsBookmarked reports whether the user saved this discussion.
func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, discussionID uint) bool {
	if userID == 0 {
		return false
	}
	var bookmark models.Bookmark
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND discussion_id = ?", userID, discussionID).
		First(&bookmark).Error
	return err == nil
}
