package services

import (
	"context"
	"html/template"

	"threadloom/internal/errs"
	"threadloom/internal/models"
	"threadloom/internal/thread"
	"threadloom/internal/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DiscussionService struct {
	db        *gorm.DB
	bookmarks *BookmarkService
	logger    *zap.Logger
}

func NewDiscussionService(db *gorm.DB, bookmarks *BookmarkService, logger *zap.Logger) *DiscussionService {
	return &DiscussionService{db: db, bookmarks: bookmarks, logger: logger}
}

type DiscussionInput struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	ImagePaths []string `json:"image_paths"`
	Captions   []string `json:"captions"`
}

func (in DiscussionInput) validate() error {
	if in.Title == "" {
		return errs.Validation("title must not be empty")
	}
	if in.Content == "" {
		return errs.Validation("content must not be empty")
	}
	if len(in.ImagePaths) != len(in.Captions) {
		return errs.Validation("image paths and captions must pair up: %d paths, %d captions",
			len(in.ImagePaths), len(in.Captions))
	}
	return nil
}

func (s *DiscussionService) Create(ctx context.Context, userID uint, in DiscussionInput) (models.Discussion, error) {
	if err := in.validate(); err != nil {
		return models.Discussion{}, err
	}

	discussion := models.Discussion{
		UserID:     userID,
		Title:      in.Title,
		Content:    in.Content,
		ImagePaths: datatypes.NewJSONSlice(in.ImagePaths),
		Captions:   datatypes.NewJSONSlice(in.Captions),
	}
	if err := s.db.WithContext(ctx).Create(&discussion).Error; err != nil {
		return models.Discussion{}, errs.Internal(err, "discussion insert")
	}

	InvalidateFeedCache()
	return discussion, nil
}

func (s *DiscussionService) Update(ctx context.Context, userID, id uint, in DiscussionInput) (models.Discussion, error) {
	if err := in.validate(); err != nil {
		return models.Discussion{}, err
	}

	var discussion models.Discussion
	if err := s.db.WithContext(ctx).First(&discussion, id).Error; err != nil {
		return models.Discussion{}, errs.FromDB(err, "discussion")
	}
	if discussion.UserID != userID {
		return models.Discussion{}, errs.Authorization("only the owner can edit a discussion")
	}

	discussion.Title = in.Title
	discussion.Content = in.Content
	discussion.ImagePaths = datatypes.NewJSONSlice(in.ImagePaths)
	discussion.Captions = datatypes.NewJSONSlice(in.Captions)
	if err := s.db.WithContext(ctx).Save(&discussion).Error; err != nil {
		return models.Discussion{}, errs.Internal(err, "discussion update")
	}

	InvalidateFeedCache()
	return discussion, nil
}

// Delete removes the discussion and cascades to every reply, helpful
// mark and bookmark hanging off it, in one transaction so no orphaned
// records survive.
func (s *DiscussionService) Delete(ctx context.Context, userID, id uint) error {
	var discussion models.Discussion
	if err := s.db.WithContext(ctx).First(&discussion, id).Error; err != nil {
		return errs.FromDB(err, "discussion")
	}
	if discussion.UserID != userID {
		return errs.Authorization("only the owner can delete a discussion")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var replyIDs []uint
		if err := tx.Model(&models.Reply{}).Where("discussion_id = ?", id).
			Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("reply_id IN ?", replyIDs).Delete(&models.HelpfulMark{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("discussion_id = ?", id).Delete(&models.HelpfulMark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("discussion_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("discussion_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&discussion).Error
	})
	if err != nil {
		return errs.Internal(err, "discussion cascade delete")
	}

	InvalidateFeedCache()
	return nil
}

// DiscussionDetail is the full read shape: the discussion with its
// author, rendered body and the reconstructed reply forest.
type DiscussionDetail struct {
	models.DiscussionView
	HTML         template.HTML  `json:"html"`
	IsBookmarked bool           `json:"is_bookmarked"`
	Replies      []*thread.Node `json:"replies"`
}

// Detail loads the current snapshot of the discussion's replies and
// authors and hands them to the tree builder. Records deleted while we
// read simply shrink the snapshot.
func (s *DiscussionService) Detail(ctx context.Context, id, viewerID uint) (DiscussionDetail, error) {
	db := s.db.WithContext(ctx)

	var discussion models.Discussion
	if err := db.First(&discussion, id).Error; err != nil {
		return DiscussionDetail{}, errs.FromDB(err, "discussion")
	}
	var author models.User
	if err := db.First(&author, discussion.UserID).Error; err != nil {
		return DiscussionDetail{}, errs.FromDB(err, "discussion author")
	}

	var replies []models.Reply
	if err := db.Where("discussion_id = ?", id).Find(&replies).Error; err != nil {
		return DiscussionDetail{}, errs.Internal(err, "replies query")
	}

	// Distinct authors referenced by the reply set
	authorIDs := make(map[uint]struct{}, len(replies))
	for _, r := range replies {
		authorIDs[r.UserID] = struct{}{}
	}
	ids := make([]uint, 0, len(authorIDs))
	for id := range authorIDs {
		ids = append(ids, id)
	}
	authors := make(map[uint]models.User, len(ids))
	if len(ids) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return DiscussionDetail{}, errs.Internal(err, "reply authors query")
		}
		for _, u := range users {
			authors[u.ID] = u
		}
	}

	forest := thread.Build(replies, authors)

	return DiscussionDetail{
		DiscussionView: models.DiscussionView{
			Discussion: discussion,
			Author:     author.View(),
			ReplyCount: thread.Size(forest),
		},
		HTML:         utils.RenderMarkdown(discussion.Content),
		IsBookmarked: s.bookmarks.IsBookmarked(ctx, viewerID, id),
		Replies:      forest,
	}, nil
}
