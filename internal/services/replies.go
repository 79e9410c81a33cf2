package services

import (
	"context"
	"errors"

	"threadloom/internal/errs"
	"threadloom/internal/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReplyService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewReplyService(db *gorm.DB, logger *zap.Logger) *ReplyService {
	return &ReplyService{db: db, logger: logger}
}

type ReplyInput struct {
	DiscussionID uint     `json:"discussion_id"`
	ParentID     *uint    `json:"parent_id"`
	Content      string   `json:"content"`
	ImagePaths   []string `json:"image_paths"`
	Captions     []string `json:"captions"`
}

// Create validates the parent chain before persisting: the discussion
// must exist, and a parent reply must exist and belong to the same
// discussion. Cross-discussion parenting is invalid.
func (s *ReplyService) Create(ctx context.Context, userID uint, in ReplyInput) (models.Reply, error) {
	if in.Content == "" {
		return models.Reply{}, errs.Validation("content must not be empty")
	}
	if len(in.ImagePaths) != len(in.Captions) {
		return models.Reply{}, errs.Validation("image paths and captions must pair up: %d paths, %d captions",
			len(in.ImagePaths), len(in.Captions))
	}

	db := s.db.WithContext(ctx)

	var discussion models.Discussion
	if err := db.First(&discussion, in.DiscussionID).Error; err != nil {
		return models.Reply{}, errs.FromDB(err, "discussion")
	}

	if in.ParentID != nil {
		var parent models.Reply
		if err := db.First(&parent, *in.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Reply{}, errs.NotFound("parent reply not found")
			}
			return models.Reply{}, errs.Internal(err, "parent reply lookup")
		}
		if parent.DiscussionID != in.DiscussionID {
			return models.Reply{}, errs.Validation("parent reply belongs to a different discussion")
		}
	}

	reply := models.Reply{
		DiscussionID: in.DiscussionID,
		UserID:       userID,
		ParentID:     in.ParentID,
		Content:      in.Content,
		ImagePaths:   datatypes.NewJSONSlice(in.ImagePaths),
		Captions:     datatypes.NewJSONSlice(in.Captions),
	}
	if err := db.Create(&reply).Error; err != nil {
		return models.Reply{}, errs.Internal(err, "reply insert")
	}
	return reply, nil
}

// Delete removes the reply and its whole descendant subtree, plus the
// helpful marks referencing any of those replies.
func (s *ReplyService) Delete(ctx context.Context, userID, id uint) error {
	var reply models.Reply
	if err := s.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		return errs.FromDB(err, "reply")
	}
	if reply.UserID != userID {
		return errs.Authorization("only the owner can delete a reply")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One query for the discussion's replies, then walk the subtree
		// in memory; parent references are plain id fields.
		var siblings []models.Reply
		if err := tx.Where("discussion_id = ?", reply.DiscussionID).Find(&siblings).Error; err != nil {
			return err
		}
		children := make(map[uint][]uint)
		for _, r := range siblings {
			if r.ParentID != nil {
				children[*r.ParentID] = append(children[*r.ParentID], r.ID)
			}
		}
		doomed := []uint{id}
		for i := 0; i < len(doomed); i++ {
			doomed = append(doomed, children[doomed[i]]...)
		}

		if err := tx.Where("reply_id IN ?", doomed).Delete(&models.HelpfulMark{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", doomed).Delete(&models.Reply{}).Error
	})
	if err != nil {
		return errs.Internal(err, "reply cascade delete")
	}
	return nil
}
