package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"threadloom/internal/errs"
	"threadloom/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotifyService derives notification events from reply and mark writes
// and delivers them: a stored record always, an email and a realtime push
// best-effort. No recipient is ever the actor.
type NotifyService struct {
	db      *gorm.DB
	mailer  Mailer
	pusher  Pusher
	siteURL string
	logger  *zap.Logger
}

func NewNotifyService(db *gorm.DB, mailer Mailer, pusher Pusher, logger *zap.Logger) *NotifyService {
	return &NotifyService{
		db:      db,
		mailer:  mailer,
		pusher:  pusher,
		siteURL: os.Getenv("SITE_URL"),
		logger:  logger,
	}
}

// ReplyCreated fans out after a reply write commits. A nested reply
// notifies the parent reply's owner; a top-level reply notifies the
// discussion owner. Self-replies notify nobody.
func (s *NotifyService) ReplyCreated(ctx context.Context, reply models.Reply) error {
	db := s.db.WithContext(ctx)

	var discussion models.Discussion
	if err := db.First(&discussion, reply.DiscussionID).Error; err != nil {
		return errs.FromDB(err, "discussion")
	}
	var actor models.User
	if err := db.First(&actor, reply.UserID).Error; err != nil {
		return errs.FromDB(err, "actor")
	}

	if reply.ParentID != nil {
		// Reply to a reply: the parent's owner is the one being answered
		var parent models.Reply
		if err := db.First(&parent, *reply.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // parent deleted meanwhile, nothing to notify
			}
			return errs.Internal(err, "parent reply lookup")
		}
		if parent.UserID == reply.UserID {
			return nil
		}
		n := models.Notification{
			UserID:       parent.UserID,
			ActorID:      reply.UserID,
			DiscussionID: &discussion.ID,
			ReplyID:      &reply.ID,
			Type:         models.NotificationTypeReply,
			Message:      fmt.Sprintf("%s replied to your reply in %q", actor.Username, discussion.Title),
		}
		return s.create(ctx, n, actor, discussion, reply.Content)
	}

	if discussion.UserID == reply.UserID {
		return nil
	}
	n := models.Notification{
		UserID:       discussion.UserID,
		ActorID:      reply.UserID,
		DiscussionID: &discussion.ID,
		ReplyID:      &reply.ID,
		Type:         models.NotificationTypeReply,
		Message:      fmt.Sprintf("%s replied to your discussion %q", actor.Username, discussion.Title),
	}
	return s.create(ctx, n, actor, discussion, reply.Content)
}

// MarkCreated fans out after a helpful-mark write commits. The target's
// owner gets one helpful notification unless they marked their own post.
func (s *NotifyService) MarkCreated(ctx context.Context, mark models.HelpfulMark) error {
	target, err := models.TargetOf(mark)
	if err != nil {
		return errs.Validation("%v", err)
	}
	db := s.db.WithContext(ctx)

	ownerID, err := targetOwner(db, target)
	if err != nil {
		return err
	}
	if ownerID == mark.UserID {
		return nil
	}

	var actor models.User
	if err := db.First(&actor, mark.UserID).Error; err != nil {
		return errs.FromDB(err, "actor")
	}

	// Resolve the discussion the target lives in, for the message and link
	var discussion models.Discussion
	n := models.Notification{
		UserID:  ownerID,
		ActorID: mark.UserID,
		Type:    models.NotificationTypeHelpful,
	}
	if target.Kind == models.TargetDiscussion {
		if err := db.First(&discussion, target.ID).Error; err != nil {
			return errs.FromDB(err, "discussion")
		}
		n.DiscussionID = &discussion.ID
		n.Message = fmt.Sprintf("%s marked your discussion %q as helpful", actor.Username, discussion.Title)
	} else {
		var reply models.Reply
		if err := db.First(&reply, target.ID).Error; err != nil {
			return errs.FromDB(err, "reply")
		}
		if err := db.First(&discussion, reply.DiscussionID).Error; err != nil {
			return errs.FromDB(err, "discussion")
		}
		n.DiscussionID = &discussion.ID
		n.ReplyID = &reply.ID
		n.Message = fmt.Sprintf("%s marked your reply in %q as helpful", actor.Username, discussion.Title)
	}
	return s.create(ctx, n, actor, discussion, "")
}

// create stores the notification, then fires the best-effort side
// effects. Email and push failures are logged and swallowed; the stored
// record stands regardless.
func (s *NotifyService) create(ctx context.Context, n models.Notification, actor models.User, discussion models.Discussion, excerpt string) error {
	db := s.db.WithContext(ctx)

	if err := db.Create(&n).Error; err != nil {
		return errs.Internal(err, "notification insert")
	}

	var recipient models.User
	if err := db.First(&recipient, n.UserID).Error; err != nil {
		s.logger.Warn("notification recipient vanished", zap.Uint("user_id", n.UserID), zap.Error(err))
		return nil
	}

	s.sendEmail(ctx, n, recipient, actor, discussion, excerpt)

	if s.pusher != nil {
		unread, err := s.UnreadCount(ctx, recipient.ID)
		if err != nil {
			s.logger.Warn("unread count for push failed", zap.Error(err))
			return nil
		}
		s.pusher.Push(recipient.ID, unread)
	}
	return nil
}

func (s *NotifyService) sendEmail(ctx context.Context, n models.Notification, recipient, actor models.User, discussion models.Discussion, excerpt string) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}
	if recipient.Email == "" || !recipient.EmailNotify {
		return
	}

	link := fmt.Sprintf("%s/discussions/%d", s.siteURL, discussion.ID)
	var err error
	if n.Type == models.NotificationTypeReply {
		err = s.mailer.SendReplyNotification(recipient.Email, actor.Username, discussion.Title, excerpt, link)
	} else {
		err = s.mailer.SendHelpfulNotification(recipient.Email, actor.Username, discussion.Title, link)
	}
	if err != nil {
		s.logger.Warn("notification email failed", zap.Uint("notification_id", n.ID), zap.Error(err))
		return
	}
	// Flips once, never reverts
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).
		UpdateColumn("email_sent", true).Error; err != nil {
		s.logger.Warn("email_sent flag update failed", zap.Uint("notification_id", n.ID), zap.Error(err))
	}
}

func (s *NotifyService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&notifications).Error
	if err != nil {
		return nil, errs.Internal(err, "notification list")
	}
	return notifications, nil
}

func (s *NotifyService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, errs.Internal(err, "unread count")
	}
	return count, nil
}

// MarkRead flips the read flag on the recipient's own notification.
func (s *NotifyService) MarkRead(ctx context.Context, userID, id uint) error {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("notification not found")
		}
		return errs.Internal(err, "notification lookup")
	}
	if n.IsRead {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&n).UpdateColumn("is_read", true).Error; err != nil {
		return errs.Internal(err, "notification read update")
	}
	return nil
}

func (s *NotifyService) MarkAllRead(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return errs.Internal(err, "mark all read")
	}
	return nil
}

// Delete removes the recipient's own notification, the terminal state.
func (s *NotifyService) Delete(ctx context.Context, userID, id uint) error {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("notification not found")
		}
		return errs.Internal(err, "notification lookup")
	}
	if err := s.db.WithContext(ctx).Delete(&n).Error; err != nil {
		return errs.Internal(err, "notification delete")
	}
	return nil
}
