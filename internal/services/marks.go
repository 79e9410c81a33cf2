package services

import (
	"context"
	"errors"

	"threadloom/internal/errs"
	"threadloom/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MarkService keeps helpful counts exact over idempotent per-user marks.
// One code path serves both target kinds; the union's kind picks the
// counter table and the mark column.
type MarkService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMarkService(db *gorm.DB, logger *zap.Logger) *MarkService {
	return &MarkService{db: db, logger: logger}
}

// counterModel returns the gorm model whose helpful_count the target owns.
func counterModel(t models.MarkTarget) interface{} {
	if t.Kind == models.TargetDiscussion {
		return &models.Discussion{}
	}
	return &models.Reply{}
}

// markColumn is the nullable column naming the target on a mark row.
func markColumn(t models.MarkTarget) string {
	if t.Kind == models.TargetDiscussion {
		return "discussion_id = ?"
	}
	return "reply_id = ?"
}

// targetOwner resolves the target row's owning user, or NotFound.
func targetOwner(db *gorm.DB, t models.MarkTarget) (uint, error) {
	switch t.Kind {
	case models.TargetDiscussion:
		var d models.Discussion
		if err := db.First(&d, t.ID).Error; err != nil {
			return 0, errs.FromDB(err, "discussion")
		}
		return d.UserID, nil
	case models.TargetReply:
		var r models.Reply
		if err := db.First(&r, t.ID).Error; err != nil {
			return 0, errs.FromDB(err, "reply")
		}
		return r.UserID, nil
	}
	return 0, errs.Validation("unknown mark target kind")
}

// Apply records a helpful mark. Marking the same target twice is a no-op
// that returns the existing mark with created=false; the counter moves
// by exactly one per surviving mark.
func (s *MarkService) Apply(ctx context.Context, userID uint, target models.MarkTarget) (models.HelpfulMark, bool, error) {
	if !target.Kind.Valid() || target.ID == 0 {
		return models.HelpfulMark{}, false, errs.Validation("invalid mark target")
	}
	if _, err := targetOwner(s.db.WithContext(ctx), target); err != nil {
		return models.HelpfulMark{}, false, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return models.HelpfulMark{}, false, errs.Internal(tx.Error, "begin mark transaction")
	}
	defer tx.Rollback()

	// Check if already marked
	var existing models.HelpfulMark
	err := tx.Where("user_id = ?", userID).Where(markColumn(target), target.ID).First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.HelpfulMark{}, false, errs.Internal(err, "mark lookup")
	}

	mark := target.Mark(userID)
	if err := tx.Create(&mark).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race; the surviving mark wins and the
			// counter was already moved by the winner.
			tx.Rollback()
			var survivor models.HelpfulMark
			if err := s.db.WithContext(ctx).
				Where("user_id = ?", userID).Where(markColumn(target), target.ID).
				First(&survivor).Error; err != nil {
				return models.HelpfulMark{}, false, errs.Internal(err, "surviving mark lookup")
			}
			return survivor, false, nil
		}
		return models.HelpfulMark{}, false, errs.Internal(err, "mark insert")
	}

	// Atomic increment at the store, never read-modify-write
	if err := tx.Model(counterModel(target)).Where("id = ?", target.ID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count + ?", 1)).Error; err != nil {
		return models.HelpfulMark{}, false, errs.Internal(err, "helpful count increment")
	}

	if err := tx.Commit().Error; err != nil {
		return models.HelpfulMark{}, false, errs.Internal(err, "commit mark")
	}

	InvalidateFeedCache()
	return mark, true, nil
}

// Remove deletes the actor's mark and decrements the counter, floored at
// zero in the UPDATE's WHERE clause so a double-removal race can never
// drive the count negative.
func (s *MarkService) Remove(ctx context.Context, userID uint, target models.MarkTarget) error {
	if !target.Kind.Valid() || target.ID == 0 {
		return errs.Validation("invalid mark target")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errs.Internal(tx.Error, "begin mark transaction")
	}
	defer tx.Rollback()

	var mark models.HelpfulMark
	err := tx.Where("user_id = ?", userID).Where(markColumn(target), target.ID).First(&mark).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("helpful mark not found")
		}
		return errs.Internal(err, "mark lookup")
	}

	if err := tx.Delete(&mark).Error; err != nil {
		return errs.Internal(err, "mark delete")
	}

	if err := tx.Model(counterModel(target)).
		Where("id = ? AND helpful_count > 0", target.ID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count - ?", 1)).Error; err != nil {
		return errs.Internal(err, "helpful count decrement")
	}

	if err := tx.Commit().Error; err != nil {
		return errs.Internal(err, "commit mark removal")
	}

	InvalidateFeedCache()
	return nil
}
