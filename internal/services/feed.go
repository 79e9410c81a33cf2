package services

import (
	"context"
	"time"

	"threadloom/internal/errs"
	"threadloom/internal/models"
	"threadloom/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	FilterRecent    = "recent"
	FilterHelpful   = "helpful"
	FilterMy        = "my"
	FilterBookmarks = "bookmarks"

	feedPageSize = 100
	feedCacheTTL = 60 * time.Second
)

// FeedService composes the filtered, sorted discussion views. Every order
// ends with id ASC so repeated reads iterate the same way even when two
// rows share a timestamp.
type FeedService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewFeedService(db *gorm.DB, logger *zap.Logger) *FeedService {
	return &FeedService{db: db, logger: logger}
}

// InvalidateFeedCache drops the shared recent/helpful pages. Discussion
// create/delete and mark writes call this.
func InvalidateFeedCache() {
	utils.GetCache().Delete("feed:" + FilterRecent)
	utils.GetCache().Delete("feed:" + FilterHelpful)
}

func (s *FeedService) List(ctx context.Context, filter string, viewerID uint) ([]models.DiscussionView, error) {
	if filter == "" {
		filter = FilterRecent
	}

	switch filter {
	case FilterRecent, FilterHelpful:
		cacheKey := "feed:" + filter
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if views, ok := cached.([]models.DiscussionView); ok {
				return views, nil
			}
		}
		order := "created_at DESC, id ASC"
		if filter == FilterHelpful {
			order = "helpful_count DESC, id ASC"
		}
		var discussions []models.Discussion
		if err := s.db.WithContext(ctx).Order(order).Limit(feedPageSize).Find(&discussions).Error; err != nil {
			return nil, errs.Internal(err, "discussion feed query")
		}
		views, err := s.toViews(ctx, discussions)
		if err != nil {
			return nil, err
		}
		utils.GetCache().Set(cacheKey, views, feedCacheTTL)
		return views, nil

	case FilterMy:
		// Anonymous callers simply see nothing here
		if viewerID == 0 {
			return []models.DiscussionView{}, nil
		}
		var discussions []models.Discussion
		if err := s.db.WithContext(ctx).
			Where("user_id = ?", viewerID).
			Order("created_at DESC, id ASC").Limit(feedPageSize).
			Find(&discussions).Error; err != nil {
			return nil, errs.Internal(err, "own discussions query")
		}
		return s.toViews(ctx, discussions)

	case FilterBookmarks:
		if viewerID == 0 {
			return []models.DiscussionView{}, nil
		}
		var discussions []models.Discussion
		if err := s.db.WithContext(ctx).
			Joins("JOIN bookmarks ON bookmarks.discussion_id = discussions.id").
			Where("bookmarks.user_id = ?", viewerID).
			Order("discussions.created_at DESC, discussions.id ASC").Limit(feedPageSize).
			Find(&discussions).Error; err != nil {
			return nil, errs.Internal(err, "bookmarked discussions query")
		}
		return s.toViews(ctx, discussions)
	}

	return nil, errs.Validation("unknown feed filter %q", filter)
}

// toViews pairs discussions with authors and reply counts. Rows whose
// author cannot be resolved are dropped, same policy as the tree builder.
func (s *FeedService) toViews(ctx context.Context, discussions []models.Discussion) ([]models.DiscussionView, error) {
	views := make([]models.DiscussionView, 0, len(discussions))
	if len(discussions) == 0 {
		return views, nil
	}

	userIDs := make([]uint, 0, len(discussions))
	discussionIDs := make([]uint, 0, len(discussions))
	for _, d := range discussions {
		userIDs = append(userIDs, d.UserID)
		discussionIDs = append(discussionIDs, d.ID)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, errs.Internal(err, "feed authors query")
	}
	authors := make(map[uint]models.User, len(users))
	for _, u := range users {
		authors[u.ID] = u
	}

	counts, err := s.replyCounts(ctx, discussionIDs)
	if err != nil {
		return nil, err
	}

	for _, d := range discussions {
		author, ok := authors[d.UserID]
		if !ok {
			continue
		}
		views = append(views, models.DiscussionView{
			Discussion: d,
			Author:     author.View(),
			ReplyCount: counts[d.ID],
		})
	}
	return views, nil
}

// replyCounts batch-counts replies per discussion in one grouped query.
func (s *FeedService) replyCounts(ctx context.Context, discussionIDs []uint) (map[uint]int, error) {
	type countRow struct {
		DiscussionID uint
		Count        int
	}
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(&models.Reply{}).
		Select("discussion_id, COUNT(*) as count").
		Where("discussion_id IN ?", discussionIDs).
		Group("discussion_id").
		Scan(&rows).Error; err != nil {
		return nil, errs.Internal(err, "reply counts query")
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.DiscussionID] = r.Count
	}
	return counts, nil
}
