package handlers

import (
	"net/http"

	"threadloom/internal/services"
	"threadloom/internal/utils"

	"github.com/gin-gonic/gin"
)

type DiscussionHandler struct {
	discussions *services.DiscussionService
	feed        *services.FeedService
	replies     *services.ReplyService
	notify      *services.NotifyService
}

func NewDiscussionHandler(discussions *services.DiscussionService, feed *services.FeedService, replies *services.ReplyService, notify *services.NotifyService) *DiscussionHandler {
	return &DiscussionHandler{
		discussions: discussions,
		feed:        feed,
		replies:     replies,
		notify:      notify,
	}
}

// List serves /api/discussions?filter=recent|helpful|my|bookmarks
func (h *DiscussionHandler) List(c *gin.Context) {
	views, err := h.feed.List(c.Request.Context(), c.Query("filter"), viewerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": views})
}

func (h *DiscussionHandler) Detail(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))
	detail, err := h.discussions.Detail(c.Request.Context(), id, viewerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *DiscussionHandler) Create(c *gin.Context) {
	user, _ := currentUser(c)

	var req services.DiscussionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	discussion, err := h.discussions.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, discussion)
}

func (h *DiscussionHandler) Update(c *gin.Context) {
	user, _ := currentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var req services.DiscussionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	discussion, err := h.discussions.Update(c.Request.Context(), user.ID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}

func (h *DiscussionHandler) Delete(c *gin.Context) {
	user, _ := currentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.discussions.Delete(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateReply posts a reply into the discussion thread and fans out the
// notification afterwards. Fan-out errors never fail the write.
func (h *DiscussionHandler) CreateReply(c *gin.Context) {
	user, _ := currentUser(c)
	discussionID := utils.StringToUint(c.Param("id"))

	var req struct {
		ParentID   *uint    `json:"parent_id"`
		Content    string   `json:"content" binding:"required"`
		ImagePaths []string `json:"image_paths"`
		Captions   []string `json:"captions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := h.replies.Create(c.Request.Context(), user.ID, services.ReplyInput{
		DiscussionID: discussionID,
		ParentID:     req.ParentID,
		Content:      req.Content,
		ImagePaths:   req.ImagePaths,
		Captions:     req.Captions,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.notify.ReplyCreated(c.Request.Context(), reply)

	c.JSON(http.StatusCreated, reply)
}

func (h *DiscussionHandler) DeleteReply(c *gin.Context) {
	user, _ := currentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.replies.Delete(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
