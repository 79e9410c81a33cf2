package handlers

import (
	"net/http"

	"threadloom/internal/models"
	"threadloom/internal/services"
	"threadloom/internal/utils"

	"github.com/gin-gonic/gin"
)

type BookmarkHandler struct {
	bookmarks *services.BookmarkService
}

func NewBookmarkHandler(bookmarks *services.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

// Upsert saves or re-saves a discussion; re-saving only changes the save
// mode.
func (h *BookmarkHandler) Upsert(c *gin.Context) {
	user, _ := currentUser(c)
	discussionID := utils.StringToUint(c.Param("id"))

	var req struct {
		SaveMode string `json:"save_mode" binding:"required,savemode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bookmark, err := h.bookmarks.Upsert(c.Request.Context(), user.ID, discussionID, models.SaveMode(req.SaveMode))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmark)
}

func (h *BookmarkHandler) Remove(c *gin.Context) {
	user, _ := currentUser(c)
	discussionID := utils.StringToUint(c.Param("id"))

	if err := h.bookmarks.Remove(c.Request.Context(), user.ID, discussionID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
