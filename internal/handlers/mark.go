package handlers

import (
	"net/http"

	"threadloom/internal/models"
	"threadloom/internal/services"
	"threadloom/internal/utils"

	"github.com/gin-gonic/gin"
)

type MarkHandler struct {
	marks  *services.MarkService
	notify *services.NotifyService
}

func NewMarkHandler(marks *services.MarkService, notify *services.NotifyService) *MarkHandler {
	return &MarkHandler{marks: marks, notify: notify}
}

// target builds the tagged union from the route: /:type/:id where type
// is "discussions" or "replies".
func markTarget(c *gin.Context) (models.MarkTarget, bool) {
	id := utils.StringToUint(c.Param("id"))
	switch c.Param("type") {
	case "discussions":
		return models.DiscussionTarget(id), true
	case "replies":
		return models.ReplyTarget(id), true
	}
	return models.MarkTarget{}, false
}

func (h *MarkHandler) Apply(c *gin.Context) {
	user, _ := currentUser(c)

	target, ok := markTarget(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "unknown mark target type"}})
		return
	}

	mark, created, err := h.marks.Apply(c.Request.Context(), user.ID, target)
	if err != nil {
		fail(c, err)
		return
	}

	// Fan-out only for a fresh mark; an idempotent re-apply by the same
	// user must not re-notify.
	if created {
		h.notify.MarkCreated(c.Request.Context(), mark)
	}

	c.JSON(http.StatusOK, mark)
}

func (h *MarkHandler) Remove(c *gin.Context) {
	user, _ := currentUser(c)

	target, ok := markTarget(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "validation", "message": "unknown mark target type"}})
		return
	}

	if err := h.marks.Remove(c.Request.Context(), user.ID, target); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
