package handlers

import (
	"net/http"

	"threadloom/internal/services"
	"threadloom/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notify *services.NotifyService
}

func NewNotificationHandler(notify *services.NotifyService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user, _ := currentUser(c)

	notifications, err := h.notify.List(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	unread, err := h.notify.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user, _ := currentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.notify.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user, _ := currentUser(c)

	if err := h.notify.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user, _ := currentUser(c)
	id := utils.StringToUint(c.Param("id"))

	if err := h.notify.Delete(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
