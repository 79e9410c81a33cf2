package handlers

import (
	"net/http"

	"threadloom/internal/middleware"
	"threadloom/internal/services"
	"threadloom/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users  *services.UserService
	notify *services.NotifyService
}

func NewAuthHandler(users *services.UserService, notify *services.NotifyService) *AuthHandler {
	return &AuthHandler{users: users, notify: notify}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		fail(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.View())
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user.View())
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if user, ok := currentUser(c); ok {
		if err := h.users.Logout(c.Request.Context(), user.ID); err != nil {
			fail(c, err)
			return
		}
	}
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Status(http.StatusNoContent)
}

// Me returns the session user with their unread notification count.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	unread, _ := c.Get(middleware.UnreadCountKey)
	c.JSON(http.StatusOK, gin.H{
		"user":         user.View(),
		"email":        user.Email,
		"email_notify": user.EmailNotify,
		"unread":       unread,
	})
}

func (h *AuthHandler) UpdateSettings(c *gin.Context) {
	user, _ := currentUser(c)

	var req struct {
		Email       *string `json:"email" binding:"omitempty,email"`
		EmailNotify *bool   `json:"email_notify"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.users.UpdateSettings(c.Request.Context(), user.ID, services.SettingsInput{
		Email:       req.Email,
		EmailNotify: req.EmailNotify,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         updated.View(),
		"email":        updated.Email,
		"email_notify": updated.EmailNotify,
	})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))
	view, err := h.users.Profile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
