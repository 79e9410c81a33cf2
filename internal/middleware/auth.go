package middleware

import (
	"net/http"

	"threadloom/internal/db"
	"threadloom/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// AuthRequired rejects anonymous callers with 401.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"kind": "authorization", "message": "login required"},
			})
			return
		}
		c.Next()
	}
}

// LoadUser retrieves the session user and annotates the context with the
// user plus their unread notification count.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID != nil {
			var user models.User
			result := db.DB.First(&user, userID)
			if result.Error == nil {
				c.Set(CheckUserKey, &user)

				var count int64
				db.DB.Model(&models.Notification{}).
					Where("user_id = ? AND is_read = ?", user.ID, false).
					Count(&count)
				c.Set(UnreadCountKey, count)
			}
		}
		c.Next()
	}
}
