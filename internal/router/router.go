package router

import (
	"threadloom/internal/handlers"
	"threadloom/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Discussions   *handlers.DiscussionHandler
	Marks         *handlers.MarkHandler
	Bookmarks     *handlers.BookmarkHandler
	Notifications *handlers.NotificationHandler
	Uploads       *handlers.UploadHandler
	Realtime      *handlers.RealtimeHandler
}

func RegisterRoutes(r *gin.Engine, h Handlers, uploadDir string) {
	// Static uploads (the blob store's public face)
	r.Static("/uploads", uploadDir)

	api := r.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/me", h.Auth.Me)
	api.GET("/users/:id", h.Auth.Profile)
	api.GET("/discussions", h.Discussions.List)
	api.GET("/discussions/:id", h.Discussions.Detail)
	api.GET("/realtime/ws", h.Realtime.Connect) // gated by ticket, not session

	// Protected routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/auth/logout", h.Auth.Logout)
		authorized.PUT("/settings", h.Auth.UpdateSettings)

		authorized.POST("/discussions", h.Discussions.Create)
		authorized.PUT("/discussions/:id", h.Discussions.Update)
		authorized.DELETE("/discussions/:id", h.Discussions.Delete)
		authorized.POST("/discussions/:id/replies", h.Discussions.CreateReply)
		authorized.DELETE("/replies/:id", h.Discussions.DeleteReply)

		authorized.POST("/helpful/:type/:id", h.Marks.Apply)
		authorized.DELETE("/helpful/:type/:id", h.Marks.Remove)

		authorized.PUT("/discussions/:id/bookmark", h.Bookmarks.Upsert)
		authorized.DELETE("/discussions/:id/bookmark", h.Bookmarks.Remove)

		authorized.GET("/notifications", h.Notifications.List)
		authorized.POST("/notifications/:id/read", h.Notifications.Read)
		authorized.POST("/notifications/read-all", h.Notifications.ReadAll)
		authorized.DELETE("/notifications/:id", h.Notifications.Delete)

		authorized.POST("/uploads", h.Uploads.Create)
		authorized.GET("/realtime/ticket", h.Realtime.Ticket)
	}
}
