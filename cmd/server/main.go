package main

import (
	"context"
	"log"
	"os"

	"threadloom/internal/db"
	"threadloom/internal/handlers"
	"threadloom/internal/middleware"
	"threadloom/internal/router"
	"threadloom/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	gdb := db.Init()

	// Redis is optional; without it the push hub stays single-process
	rdb, err := services.InitRedis(context.Background(), os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	if rdb == nil {
		logger.Warn("REDIS_ADDR not set, realtime push is local-only")
	}

	hub := services.NewHub(gdb, rdb, logger)
	hub.Run(context.Background())

	// Services
	mailer := services.NewMailService(logger)
	markService := services.NewMarkService(gdb, logger)
	bookmarkService := services.NewBookmarkService(gdb, logger)
	feedService := services.NewFeedService(gdb, logger)
	notifyService := services.NewNotifyService(gdb, mailer, hub, logger)
	discussionService := services.NewDiscussionService(gdb, bookmarkService, logger)
	replyService := services.NewReplyService(gdb, logger)
	userService := services.NewUserService(gdb, mailer, logger)
	uploadService := services.NewUploadService(logger)
	ticketService := services.NewTicketService()

	// Initialize Gin
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
	}))

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("threadloom_session", store))
	r.Use(middleware.LoadUser())

	handlers.RegisterValidations()

	router.RegisterRoutes(r, router.Handlers{
		Auth:          handlers.NewAuthHandler(userService, notifyService),
		Discussions:   handlers.NewDiscussionHandler(discussionService, feedService, replyService, notifyService),
		Marks:         handlers.NewMarkHandler(markService, notifyService),
		Bookmarks:     handlers.NewBookmarkHandler(bookmarkService),
		Notifications: handlers.NewNotificationHandler(notifyService),
		Uploads:       handlers.NewUploadHandler(uploadService),
		Realtime:      handlers.NewRealtimeHandler(hub, ticketService),
	}, uploadService.Dir())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Threadloom server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
