package db

import (
	"log"
	"os"

	"threadloom/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=threadloom port=5432 sslmode=disable"
	}

	var err error
	// TranslateError so unique violations surface as gorm.ErrDuplicatedKey
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	return DB
}

// Migrate creates/updates the record collections. Shared with the
// test helpers that run against in-memory SQLite.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Discussion{},
		&models.Reply{},
		&models.HelpfulMark{},
		&models.Bookmark{},
		&models.Notification{},
	)
}
