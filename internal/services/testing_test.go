package services

import (
	"fmt"
	"testing"
	"time"

	"threadloom/internal/db"
	"threadloom/internal/models"
	"threadloom/internal/utils"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory SQLite store with the real schema,
// so unique indexes, atomic counter updates and cascades behave like the
// production store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	// The feed cache is process-global; keep tests isolated
	utils.GetCache().Purge()
	return gdb
}

func testLogger() *zap.Logger { return zap.NewNop() }

func seedUser(t *testing.T, gdb *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username:    username,
		Password:    "hashed",
		Email:       username + "@example.com",
		EmailNotify: true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedDiscussion(t *testing.T, gdb *gorm.DB, userID uint, title string) models.Discussion {
	t.Helper()
	discussion := models.Discussion{
		UserID:  userID,
		Title:   title,
		Content: "body of " + title,
	}
	if err := gdb.Create(&discussion).Error; err != nil {
		t.Fatalf("seed discussion %s: %v", title, err)
	}
	return discussion
}

func seedReply(t *testing.T, gdb *gorm.DB, discussionID, userID uint, parentID *uint, content string) models.Reply {
	t.Helper()
	reply := models.Reply{
		DiscussionID: discussionID,
		UserID:       userID,
		ParentID:     parentID,
		Content:      content,
	}
	if err := gdb.Create(&reply).Error; err != nil {
		t.Fatalf("seed reply: %v", err)
	}
	return reply
}

// fakeMailer records sends instead of talking SMTP.
type sentMail struct {
	To      string
	Kind    string
	Actor   string
	Title   string
	Link    string
	Excerpt string
}

type fakeMailer struct {
	enabled bool
	fail    bool
	sent    []sentMail
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) record(kind, to, actor, title, excerpt, link string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Kind: kind, Actor: actor, Title: title, Link: link, Excerpt: excerpt})
	return nil
}

func (m *fakeMailer) SendWelcome(to, username string) error {
	return m.record("welcome", to, username, "", "", "")
}

func (m *fakeMailer) SendReplyNotification(to, actor, title, excerpt, link string) error {
	return m.record("reply", to, actor, title, excerpt, link)
}

func (m *fakeMailer) SendHelpfulNotification(to, actor, title, link string) error {
	return m.record("helpful", to, actor, title, "", link)
}

// fakePusher records realtime signals.
type pushRecord struct {
	UserID uint
	Unread int64
}

type fakePusher struct {
	pushes []pushRecord
}

func (p *fakePusher) Push(userID uint, unread int64) {
	p.pushes = append(p.pushes, pushRecord{UserID: userID, Unread: unread})
}

func at(t *testing.T, gdb *gorm.DB, model interface{}, id uint, created time.Time) {
	t.Helper()
	if err := gdb.Model(model).Where("id = ?", id).UpdateColumn("created_at", created).Error; err != nil {
		t.Fatalf("backdate record: %v", err)
	}
}
