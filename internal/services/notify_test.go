package services

import (
	"context"
	"errors"
	"testing"

	"threadloom/internal/errs"
	"threadloom/internal/models"
)

func notifyFixture(t *testing.T) (*NotifyService, *fakeMailer, *fakePusher, *MarkService) {
	gdb := newTestDB(t)
	mailer := &fakeMailer{enabled: true}
	pusher := &fakePusher{}
	notify := NewNotifyService(gdb, mailer, pusher, testLogger())
	marks := NewMarkService(gdb, testLogger())
	return notify, mailer, pusher, marks
}

func allNotifications(t *testing.T, s *NotifyService) []models.Notification {
	t.Helper()
	var ns []models.Notification
	if err := s.db.Order("id ASC").Find(&ns).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return ns
}

func TestReplyToDiscussionNotifiesOwner(t *testing.T) {
	notify, mailer, pusher, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "channels vs mutexes")
	r := seedReply(t, gdb, d.ID, replier.ID, nil, "mutexes, usually")

	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	ns := allNotifications(t, notify)
	if len(ns) != 1 {
		t.Fatalf("want exactly 1 notification, got %d", len(ns))
	}
	n := ns[0]
	if n.UserID != owner.ID || n.ActorID != replier.ID {
		t.Errorf("wrong recipient/actor: %d/%d", n.UserID, n.ActorID)
	}
	if n.Type != models.NotificationTypeReply {
		t.Errorf("wrong type %s", n.Type)
	}
	if n.IsRead {
		t.Error("new notification must start unread")
	}

	if len(mailer.sent) != 1 || mailer.sent[0].To != owner.Email {
		t.Errorf("expected one reply email to the owner, got %+v", mailer.sent)
	}
	if len(pusher.pushes) != 1 || pusher.pushes[0].UserID != owner.ID || pusher.pushes[0].Unread != 1 {
		t.Errorf("expected one push with unread=1, got %+v", pusher.pushes)
	}
}

func TestNestedReplyNotifiesParentOwnerOnly(t *testing.T) {
	notify, _, _, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	// A owns the discussion, B posts R1, C replies to R1: only B hears
	// about it.
	a := seedUser(t, gdb, "a")
	b := seedUser(t, gdb, "b")
	c := seedUser(t, gdb, "c")
	d := seedDiscussion(t, gdb, a.ID, "deep threads")
	r1 := seedReply(t, gdb, d.ID, b.ID, nil, "top level")
	r2 := seedReply(t, gdb, d.ID, c.ID, &r1.ID, "nested")

	if err := notify.ReplyCreated(ctx, r2); err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	ns := allNotifications(t, notify)
	if len(ns) != 1 {
		t.Fatalf("want exactly 1 notification, got %d", len(ns))
	}
	if ns[0].UserID != b.ID {
		t.Errorf("nested reply must notify the parent's owner %d, notified %d", b.ID, ns[0].UserID)
	}
}

func TestSelfReplySuppressed(t *testing.T) {
	notify, mailer, pusher, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	d := seedDiscussion(t, gdb, owner.ID, "talking to myself")
	r := seedReply(t, gdb, d.ID, owner.ID, nil, "bump")

	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	if len(allNotifications(t, notify)) != 0 {
		t.Error("self-reply produced a notification")
	}
	if len(mailer.sent) != 0 || len(pusher.pushes) != 0 {
		t.Error("self-reply produced side effects")
	}
}

func TestHelpfulMarkNotifiesTargetOwner(t *testing.T) {
	notify, _, _, marks := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	marker := seedUser(t, gdb, "marker")
	d := seedDiscussion(t, gdb, owner.ID, "worth reading")

	mark, created, err := marks.Apply(ctx, marker.ID, models.DiscussionTarget(d.ID))
	if err != nil || !created {
		t.Fatalf("apply mark: %v created=%v", err, created)
	}
	if err := notify.MarkCreated(ctx, mark); err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	ns := allNotifications(t, notify)
	if len(ns) != 1 {
		t.Fatalf("want 1 notification, got %d", len(ns))
	}
	if ns[0].UserID != owner.ID || ns[0].Type != models.NotificationTypeHelpful {
		t.Errorf("wrong notification: %+v", ns[0])
	}
}

func TestSelfMarkSuppressed(t *testing.T) {
	notify, _, _, marks := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	d := seedDiscussion(t, gdb, owner.ID, "my own post")

	mark, _, err := marks.Apply(ctx, owner.ID, models.DiscussionTarget(d.ID))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := notify.MarkCreated(ctx, mark); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	if len(allNotifications(t, notify)) != 0 {
		t.Error("self-mark produced a notification")
	}
}

func TestEmailFailureDoesNotFailFanOut(t *testing.T) {
	notify, mailer, _, _ := notifyFixture(t)
	mailer.fail = true
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "flaky smtp")
	r := seedReply(t, gdb, d.ID, replier.ID, nil, "hello")

	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("email failure must not surface: %v", err)
	}

	ns := allNotifications(t, notify)
	if len(ns) != 1 {
		t.Fatalf("notification record must exist regardless, got %d", len(ns))
	}
	if ns[0].EmailSent {
		t.Error("email_sent must stay false after a failed send")
	}
}

func TestEmailSentFlagFlips(t *testing.T) {
	notify, _, _, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "good smtp")
	r := seedReply(t, gdb, d.ID, replier.ID, nil, "hello")

	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	ns := allNotifications(t, notify)
	if !ns[0].EmailSent {
		t.Error("email_sent must flip after a successful send")
	}
}

func TestEmailRespectsOptOut(t *testing.T) {
	notify, mailer, _, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	gdb.Model(&models.User{}).Where("id = ?", owner.ID).UpdateColumn("email_notify", false)
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "no emails please")
	r := seedReply(t, gdb, d.ID, replier.ID, nil, "hello")

	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("opted-out recipient still got an email")
	}
	// Record still created, only the email is skipped
	if len(allNotifications(t, notify)) != 1 {
		t.Error("notification record missing")
	}
}

func TestNotificationReadLifecycle(t *testing.T) {
	notify, _, _, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "lifecycle")
	r := seedReply(t, gdb, d.ID, replier.ID, nil, "hi")
	if err := notify.ReplyCreated(ctx, r); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	n := allNotifications(t, notify)[0]

	// A stranger cannot read someone else's notification
	if err := notify.MarkRead(ctx, replier.ID, n.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("foreign mark-read must be not-found, got %v", err)
	}

	if err := notify.MarkRead(ctx, owner.ID, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := notify.UnreadCount(ctx, owner.ID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 0 {
		t.Errorf("unread after read: want 0, got %d", unread)
	}

	// Idempotent: reading again is fine
	if err := notify.MarkRead(ctx, owner.ID, n.ID); err != nil {
		t.Errorf("second mark read: %v", err)
	}

	if err := notify.Delete(ctx, owner.ID, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := notify.Delete(ctx, owner.ID, n.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("deleting twice must be not-found, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	notify, _, _, _ := notifyFixture(t)
	gdb := notify.db
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	replier := seedUser(t, gdb, "replier")
	d := seedDiscussion(t, gdb, owner.ID, "busy thread")
	for i := 0; i < 3; i++ {
		r := seedReply(t, gdb, d.ID, replier.ID, nil, "ping")
		if err := notify.ReplyCreated(ctx, r); err != nil {
			t.Fatalf("fan-out: %v", err)
		}
	}

	if err := notify.MarkAllRead(ctx, owner.ID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	unread, _ := notify.UnreadCount(ctx, owner.ID)
	if unread != 0 {
		t.Errorf("unread after mark-all: want 0, got %d", unread)
	}
}
