package services

import (
	"context"
	"errors"
	"testing"

	"threadloom/internal/errs"
	"threadloom/internal/models"
)

func markCount(t *testing.T, s *MarkService) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&models.HelpfulMark{}).Count(&n).Error; err != nil {
		t.Fatalf("count marks: %v", err)
	}
	return n
}

func helpfulCount(t *testing.T, s *MarkService, target models.MarkTarget) int {
	t.Helper()
	if target.Kind == models.TargetDiscussion {
		var d models.Discussion
		if err := s.db.First(&d, target.ID).Error; err != nil {
			t.Fatalf("load discussion: %v", err)
		}
		return d.HelpfulCount
	}
	var r models.Reply
	if err := s.db.First(&r, target.ID).Error; err != nil {
		t.Fatalf("load reply: %v", err)
	}
	return r.HelpfulCount
}

func TestApplyMarkIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	s := NewMarkService(gdb, testLogger())
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	marker := seedUser(t, gdb, "marker")
	d := seedDiscussion(t, gdb, owner.ID, "gc tuning")
	target := models.DiscussionTarget(d.ID)

	first, created, err := s.Apply(ctx, marker.ID, target)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !created {
		t.Error("first apply should report a fresh mark")
	}

	second, created, err := s.Apply(ctx, marker.ID, target)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if created {
		t.Error("second apply must be a no-op")
	}
	if second.ID != first.ID {
		t.Errorf("second apply returned a different mark: %d vs %d", second.ID, first.ID)
	}

	if n := markCount(t, s); n != 1 {
		t.Errorf("expected exactly 1 stored mark, got %d", n)
	}
	if n := helpfulCount(t, s, target); n != 1 {
		t.Errorf("helpful count must increase by exactly 1, got %d", n)
	}
}

func TestApplyMarkOnReply(t *testing.T) {
	gdb := newTestDB(t)
	s := NewMarkService(gdb, testLogger())
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	marker := seedUser(t, gdb, "marker")
	d := seedDiscussion(t, gdb, owner.ID, "indexes")
	r := seedReply(t, gdb, d.ID, owner.ID, nil, "use a covering index")
	target := models.ReplyTarget(r.ID)

	if _, _, err := s.Apply(ctx, marker.ID, target); err != nil {
		t.Fatalf("apply on reply: %v", err)
	}
	if n := helpfulCount(t, s, target); n != 1 {
		t.Errorf("reply helpful count: want 1, got %d", n)
	}
	// The discussion's own counter stays untouched
	if n := helpfulCount(t, s, models.DiscussionTarget(d.ID)); n != 0 {
		t.Errorf("discussion count must stay 0, got %d", n)
	}
}

func TestApplyMarkMissingTarget(t *testing.T) {
	gdb := newTestDB(t)
	s := NewMarkService(gdb, testLogger())

	marker := seedUser(t, gdb, "marker")

	_, _, err := s.Apply(context.Background(), marker.ID, models.DiscussionTarget(999))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestRemoveMarkFloorsAtZero(t *testing.T) {
	gdb := newTestDB(t)
	s := NewMarkService(gdb, testLogger())
	ctx := context.Background()

	owner := seedUser(t, gdb, "owner")
	marker := seedUser(t, gdb, "marker")
	d := seedDiscussion(t, gdb, owner.ID, "profiles")
	target := models.DiscussionTarget(d.ID)

	// No mark exists yet: removal reports not-found, count stays 0
	err := s.Remove(ctx, marker.ID, target)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if n := helpfulCount(t, s, target); n != 0 {
		t.Errorf("count must stay at 0, got %d", n)
	}

	// Apply then remove round-trips to 0
	if _, _, err := s.Apply(ctx, marker.ID, target); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Remove(ctx, marker.ID, target); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n := helpfulCount(t, s, target); n != 0 {
		t.Errorf("count after remove: want 0, got %d", n)
	}
	if n := markCount(t, s); n != 0 {
		t.Errorf("marks after remove: want 0, got %d", n)
	}

	// Double removal stays not-found and never goes negative
	err = s.Remove(ctx, marker.ID, target)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not-found on double removal, got %v", err)
	}
	if n := helpfulCount(t, s, target); n != 0 {
		t.Errorf("count must never go negative, got %d", n)
	}
}

func TestApplyMarkInvalidTarget(t *testing.T) {
	gdb := newTestDB(t)
	s := NewMarkService(gdb, testLogger())

	marker := seedUser(t, gdb, "marker")

	_, _, err := s.Apply(context.Background(), marker.ID, models.MarkTarget{})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
