package services

import (
	"context"
	"errors"
	"testing"

	"threadloom/internal/errs"
)

func TestRegisterAndLogin(t *testing.T) {
	gdb := newTestDB(t)
	mailer := &fakeMailer{enabled: true}
	s := NewUserService(gdb, mailer, testLogger())
	ctx := context.Background()

	user, err := s.Register(ctx, RegisterInput{Username: "gopher", Password: "correct horse", Email: "g@example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Password == "correct horse" {
		t.Error("password stored in plaintext")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Kind != "welcome" {
		t.Errorf("expected welcome email, got %+v", mailer.sent)
	}

	// Duplicate username is a conflict
	_, err = s.Register(ctx, RegisterInput{Username: "gopher", Password: "another pass"})
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("duplicate username: expected conflict, got %v", err)
	}

	logged, err := s.Login(ctx, "gopher", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !logged.IsOnline {
		t.Error("login must flip the presence flag on")
	}
	if logged.LastSeenAt == nil {
		t.Error("login must stamp last seen")
	}

	if _, err := s.Login(ctx, "gopher", "wrong"); !errors.Is(err, errs.ErrAuthorization) {
		t.Errorf("bad password: expected authorization error, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "x"); !errors.Is(err, errs.ErrAuthorization) {
		t.Errorf("unknown user: expected authorization error, got %v", err)
	}

	if err := s.Logout(ctx, logged.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	profile, err := s.Profile(ctx, logged.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.IsOnline {
		t.Error("logout must flip the presence flag off")
	}
}

func TestRegisterValidation(t *testing.T) {
	gdb := newTestDB(t)
	s := NewUserService(gdb, &fakeMailer{}, testLogger())
	ctx := context.Background()

	if _, err := s.Register(ctx, RegisterInput{Username: "ab", Password: "long enough"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("short username: expected validation error, got %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Username: "valid", Password: "short"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("short password: expected validation error, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	gdb := newTestDB(t)
	s := NewUserService(gdb, &fakeMailer{}, testLogger())
	ctx := context.Background()

	user := seedUser(t, gdb, "tuner")

	email := "new@example.com"
	notify := false
	updated, err := s.UpdateSettings(ctx, user.ID, SettingsInput{Email: &email, EmailNotify: &notify})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.Email != email || updated.EmailNotify {
		t.Errorf("settings not applied: %s %v", updated.Email, updated.EmailNotify)
	}

	// No-op update returns the current state
	same, err := s.UpdateSettings(ctx, user.ID, SettingsInput{})
	if err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if same.Email != email {
		t.Errorf("noop update changed email to %s", same.Email)
	}
}
