package services

import (
	"context"
	"errors"
	"time"

	"threadloom/internal/errs"
	"threadloom/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	mailer Mailer
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, mailer Mailer, logger *zap.Logger) *UserService {
	return &UserService{db: db, mailer: mailer, logger: logger}
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if len(in.Username) < 3 || len(in.Username) > 50 {
		return models.User{}, errs.Validation("username must be 3-50 characters")
	}
	if len(in.Password) < 8 {
		return models.User{}, errs.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, errs.Internal(err, "password hash")
	}

	user := models.User{
		Username:    in.Username,
		Password:    string(hash),
		Email:       in.Email,
		EmailNotify: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, errs.Conflict("username %q is taken", in.Username)
		}
		return models.User{}, errs.Internal(err, "user insert")
	}

	// Best-effort, never fails the registration
	if user.Email != "" && s.mailer != nil && s.mailer.Enabled() {
		if err := s.mailer.SendWelcome(user.Email, user.Username); err != nil {
			s.logger.Warn("welcome email failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// Login verifies credentials and flips the presence flag on.
func (s *UserService) Login(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errs.Authorization("invalid username or password")
		}
		return models.User{}, errs.Internal(err, "user lookup")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return models.User{}, errs.Authorization("invalid username or password")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).
		Updates(map[string]interface{}{"is_online": true, "last_seen_at": &now}).Error; err != nil {
		return models.User{}, errs.Internal(err, "presence update")
	}
	user.IsOnline = true
	user.LastSeenAt = &now
	return user, nil
}

// Logout flips the presence flag off and stamps the last-seen time.
func (s *UserService) Logout(ctx context.Context, userID uint) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": false, "last_seen_at": &now}).Error
	if err != nil {
		return errs.Internal(err, "presence update")
	}
	return nil
}

type SettingsInput struct {
	Email       *string `json:"email"`
	EmailNotify *bool   `json:"email_notify"`
}

func (s *UserService) UpdateSettings(ctx context.Context, userID uint, in SettingsInput) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return models.User{}, errs.FromDB(err, "user")
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.EmailNotify != nil {
		updates["email_notify"] = *in.EmailNotify
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return models.User{}, errs.Internal(err, "settings update")
	}
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return models.User{}, errs.Internal(err, "settings readback")
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, id uint) (models.UserView, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.UserView{}, errs.FromDB(err, "user")
	}
	return user.View(), nil
}
