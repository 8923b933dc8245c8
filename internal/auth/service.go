package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/tasks"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInactiveUser        = errors.New("user is inactive")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrRoleNotAllowed      = errors.New("role cannot be self-assigned")
)

const resetTokenTTL = time.Hour

type ServiceConfig struct {
	// FrontendURL is the base of the reset link sent by e-mail.
	FrontendURL string
	// ExposeResetToken returns the raw reset token to the caller. Development only.
	ExposeResetToken bool
	Queue            tasks.Enqueuer
	Logger           *slog.Logger
}

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	cfg    ServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, jwt *JWTService, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, jwt: jwt, cfg: cfg, logger: logger, now: time.Now}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Role      models.Role
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// ResetTicket is only populated when ExposeResetToken is set.
type ResetTicket struct {
	Token string `json:"resetToken"`
	URL   string `json:"resetUrl"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	role := input.Role
	if role == "" {
		role = models.RoleAgent
	}
	if role != models.RoleAgent && role != models.RoleUser {
		return nil, ErrRoleNotAllowed
	}

	email := normalizeEmail(input.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "email", user.Email, "role", user.Role)

	return s.issue(&user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive() {
		return nil, ErrInactiveUser
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	user.LastLoginAt = &now

	s.logger.Info("user logged in", "email", user.Email)

	return s.issue(&user)
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}
	if !user.IsActive() {
		return "", ErrInvalidRefreshToken
	}

	return s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
}

// ForgotPassword never reveals whether the e-mail is registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*ResetTicket, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil, nil
		}
		return nil, err
	}

	raw, digest, err := newResetToken()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(resetTokenTTL)

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"reset_password_token":  digest,
		"reset_password_expire": expires,
	}).Error; err != nil {
		return nil, fmt.Errorf("storing reset token: %w", err)
	}

	resetURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + raw

	if s.cfg.Queue != nil {
		task, err := tasks.NewPasswordResetEmailTask(tasks.PasswordResetEmailPayload{
			UserID:   user.ID,
			Email:    user.Email,
			Name:     user.FullName(),
			ResetURL: resetURL,
		})
		if err != nil {
			return nil, err
		}
		if _, err := s.cfg.Queue.EnqueueContext(ctx, task); err != nil {
			// The token is stored; the user can simply ask again.
			s.logger.Error("failed to enqueue reset email", "email", user.Email, "error", err)
		}
	}

	s.logger.Info("password reset requested", "email", user.Email)

	if !s.cfg.ExposeResetToken {
		return nil, nil
	}
	return &ResetTicket{Token: raw, URL: resetURL}, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", hashResetToken(token), s.now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":         hash,
		"reset_password_token":  "",
		"reset_password_expire": nil,
	}).Error; err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}

	s.logger.Info("password reset", "email", user.Email)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("changing password: %w", err)
	}

	s.logger.Info("password changed", "email", user.Email)
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) issue(user *models.User) (*AuthResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
