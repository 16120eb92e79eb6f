// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetToken  = errors.New("reset token is invalid or expired")
)

type AuthService struct {
	db            *gorm.DB
	config        *config.Config
	notifications *NotificationService
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Rut      string `json:"rut" validate:"required,rut"`
	Password string `json:"password" validate:"required,strong_password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,strong_password"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // seconds
}

func NewAuthService(db *gorm.DB, config *config.Config, notifications *NotificationService) *AuthService {
	return &AuthService{
		db:            db,
		config:        config,
		notifications: notifications,
	}
}

// Register creates a contribuyente account. Funcionario and admin accounts
// are provisioned by an administrator, never through this endpoint.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Rut:      utils.FormatRut(req.Rut),
		Role:     models.UserRoleContribuyente,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, req.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to record login time")
	}
	user.LastLoginAt = &now

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	userID, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issueTokens(user)
}

func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// ForgotPassword issues a reset token and mails the link. It answers the
// same way whether or not the email exists, to avoid account probing.
func (s *AuthService) ForgotPassword(req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("email", req.Email).Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &models.PasswordReset{
		Email:     user.Email,
		TokenHash: utils.HashString(token),
		ExpiresAt: time.Now().Add(time.Duration(s.config.Patents.ResetTokenTTL) * time.Minute),
	}

	// A new request invalidates previous tokens for this address.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", user.Email).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	go func() {
		if err := s.notifications.SendPasswordResetEmail(&user, token); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
		}
	}()

	return nil
}

func (s *AuthService) ResetPassword(req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var reset models.PasswordReset
	if err := s.db.Where("token_hash = ?", utils.HashString(req.Token)).First(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to fetch reset token: %w", err)
	}

	if reset.Expired() {
		return ErrInvalidResetToken
	}

	var user models.User
	if err := s.db.Where("email = ?", reset.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := user.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Where("email = ?", reset.Email).Delete(&models.PasswordReset{}).Error; err != nil {
			return fmt.Errorf("failed to consume reset token: %w", err)
		}
		return nil
	})
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Name, string(user.Role), user.Department, s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.config.JWT.AccessTokenTTL * 3600,
	}, nil
}
