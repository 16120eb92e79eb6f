// internal/services/auth_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(&models.User{}, &models.PasswordReset{}))

	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Patents: config.PatentConfig{ResetTokenTTL: 60},
		Mail:    config.MailConfig{Enabled: false},
	}
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	suite.db = db
	suite.service = NewAuthService(db, cfg, NewNotificationService(cfg))
}

func (suite *AuthServiceTestSuite) register() *AuthResponse {
	auth, err := suite.service.Register(&RegisterRequest{
		Name:     "Juana Vecina",
		Email:    "juana@example.cl",
		Rut:      "12.345.678-5",
		Password: "Secret123",
	})
	suite.Require().NoError(err)
	return auth
}

func (suite *AuthServiceTestSuite) TestRegisterCreatesContribuyente() {
	auth := suite.register()

	suite.Equal(models.UserRoleContribuyente, auth.User.Role)
	suite.Equal("12345678-5", auth.User.Rut)
	suite.NotEmpty(auth.AccessToken)
	suite.NotEmpty(auth.RefreshToken)

	claims, err := utils.ValidateJWT(auth.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(auth.User.ID, claims.UserID)
	suite.Equal(string(models.UserRoleContribuyente), claims.Role)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsDuplicateEmail() {
	suite.register()

	_, err := suite.service.Register(&RegisterRequest{
		Name:     "Otra Persona",
		Email:    "juana@example.cl",
		Rut:      "11111111-1",
		Password: "Secret123",
	})
	suite.ErrorIs(err, ErrConflict)
}

func (suite *AuthServiceTestSuite) TestRegisterRejectsWeakPassword() {
	_, err := suite.service.Register(&RegisterRequest{
		Name:     "Juana Vecina",
		Email:    "juana@example.cl",
		Rut:      "12345678-5",
		Password: "alllowercase1",
	})
	suite.Error(err)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	suite.register()

	auth, err := suite.service.Login(&LoginRequest{
		Email:    "juana@example.cl",
		Password: "Secret123",
	})
	suite.Require().NoError(err)
	suite.NotEmpty(auth.AccessToken)
	suite.NotNil(auth.User.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	suite.register()

	_, err := suite.service.Login(&LoginRequest{
		Email:    "juana@example.cl",
		Password: "WrongPass1",
	})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginDisabledAccount() {
	auth := suite.register()
	suite.Require().NoError(suite.db.Model(auth.User).Update("is_active", false).Error)

	_, err := suite.service.Login(&LoginRequest{
		Email:    "juana@example.cl",
		Password: "Secret123",
	})
	suite.ErrorIs(err, ErrAccountDisabled)
}

func (suite *AuthServiceTestSuite) TestRefreshToken() {
	auth := suite.register()

	refreshed, err := suite.service.RefreshToken(auth.RefreshToken)
	suite.Require().NoError(err)
	suite.Equal(auth.User.ID, refreshed.User.ID)
	suite.NotEmpty(refreshed.AccessToken)
}

func (suite *AuthServiceTestSuite) TestPasswordResetFlow() {
	suite.register()

	suite.Require().NoError(suite.service.ForgotPassword(&ForgotPasswordRequest{
		Email: "juana@example.cl",
	}))

	var reset models.PasswordReset
	suite.Require().NoError(suite.db.Where("email = ?", "juana@example.cl").First(&reset).Error)
	suite.False(reset.Expired())

	// The stored hash is not usable as a token directly
	err := suite.service.ResetPassword(&ResetPasswordRequest{
		Token:    reset.TokenHash,
		Password: "NewSecret1",
	})
	suite.ErrorIs(err, ErrInvalidResetToken)

	// Unknown emails get the same silent answer
	suite.NoError(suite.service.ForgotPassword(&ForgotPasswordRequest{
		Email: "nadie@example.cl",
	}))
	var count int64
	suite.Require().NoError(suite.db.Model(&models.PasswordReset{}).
		Where("email = ?", "nadie@example.cl").Count(&count).Error)
	suite.EqualValues(0, count)
}

func (suite *AuthServiceTestSuite) TestResetPasswordWithKnownToken() {
	suite.register()

	reset := &models.PasswordReset{
		Email:     "juana@example.cl",
		TokenHash: utils.HashString("known-token"),
		ExpiresAt: timeNowPlusMinutes(30),
	}
	suite.Require().NoError(suite.db.Create(reset).Error)

	suite.Require().NoError(suite.service.ResetPassword(&ResetPasswordRequest{
		Token:    "known-token",
		Password: "NewSecret1",
	}))

	// Old password no longer works, new one does
	_, err := suite.service.Login(&LoginRequest{Email: "juana@example.cl", Password: "Secret123"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.service.Login(&LoginRequest{Email: "juana@example.cl", Password: "NewSecret1"})
	suite.NoError(err)

	// The token is consumed
	err = suite.service.ResetPassword(&ResetPasswordRequest{
		Token:    "known-token",
		Password: "OtherSecret1",
	})
	suite.ErrorIs(err, ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestResetPasswordExpiredToken() {
	suite.register()

	reset := &models.PasswordReset{
		Email:     "juana@example.cl",
		TokenHash: utils.HashString("stale-token"),
		ExpiresAt: timeNowPlusMinutes(-1),
	}
	suite.Require().NoError(suite.db.Create(reset).Error)

	err := suite.service.ResetPassword(&ResetPasswordRequest{
		Token:    "stale-token",
		Password: "NewSecret1",
	})
	suite.ErrorIs(err, ErrInvalidResetToken)
}

func timeNowPlusMinutes(minutes int) time.Time {
	return time.Now().Add(time.Duration(minutes) * time.Minute)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
