// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name            string     `json:"name" gorm:"size:255;not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string     `json:"-" gorm:"size:255;not null"`
	Rut             string     `json:"rut" gorm:"size:12;index"`
	Role            UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'contribuyente'"`
	Department      string     `json:"department,omitempty" gorm:"size:50;index"`
	IsActive        bool       `json:"is_active" gorm:"default:true"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// Relationships
	PatentRequests []PatentRequest `json:"patent_requests,omitempty" gorm:"foreignKey:UserID"`
	Reviews        []PatentRequest `json:"reviews,omitempty" gorm:"foreignKey:ReviewedBy"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsFuncionarioOf(department string) bool {
	return u.Role == UserRoleFuncionario && u.Department == department
}

// PasswordReset stores a hashed recovery token; the plain token only travels
// in the mail link.
type PasswordReset struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:255;not null;index"`
	TokenHash string    `json:"-" gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *PasswordReset) Expired() bool {
	return time.Now().After(r.ExpiresAt)
}
