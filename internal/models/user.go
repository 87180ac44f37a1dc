package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"size:100;not null" json:"name"`
	Email            string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Phone            string         `gorm:"size:20" json:"phone"`
	RoleID           uint           `gorm:"not null;index" json:"-"`
	ProviderID       uint           `gorm:"not null" json:"-"`
	GoogleID         *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for local signups (avoids duplicate '' on unique index)
	AvatarURL        string         `gorm:"size:512" json:"avatar_url"`
	EmailVerifiedAt  *time.Time     `json:"email_verified_at"`
	TwoFactorSecret  string         `gorm:"size:255" json:"-"`
	TwoFactorEnabled bool           `gorm:"default:false" json:"two_factor_enabled"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Role     UserRole     `gorm:"foreignKey:RoleID" json:"role"`
	Provider AuthProvider `gorm:"foreignKey:ProviderID" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsVerified() bool { return u.EmailVerifiedAt != nil }
