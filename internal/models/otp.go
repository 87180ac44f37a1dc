package models

import "time"

// OTPCode stores a hashed one-time code. Codes are single-use and swept by
// the cleanup job once they have been expired for a while.
type OTPCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    *uint      `gorm:"index" json:"-"` // nil for pre-signup verification
	Email     string     `gorm:"size:255;not null;index" json:"-"`
	CodeHash  string     `gorm:"size:255;not null" json:"-"`
	TypeID    uint       `gorm:"not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"-"`
	UsedAt    *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`

	Type OTPType `gorm:"foreignKey:TypeID" json:"-"`
}

func (OTPCode) TableName() string { return "otp_codes" }
