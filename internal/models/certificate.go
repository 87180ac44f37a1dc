package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is issued for a confirmed registration once its event
// completes. Refunding the payment revokes it.
type Certificate struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	RegistrationID    uint           `gorm:"not null;uniqueIndex" json:"registration_id"`
	CertificateNumber string         `gorm:"size:50;uniqueIndex;not null" json:"certificate_number"`
	VerificationCode  string         `gorm:"size:64;uniqueIndex;not null" json:"verification_code"`
	IssuedAt          time.Time      `gorm:"not null" json:"issued_at"`
	CreatedAt         time.Time      `json:"created_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Registration EventRegistration `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE" json:"registration,omitempty"`
}

func (Certificate) TableName() string { return "certificates" }
