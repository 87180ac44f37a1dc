package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentTransaction records one attempt to pay for a registration. A
// transaction leaves pending exactly once; later callbacks must observe the
// terminal state and do nothing.
type PaymentTransaction struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	RegistrationID       uint           `gorm:"not null;index" json:"registration_id"`
	UserID               uint           `gorm:"not null;index" json:"user_id"`
	TransactionID        string         `gorm:"size:64;uniqueIndex;not null" json:"transaction_id"`
	Amount               float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency             string         `gorm:"size:3;default:'BDT'" json:"currency"`
	GatewayID            uint           `gorm:"not null" json:"-"`
	StatusID             uint           `gorm:"not null;index" json:"-"`
	InvoiceID            string         `gorm:"size:100;index" json:"invoice_id,omitempty"`
	PaymentMethod        string         `gorm:"size:50" json:"payment_method,omitempty"`
	SenderNumber         string         `gorm:"size:20" json:"sender_number,omitempty"`
	GatewayTransactionID string         `gorm:"size:100" json:"gateway_transaction_id,omitempty"`
	GatewayResponse      string         `gorm:"type:text" json:"-"`
	ExpiresAt            time.Time      `gorm:"index" json:"expires_at"`
	PaidAt               *time.Time     `json:"paid_at"`
	RefundedAt           *time.Time     `json:"refunded_at"`
	RefundReason         string         `gorm:"size:255" json:"refund_reason,omitempty"`
	RefundedBy           *uint          `json:"-"`
	IPAddress            string         `gorm:"size:45" json:"-"`
	UserAgent            string         `gorm:"size:512" json:"-"`
	VerificationAttempts int            `gorm:"default:0" json:"-"`
	LastVerifiedAt       *time.Time     `json:"-"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`

	Registration EventRegistration `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE" json:"registration,omitempty"`
	User         User              `gorm:"foreignKey:UserID" json:"-"`
	Gateway      PaymentGateway    `gorm:"foreignKey:GatewayID" json:"gateway"`
	Status       PaymentStatus     `gorm:"foreignKey:StatusID" json:"status"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
