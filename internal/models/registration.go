package models

import (
	"time"

	"gorm.io/gorm"
)

// EventRegistration is one user's claim on one event seat.
type EventRegistration struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	EventID            uint           `gorm:"not null;index:idx_registrations_event_user" json:"event_id"`
	UserID             uint           `gorm:"not null;index:idx_registrations_event_user" json:"user_id"`
	RegistrationNumber string         `gorm:"size:50;uniqueIndex;not null" json:"registration_number"`
	StatusID           uint           `gorm:"not null;index" json:"-"`
	PaymentStatusID    uint           `gorm:"not null" json:"-"`
	PaymentAmount      float64        `gorm:"type:decimal(10,2);default:0" json:"payment_amount"`
	ConfirmedAt        *time.Time     `json:"confirmed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at"`
	CancelReason       string         `gorm:"size:255" json:"cancel_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Event         Event                   `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User          User                    `gorm:"foreignKey:UserID" json:"-"`
	Status        EventRegistrationStatus `gorm:"foreignKey:StatusID" json:"status"`
	PaymentStatus PaymentStatus           `gorm:"foreignKey:PaymentStatusID" json:"payment_status"`
}

func (EventRegistration) TableName() string { return "event_registrations" }
