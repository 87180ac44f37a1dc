package models

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Title                string         `gorm:"size:255;not null" json:"title"`
	Slug                 string         `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Description          string         `gorm:"type:text" json:"description"`
	CoverURL             string         `gorm:"size:512" json:"cover_url"`
	TypeID               uint           `gorm:"not null" json:"-"`
	ModeID               uint           `gorm:"not null" json:"-"`
	StatusID             uint           `gorm:"not null;index" json:"-"`
	RegistrationStatusID uint           `gorm:"not null" json:"-"`
	Price                float64        `gorm:"type:decimal(10,2);default:0" json:"price"`
	Currency             string         `gorm:"size:3;default:'BDT'" json:"currency"`
	MaxParticipants      int            `gorm:"default:0" json:"max_participants"` // 0 = unlimited
	CurrentParticipants  int            `gorm:"default:0" json:"current_participants"`
	StartDate            time.Time      `gorm:"not null;index" json:"start_date"`
	EndDate              *time.Time     `json:"end_date"`
	RegistrationDeadline *time.Time     `json:"registration_deadline"`
	OnlineLink           string         `gorm:"size:512" json:"online_link,omitempty"`
	OnlinePlatform       string         `gorm:"size:50" json:"online_platform,omitempty"`
	IsPublished          bool           `gorm:"default:false;index" json:"is_published"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`

	Type               EventType          `gorm:"foreignKey:TypeID" json:"type"`
	Mode               EventMode          `gorm:"foreignKey:ModeID" json:"mode"`
	Status             EventStatus        `gorm:"foreignKey:StatusID" json:"status"`
	RegistrationStatus RegistrationStatus `gorm:"foreignKey:RegistrationStatusID" json:"registration_status"`
}

func (Event) TableName() string { return "events" }

func (e *Event) IsFree() bool { return e.Price <= 0 }

// Full reports whether the event has a participant cap and has reached it.
func (e *Event) Full() bool {
	return e.MaxParticipants > 0 && e.CurrentParticipants >= e.MaxParticipants
}
