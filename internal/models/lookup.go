package models

// Lookup is the shape shared by every code->id lookup table (user_roles,
// payment_statuses, ...). Each table gets its own named type so GORM
// migrates them separately.
type Lookup struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Code  string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Label string `gorm:"size:100;not null" json:"label"`
}

type UserRole struct{ Lookup }

func (UserRole) TableName() string { return "user_roles" }

type AuthProvider struct{ Lookup }

func (AuthProvider) TableName() string { return "auth_providers" }

type EventType struct{ Lookup }

func (EventType) TableName() string { return "event_types" }

type EventMode struct{ Lookup }

func (EventMode) TableName() string { return "event_modes" }

type EventStatus struct{ Lookup }

func (EventStatus) TableName() string { return "event_statuses" }

type RegistrationStatus struct{ Lookup }

func (RegistrationStatus) TableName() string { return "registration_statuses" }

type EventRegistrationStatus struct{ Lookup }

func (EventRegistrationStatus) TableName() string { return "event_registration_statuses" }

type PaymentStatus struct{ Lookup }

func (PaymentStatus) TableName() string { return "payment_statuses" }

type PaymentGateway struct{ Lookup }

func (PaymentGateway) TableName() string { return "payment_gateways" }

type OTPType struct{ Lookup }

func (OTPType) TableName() string { return "otp_types" }
