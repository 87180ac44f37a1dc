package domain

// Lookup table names. Every status/type code below resolves to a surrogate id
// through the lookup cache.
const (
	TableUserRoles                 = "user_roles"
	TableAuthProviders             = "auth_providers"
	TableEventTypes                = "event_types"
	TableEventModes                = "event_modes"
	TableEventStatuses             = "event_statuses"
	TableRegistrationStatuses      = "registration_statuses"
	TableEventRegistrationStatuses = "event_registration_statuses"
	TablePaymentStatuses           = "payment_statuses"
	TablePaymentGateways           = "payment_gateways"
	TableOTPTypes                  = "otp_types"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Event lifecycle.
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Event registration window.
const (
	RegistrationOpen   = "open"
	RegistrationClosed = "closed"
	RegistrationFull   = "full"
)

// Per-user registration status.
const (
	RegStatusPending   = "pending"
	RegStatusConfirmed = "confirmed"
	RegStatusCancelled = "cancelled"
	RegStatusRefunded  = "refunded"
)

// Payment transaction / registration payment status.
// pending -> completed | failed | expired | cancelled are the live
// transitions; completed -> refunded is an admin action. Everything else is
// terminal.
const (
	PaymentNotRequired = "not_required"
	PaymentPending     = "pending"
	PaymentCompleted   = "completed"
	PaymentFailed      = "failed"
	PaymentCancelled   = "cancelled"
	PaymentExpired     = "expired"
	PaymentRefunded    = "refunded"
)

const (
	GatewayUddoktaPay = "uddoktapay"
)

// OTP purposes.
const (
	OTPTypeVerification   = "verification"
	OTPTypePasswordReset  = "password_reset"
	OTPTypePasswordChange = "password_change"
	OTPTypeTwoFactor      = "2fa"
	OTPTypeLogin          = "login"
)

// TerminalPaymentStatus reports whether a transaction status permits no
// further live transition (refund is a separate admin path off completed).
func TerminalPaymentStatus(code string) bool {
	switch code {
	case PaymentCompleted, PaymentFailed, PaymentExpired, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}
