package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event/payment core. Handlers map these onto HTTP
// statuses; services wrap them with context via fmt.Errorf and %w.
var (
	// Not found.
	ErrEventNotFound        = errors.New("event not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrCertificateNotFound  = errors.New("certificate not found")

	// Validation.
	ErrEventNotPayable    = errors.New("free event: use the free registration endpoint")
	ErrEventNotFree       = errors.New("paid event: use the payment endpoint")
	ErrInvalidAmount      = errors.New("invalid payment amount")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrRegistrationClosed = errors.New("registration is closed for this event")
	ErrDeadlinePassed     = errors.New("registration deadline has passed")
	ErrEventNotCompleted  = errors.New("certificates are issued after the event completes")
	ErrInvalidFilter      = errors.New("unknown filter value")

	// Auth.
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")

	// Conflict.
	ErrCapacityExceeded      = errors.New("event is full")
	ErrAlreadyRegistered     = errors.New("already registered for this event")
	ErrTransactionNotPending = errors.New("transaction is no longer pending")
	ErrNotRefundable         = errors.New("only completed payments can be refunded")

	// Gateway.
	ErrAmountMismatch      = errors.New("payment amount mismatch")
	ErrUserMismatch        = errors.New("payment does not belong to this user")
	ErrPaymentMetadata     = errors.New("invalid payment metadata")
	ErrUnauthorizedWebhook = errors.New("unauthorized webhook request")

	// Configuration. Fatal: the lookup tables are missing a seed row.
	ErrUnknownLookupCode = errors.New("unknown lookup code")
)

// LookupError wraps ErrUnknownLookupCode with the offending table and code.
func LookupError(table, code string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownLookupCode, table, code)
}
