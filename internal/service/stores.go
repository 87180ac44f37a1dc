package service

import (
	"context"
	"time"

	"oriyet/internal/models"
	"oriyet/internal/repository"
	"oriyet/pkg/uddoktapay"
)

// TxRunner wraps a unit of work in one database transaction. The repositories
// pick the ambient transaction up from the context.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Lookups resolves lookup-table codes to surrogate ids.
type Lookups interface {
	UserRoleID(ctx context.Context, code string) (uint, error)
	AuthProviderID(ctx context.Context, code string) (uint, error)
	EventTypeID(ctx context.Context, code string) (uint, error)
	EventModeID(ctx context.Context, code string) (uint, error)
	EventStatusID(ctx context.Context, code string) (uint, error)
	RegistrationStatusID(ctx context.Context, code string) (uint, error)
	EventRegistrationStatusID(ctx context.Context, code string) (uint, error)
	PaymentStatusID(ctx context.Context, code string) (uint, error)
	PaymentGatewayID(ctx context.Context, code string) (uint, error)
	OTPTypeID(ctx context.Context, code string) (uint, error)
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uint) error
	ByID(ctx context.Context, id uint) (*models.Event, error)
	BySlug(ctx context.Context, slug string) (*models.Event, error)
	ByIDForUpdate(ctx context.Context, id uint) (*models.Event, error)
	IncrementParticipants(ctx context.Context, id uint) (bool, error)
	DecrementParticipants(ctx context.Context, id uint) error
	SetRegistrationStatus(ctx context.Context, id uint, code string) error
	ListPublished(ctx context.Context, f repository.EventFilters) ([]models.Event, int64, error)
	RollStatuses(ctx context.Context, now time.Time) (int64, error)
}

type RegistrationStore interface {
	Create(ctx context.Context, reg *models.EventRegistration) error
	ByID(ctx context.Context, id uint) (*models.EventRegistration, error)
	ActiveByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error)
	CancelledByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error)
	ConfirmedByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error)
	SetStatus(ctx context.Context, id uint, statusCode, paymentStatusCode string, updates map[string]interface{}) error
	Confirm(ctx context.Context, id uint, at time.Time) error
	Cancel(ctx context.Context, id uint, reason string, at time.Time) error
	Refund(ctx context.Context, id uint, reason string, at time.Time) error
	Delete(ctx context.Context, id uint) error
	DeleteIfPending(ctx context.Context, id uint) (bool, error)
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.EventRegistration, int64, error)
}

type PaymentStore interface {
	Create(ctx context.Context, t *models.PaymentTransaction) error
	ByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	ByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	LatestPendingForRegistration(ctx context.Context, registrationID uint) (*models.PaymentTransaction, error)
	Transition(ctx context.Context, id uint, fromCode, toCode string, updates map[string]interface{}) (bool, error)
	ListDuePending(ctx context.Context, cutoff time.Time) ([]models.PaymentTransaction, error)
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.PaymentTransaction, int64, error)
	List(ctx context.Context, f repository.PaymentFilters) ([]models.PaymentTransaction, int64, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByGoogleID(ctx context.Context, googleID string) (*models.User, error)
}

type OTPStore interface {
	Create(ctx context.Context, code *models.OTPCode) error
	LatestValid(ctx context.Context, email, typeCode string, now time.Time) (*models.OTPCode, error)
	MarkUsed(ctx context.Context, id uint, at time.Time) error
	InvalidateForEmail(ctx context.Context, email, typeCode string, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CertificateStore interface {
	Create(ctx context.Context, c *models.Certificate) error
	ByRegistration(ctx context.Context, registrationID uint) (*models.Certificate, error)
	ByVerificationCode(ctx context.Context, code string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Certificate, error)
	DeleteByRegistration(ctx context.Context, registrationID uint) error
}

// Gateway is the payment provider surface the payment service depends on.
type Gateway interface {
	CreateCheckout(ctx context.Context, req uddoktapay.CheckoutRequest) (*uddoktapay.CheckoutResponse, error)
	Verify(ctx context.Context, invoiceID string) (*uddoktapay.VerifyResponse, error)
}

// Notifier sends transactional email. Implementations must not block the
// caller on SMTP round trips.
type Notifier interface {
	PaymentConfirmed(user *models.User, event *models.Event, txn *models.PaymentTransaction)
	PaymentRefunded(user *models.User, event *models.Event, txn *models.PaymentTransaction)
	RegistrationConfirmed(user *models.User, event *models.Event, reg *models.EventRegistration)
	OTP(email, name, code, purpose string, expiry time.Duration)
}
