package service

import (
	"context"
	"fmt"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/models"
	"oriyet/internal/repository"
	"oriyet/pkg/uddoktapay"
)

// In-memory fakes for the store interfaces. State lives in maps; the tx
// runner just invokes the function since the fakes have no transactions to
// manage.

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeLookups struct{}

func (fakeLookups) id(table, code string) (uint, error) {
	// Stable ids derived from position; unknown codes fail like the cache.
	tables := map[string][]string{
		domain.TableUserRoles:                 {domain.RoleUser, domain.RoleAdmin},
		domain.TableAuthProviders:             {domain.ProviderLocal, domain.ProviderGoogle},
		domain.TableEventTypes:                {"workshop", "seminar", "conference", "webinar"},
		domain.TableEventModes:                {"online", "offline", "hybrid"},
		domain.TableEventStatuses:             {domain.EventUpcoming, domain.EventOngoing, domain.EventCompleted, domain.EventCancelled},
		domain.TableRegistrationStatuses:      {domain.RegistrationOpen, domain.RegistrationClosed, domain.RegistrationFull},
		domain.TableEventRegistrationStatuses: {domain.RegStatusPending, domain.RegStatusConfirmed, domain.RegStatusCancelled, domain.RegStatusRefunded},
		domain.TablePaymentStatuses: {domain.PaymentNotRequired, domain.PaymentPending, domain.PaymentCompleted,
			domain.PaymentFailed, domain.PaymentCancelled, domain.PaymentExpired, domain.PaymentRefunded},
		domain.TablePaymentGateways: {domain.GatewayUddoktaPay},
		domain.TableOTPTypes: {domain.OTPTypeVerification, domain.OTPTypePasswordReset,
			domain.OTPTypePasswordChange, domain.OTPTypeTwoFactor, domain.OTPTypeLogin},
	}
	for i, c := range tables[table] {
		if c == code {
			return uint(i + 1), nil
		}
	}
	return 0, domain.LookupError(table, code)
}

func (f fakeLookups) UserRoleID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableUserRoles, code)
}
func (f fakeLookups) AuthProviderID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableAuthProviders, code)
}
func (f fakeLookups) EventTypeID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableEventTypes, code)
}
func (f fakeLookups) EventModeID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableEventModes, code)
}
func (f fakeLookups) EventStatusID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableEventStatuses, code)
}
func (f fakeLookups) RegistrationStatusID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableRegistrationStatuses, code)
}
func (f fakeLookups) EventRegistrationStatusID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableEventRegistrationStatuses, code)
}
func (f fakeLookups) PaymentStatusID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TablePaymentStatuses, code)
}
func (f fakeLookups) PaymentGatewayID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TablePaymentGateways, code)
}
func (f fakeLookups) OTPTypeID(_ context.Context, code string) (uint, error) {
	return f.id(domain.TableOTPTypes, code)
}

type fakeEvents struct {
	byID map[uint]*models.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{byID: map[uint]*models.Event{}}
}

func (f *fakeEvents) add(e *models.Event) *models.Event {
	if e.ID == 0 {
		e.ID = uint(len(f.byID) + 1)
	}
	f.byID[e.ID] = e
	return e
}

func (f *fakeEvents) Create(_ context.Context, e *models.Event) error {
	f.add(e)
	return nil
}

func (f *fakeEvents) Update(_ context.Context, e *models.Event) error {
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeEvents) ByID(_ context.Context, id uint) (*models.Event, error) {
	return f.byID[id], nil
}

func (f *fakeEvents) BySlug(_ context.Context, slug string) (*models.Event, error) {
	for _, e := range f.byID {
		if e.Slug == slug {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEvents) ByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	return f.ByID(ctx, id)
}

func (f *fakeEvents) IncrementParticipants(_ context.Context, id uint) (bool, error) {
	e, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if e.Full() {
		return false, nil
	}
	e.CurrentParticipants++
	return true, nil
}

func (f *fakeEvents) DecrementParticipants(_ context.Context, id uint) error {
	if e, ok := f.byID[id]; ok && e.CurrentParticipants > 0 {
		e.CurrentParticipants--
	}
	return nil
}

func (f *fakeEvents) SetRegistrationStatus(_ context.Context, id uint, code string) error {
	if e, ok := f.byID[id]; ok {
		e.RegistrationStatus.Code = code
	}
	return nil
}

func (f *fakeEvents) ListPublished(_ context.Context, _ repository.EventFilters) ([]models.Event, int64, error) {
	var out []models.Event
	for _, e := range f.byID {
		if e.IsPublished {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeEvents) RollStatuses(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, e := range f.byID {
		switch e.Status.Code {
		case domain.EventUpcoming:
			if !e.StartDate.After(now) {
				e.Status.Code = domain.EventOngoing
				n++
			}
		case domain.EventOngoing:
			if e.EndDate != nil && !e.EndDate.After(now) {
				e.Status.Code = domain.EventCompleted
				n++
			}
		}
	}
	return n, nil
}

type fakeRegs struct {
	byID   map[uint]*models.EventRegistration
	nextID uint
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{byID: map[uint]*models.EventRegistration{}, nextID: 1}
}

func (f *fakeRegs) add(reg *models.EventRegistration) *models.EventRegistration {
	if reg.ID == 0 {
		reg.ID = f.nextID
		f.nextID++
	} else if reg.ID >= f.nextID {
		f.nextID = reg.ID + 1
	}
	f.byID[reg.ID] = reg
	return reg
}

// codeForID reverses the fakeLookups id assignment so created rows carry
// their status codes like the preloading repositories return them.
func codeForID(codes []string, id uint, fallback string) string {
	if id >= 1 && int(id) <= len(codes) {
		return codes[id-1]
	}
	return fallback
}

var (
	regStatusCodes = []string{domain.RegStatusPending, domain.RegStatusConfirmed, domain.RegStatusCancelled, domain.RegStatusRefunded}
	payStatusCodes = []string{domain.PaymentNotRequired, domain.PaymentPending, domain.PaymentCompleted,
		domain.PaymentFailed, domain.PaymentCancelled, domain.PaymentExpired, domain.PaymentRefunded}
)

func (f *fakeRegs) Create(_ context.Context, reg *models.EventRegistration) error {
	if reg.Status.Code == "" {
		reg.Status.Code = codeForID(regStatusCodes, reg.StatusID, domain.RegStatusPending)
	}
	if reg.PaymentStatus.Code == "" {
		reg.PaymentStatus.Code = codeForID(payStatusCodes, reg.PaymentStatusID, domain.PaymentPending)
	}
	f.add(reg)
	return nil
}

func (f *fakeRegs) ByID(_ context.Context, id uint) (*models.EventRegistration, error) {
	return f.byID[id], nil
}

func (f *fakeRegs) byStatus(userID, eventID uint, codes ...string) *models.EventRegistration {
	for _, reg := range f.byID {
		if reg.UserID != userID || reg.EventID != eventID {
			continue
		}
		for _, c := range codes {
			if reg.Status.Code == c {
				return reg
			}
		}
	}
	return nil
}

func (f *fakeRegs) ActiveByUserEvent(_ context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	return f.byStatus(userID, eventID, domain.RegStatusPending, domain.RegStatusConfirmed), nil
}

func (f *fakeRegs) CancelledByUserEvent(_ context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	return f.byStatus(userID, eventID, domain.RegStatusCancelled), nil
}

func (f *fakeRegs) ConfirmedByUserEvent(_ context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	return f.byStatus(userID, eventID, domain.RegStatusConfirmed), nil
}

func (f *fakeRegs) SetStatus(_ context.Context, id uint, statusCode, paymentStatusCode string, updates map[string]interface{}) error {
	reg, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("registration %d not found", id)
	}
	reg.Status.Code = statusCode
	reg.PaymentStatus.Code = paymentStatusCode
	if v, ok := updates["payment_amount"].(float64); ok {
		reg.PaymentAmount = v
	}
	if v, ok := updates["confirmed_at"].(time.Time); ok {
		reg.ConfirmedAt = &v
	}
	if v, ok := updates["cancelled_at"].(time.Time); ok {
		reg.CancelledAt = &v
	}
	if v, ok := updates["cancel_reason"].(string); ok {
		reg.CancelReason = v
	}
	return nil
}

func (f *fakeRegs) Confirm(ctx context.Context, id uint, at time.Time) error {
	return f.SetStatus(ctx, id, domain.RegStatusConfirmed, domain.PaymentCompleted,
		map[string]interface{}{"confirmed_at": at})
}

func (f *fakeRegs) Cancel(ctx context.Context, id uint, reason string, at time.Time) error {
	return f.SetStatus(ctx, id, domain.RegStatusCancelled, domain.PaymentFailed,
		map[string]interface{}{"cancelled_at": at, "cancel_reason": reason})
}

func (f *fakeRegs) Refund(ctx context.Context, id uint, reason string, at time.Time) error {
	return f.SetStatus(ctx, id, domain.RegStatusRefunded, domain.PaymentRefunded,
		map[string]interface{}{"cancelled_at": at, "cancel_reason": reason})
}

func (f *fakeRegs) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeRegs) DeleteIfPending(_ context.Context, id uint) (bool, error) {
	reg, ok := f.byID[id]
	if !ok || reg.Status.Code != domain.RegStatusPending {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakeRegs) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.EventRegistration, int64, error) {
	var out []models.EventRegistration
	for _, reg := range f.byID {
		if reg.UserID == userID {
			out = append(out, *reg)
		}
	}
	return out, int64(len(out)), nil
}

type fakePayments struct {
	byID   map[uint]*models.PaymentTransaction
	nextID uint
}

func newFakePayments() *fakePayments {
	return &fakePayments{byID: map[uint]*models.PaymentTransaction{}, nextID: 1}
}

func (f *fakePayments) add(t *models.PaymentTransaction) *models.PaymentTransaction {
	if t.ID == 0 {
		t.ID = f.nextID
		f.nextID++
	} else if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	f.byID[t.ID] = t
	return t
}

func (f *fakePayments) Create(_ context.Context, t *models.PaymentTransaction) error {
	if t.Status.Code == "" {
		t.Status.Code = codeForID(payStatusCodes, t.StatusID, domain.PaymentPending)
	}
	f.add(t)
	return nil
}

func (f *fakePayments) ByTransactionID(_ context.Context, transactionID string) (*models.PaymentTransaction, error) {
	for _, t := range f.byID {
		if t.TransactionID == transactionID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakePayments) ByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	return f.ByTransactionID(ctx, transactionID)
}

func (f *fakePayments) LatestPendingForRegistration(_ context.Context, registrationID uint) (*models.PaymentTransaction, error) {
	var latest *models.PaymentTransaction
	for _, t := range f.byID {
		if t.RegistrationID != registrationID || t.Status.Code != domain.PaymentPending {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	return latest, nil
}

func (f *fakePayments) Transition(_ context.Context, id uint, fromCode, toCode string, updates map[string]interface{}) (bool, error) {
	t, ok := f.byID[id]
	if !ok || t.Status.Code != fromCode {
		return false, nil
	}
	t.Status.Code = toCode
	if v, ok := updates["invoice_id"].(string); ok {
		t.InvoiceID = v
	}
	if v, ok := updates["payment_method"].(string); ok {
		t.PaymentMethod = v
	}
	if v, ok := updates["sender_number"].(string); ok {
		t.SenderNumber = v
	}
	if v, ok := updates["gateway_transaction_id"].(string); ok {
		t.GatewayTransactionID = v
	}
	if v, ok := updates["gateway_response"].(string); ok {
		t.GatewayResponse = v
	}
	if v, ok := updates["paid_at"].(time.Time); ok {
		t.PaidAt = &v
	}
	if v, ok := updates["refunded_at"].(time.Time); ok {
		t.RefundedAt = &v
	}
	if v, ok := updates["refund_reason"].(string); ok {
		t.RefundReason = v
	}
	if v, ok := updates["refunded_by"].(uint); ok {
		t.RefundedBy = &v
	}
	if v, ok := updates["verification_attempts"].(int); ok {
		t.VerificationAttempts = v
	}
	if v, ok := updates["last_verified_at"].(time.Time); ok {
		t.LastVerifiedAt = &v
	}
	return true, nil
}

func (f *fakePayments) ListDuePending(_ context.Context, cutoff time.Time) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	for _, t := range f.byID {
		if t.Status.Code == domain.PaymentPending && !t.ExpiresAt.After(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID uint, _, _ int) ([]models.PaymentTransaction, int64, error) {
	var out []models.PaymentTransaction
	for _, t := range f.byID {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePayments) List(_ context.Context, _ repository.PaymentFilters) ([]models.PaymentTransaction, int64, error) {
	var out []models.PaymentTransaction
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

type fakeUsers struct {
	byID map[uint]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}}
}

func (f *fakeUsers) add(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = uint(len(f.byID) + 1)
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.add(u)
	return nil
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) ByID(_ context.Context, id uint) (*models.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) ByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	for _, u := range f.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, nil
}

type fakeOTPs struct {
	byID   map[uint]*models.OTPCode
	nextID uint
}

func newFakeOTPs() *fakeOTPs {
	return &fakeOTPs{byID: map[uint]*models.OTPCode{}, nextID: 1}
}

func (f *fakeOTPs) Create(_ context.Context, code *models.OTPCode) error {
	code.ID = f.nextID
	f.nextID++
	f.byID[code.ID] = code
	return nil
}

func (f *fakeOTPs) LatestValid(_ context.Context, email, typeCode string, now time.Time) (*models.OTPCode, error) {
	var latest *models.OTPCode
	for _, c := range f.byID {
		if c.Email != email || c.Type.Code != typeCode || c.UsedAt != nil || !c.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	return latest, nil
}

func (f *fakeOTPs) MarkUsed(_ context.Context, id uint, at time.Time) error {
	if c, ok := f.byID[id]; ok {
		c.UsedAt = &at
	}
	return nil
}

func (f *fakeOTPs) InvalidateForEmail(_ context.Context, email, typeCode string, at time.Time) error {
	for _, c := range f.byID {
		if c.Email == email && c.Type.Code == typeCode && c.UsedAt == nil {
			c.UsedAt = &at
		}
	}
	return nil
}

func (f *fakeOTPs) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range f.byID {
		if c.ExpiresAt.Before(cutoff) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeCerts struct {
	byID   map[uint]*models.Certificate
	nextID uint
}

func newFakeCerts() *fakeCerts {
	return &fakeCerts{byID: map[uint]*models.Certificate{}, nextID: 1}
}

func (f *fakeCerts) Create(_ context.Context, c *models.Certificate) error {
	c.ID = f.nextID
	f.nextID++
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCerts) ByRegistration(_ context.Context, registrationID uint) (*models.Certificate, error) {
	for _, c := range f.byID {
		if c.RegistrationID == registrationID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCerts) ByVerificationCode(_ context.Context, code string) (*models.Certificate, error) {
	for _, c := range f.byID {
		if c.VerificationCode == code {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCerts) ListByUser(_ context.Context, _ uint) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCerts) DeleteByRegistration(_ context.Context, registrationID uint) error {
	for id, c := range f.byID {
		if c.RegistrationID == registrationID {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeGateway struct {
	checkoutResp *uddoktapay.CheckoutResponse
	checkoutErr  error
	verifyResp   *uddoktapay.VerifyResponse
	verifyErr    error

	checkoutCalls int
	verifyCalls   int
	lastCheckout  uddoktapay.CheckoutRequest
}

func (f *fakeGateway) CreateCheckout(_ context.Context, req uddoktapay.CheckoutRequest) (*uddoktapay.CheckoutResponse, error) {
	f.checkoutCalls++
	f.lastCheckout = req
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return f.checkoutResp, nil
}

func (f *fakeGateway) Verify(_ context.Context, _ string) (*uddoktapay.VerifyResponse, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResp, nil
}

type fakeNotifier struct {
	confirmed int
	refunded  int
	regemails int
	otps      []string
}

func (f *fakeNotifier) PaymentConfirmed(_ *models.User, _ *models.Event, _ *models.PaymentTransaction) {
	f.confirmed++
}

func (f *fakeNotifier) PaymentRefunded(_ *models.User, _ *models.Event, _ *models.PaymentTransaction) {
	f.refunded++
}

func (f *fakeNotifier) RegistrationConfirmed(_ *models.User, _ *models.Event, _ *models.EventRegistration) {
	f.regemails++
}

func (f *fakeNotifier) OTP(_, _, code, _ string, _ time.Duration) {
	f.otps = append(f.otps, code)
}
