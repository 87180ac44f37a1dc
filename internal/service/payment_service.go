package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"oriyet/config"
	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"
	"oriyet/internal/repository"
	"oriyet/pkg/uddoktapay"

	"github.com/google/uuid"
)

// amountEpsilon tolerates decimal rounding between our records and the
// gateway's string amounts.
const amountEpsilon = 0.01

// PaymentService owns the paid-registration flow: checkout initiation,
// gateway verification, webhook settlement, cancellation, refunds and the
// expiry sweep. The gateway is the single source of truth for payment state;
// frontend callbacks are never trusted.
type PaymentService struct {
	tx       TxRunner
	events   EventStore
	regs     RegistrationStore
	payments PaymentStore
	certs    CertificateStore
	users    UserStore
	lookups  Lookups
	gateway  Gateway
	notifier Notifier
	clock    clock.Clock
	cfg      *config.Config
}

func NewPaymentService(
	tx TxRunner,
	events EventStore,
	regs RegistrationStore,
	payments PaymentStore,
	certs CertificateStore,
	users UserStore,
	lookups Lookups,
	gateway Gateway,
	notifier Notifier,
	clk clock.Clock,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		tx:       tx,
		events:   events,
		regs:     regs,
		payments: payments,
		certs:    certs,
		users:    users,
		lookups:  lookups,
		gateway:  gateway,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
	}
}

type InitiatePaymentInput struct {
	EventID   uint
	Amount    float64 // 0 means "charge the event price"
	IPAddress string
	UserAgent string
}

type InitiateResult struct {
	PaymentURL     string    `json:"payment_url"`
	TransactionID  string    `json:"transaction_id"`
	RegistrationID uint      `json:"registration_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// InitiatePayment creates a pending registration plus transaction and opens a
// gateway checkout session. A previous pending transaction for the same
// registration is auto-expired so the user can retry immediately; a cancelled
// registration is removed for a fresh start.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID uint, in InitiatePaymentInput) (*InitiateResult, error) {
	event, err := s.events.ByID(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil || !event.IsPublished {
		return nil, domain.ErrEventNotFound
	}
	if event.IsFree() {
		return nil, domain.ErrEventNotPayable
	}
	if c := event.Status.Code; c == domain.EventCompleted || c == domain.EventCancelled {
		return nil, fmt.Errorf("event is %s: %w", c, domain.ErrRegistrationClosed)
	}
	if event.RegistrationStatus.Code != domain.RegistrationOpen {
		return nil, domain.ErrRegistrationClosed
	}
	now := s.clock.Now()
	if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
		return nil, domain.ErrDeadlinePassed
	}
	if event.Full() {
		return nil, domain.ErrCapacityExceeded
	}

	amount := in.Amount
	if amount == 0 {
		amount = event.Price
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	// Price-tamper guard: the client may echo the amount back but never set it.
	if math.Abs(amount-event.Price) > amountEpsilon {
		return nil, domain.ErrAmountMismatch
	}

	existing, err := s.regs.ActiveByUserEvent(ctx, userID, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if existing != nil && existing.Status.Code == domain.RegStatusConfirmed {
		return nil, domain.ErrAlreadyRegistered
	}
	if existing != nil {
		// Expire any still-pending transaction so a retry is possible now
		// instead of after the timeout window.
		stale, err := s.payments.LatestPendingForRegistration(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("check pending transaction: %w", err)
		}
		if stale != nil {
			if _, err := s.payments.Transition(ctx, stale.ID, domain.PaymentPending, domain.PaymentExpired, nil); err != nil {
				return nil, fmt.Errorf("expire stale transaction: %w", err)
			}
		}
	}

	cancelled, err := s.regs.CancelledByUserEvent(ctx, userID, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("check cancelled registration: %w", err)
	}
	if cancelled != nil {
		if err := s.regs.Delete(ctx, cancelled.ID); err != nil {
			return nil, fmt.Errorf("remove cancelled registration: %w", err)
		}
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	transactionID := generateReference("TXN", now)
	expiresAt := now.Add(s.cfg.Payment.PendingExpiry)

	var registrationID uint
	var txnID uint
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if existing != nil {
			registrationID = existing.ID
			if err := s.regs.SetStatus(ctx, existing.ID, domain.RegStatusPending, domain.PaymentPending,
				map[string]interface{}{"payment_amount": amount}); err != nil {
				return err
			}
		} else {
			statusID, err := s.lookups.EventRegistrationStatusID(ctx, domain.RegStatusPending)
			if err != nil {
				return err
			}
			paymentStatusID, err := s.lookups.PaymentStatusID(ctx, domain.PaymentPending)
			if err != nil {
				return err
			}
			reg := &models.EventRegistration{
				EventID:            in.EventID,
				UserID:             userID,
				RegistrationNumber: generateReference("REG", now),
				StatusID:           statusID,
				PaymentStatusID:    paymentStatusID,
				PaymentAmount:      amount,
			}
			if err := s.regs.Create(ctx, reg); err != nil {
				return err
			}
			registrationID = reg.ID
		}

		gatewayID, err := s.lookups.PaymentGatewayID(ctx, domain.GatewayUddoktaPay)
		if err != nil {
			return err
		}
		pendingID, err := s.lookups.PaymentStatusID(ctx, domain.PaymentPending)
		if err != nil {
			return err
		}
		txn := &models.PaymentTransaction{
			RegistrationID: registrationID,
			UserID:         userID,
			TransactionID:  transactionID,
			Amount:         amount,
			Currency:       event.Currency,
			GatewayID:      gatewayID,
			StatusID:       pendingID,
			ExpiresAt:      expiresAt,
			IPAddress:      in.IPAddress,
			UserAgent:      in.UserAgent,
		}
		if err := s.payments.Create(ctx, txn); err != nil {
			return err
		}
		txnID = txn.ID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create pending registration: %w", err)
	}

	log.Printf("[PAYMENT] initiating transaction=%s user=%d event=%d amount=%.2f", transactionID, userID, in.EventID, amount)

	checkout, err := s.gateway.CreateCheckout(ctx, uddoktapay.CheckoutRequest{
		FullName: user.Name,
		Email:    user.Email,
		Amount:   fmt.Sprintf("%.2f", amount),
		Metadata: uddoktapay.Metadata{
			UserID:         strconv.FormatUint(uint64(userID), 10),
			EventID:        strconv.FormatUint(uint64(in.EventID), 10),
			RegistrationID: strconv.FormatUint(uint64(registrationID), 10),
			TransactionID:  transactionID,
		},
		RedirectURL: s.cfg.FrontendURL + "/payment/success",
		CancelURL:   s.cfg.FrontendURL + "/payment/cancel?transaction_id=" + transactionID,
		WebhookURL:  s.cfg.BackendURL + "/api/v1/payments/webhook",
	})
	if err != nil {
		log.Printf("[PAYMENT] gateway error transaction=%s: %v", transactionID, err)
		if _, ferr := s.payments.Transition(ctx, txnID, domain.PaymentPending, domain.PaymentFailed, nil); ferr != nil {
			log.Printf("[PAYMENT] mark failed transaction=%s: %v", transactionID, ferr)
		}
		return nil, err
	}

	return &InitiateResult{
		PaymentURL:     checkout.PaymentURL,
		TransactionID:  transactionID,
		RegistrationID: registrationID,
		Amount:         amount,
		Currency:       event.Currency,
		ExpiresAt:      expiresAt,
	}, nil
}

// VerifyResult is the outcome of a verification or webhook settlement.
type VerifyResult struct {
	Success            bool   `json:"success"`
	Status             string `json:"status"`
	Message            string `json:"message"`
	AlreadyProcessed   bool   `json:"already_processed,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	EventTitle         string `json:"event_title,omitempty"`
}

// VerifyPayment asks the gateway for the authoritative state of an invoice
// and settles the transaction. Safe to call any number of times: the first
// successful settlement wins and later calls observe the terminal state.
// userID zero skips the ownership check (webhook and admin paths).
func (s *PaymentService) VerifyPayment(ctx context.Context, invoiceID string, userID uint) (*VerifyResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, fmt.Errorf("invoice id is required: %w", domain.ErrPaymentMetadata)
	}

	verified, err := s.gateway.Verify(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("verify with gateway: %w", err)
	}
	log.Printf("[VERIFY] invoice=%s gateway status=%s", invoiceID, verified.Status)

	if verified.Status == uddoktapay.StatusPending {
		return &VerifyResult{
			Success: false,
			Status:  uddoktapay.StatusPending,
			Message: "Payment is still being processed. Please try again shortly.",
		}, nil
	}

	if verified.Status != uddoktapay.StatusCompleted {
		// Remove the never-paid registration so the seat claim disappears.
		if regID := parseID(verified.Metadata.RegistrationID); regID != 0 {
			if _, err := s.regs.DeleteIfPending(ctx, regID); err != nil {
				log.Printf("[VERIFY] cleanup registration=%d: %v", regID, err)
			}
		}
		return &VerifyResult{
			Success: false,
			Status:  "FAILED",
			Message: "Payment failed or was cancelled. Please try again.",
		}, nil
	}

	return s.settle(ctx, verified, userID)
}

// settle confirms a gateway-completed payment: transaction to completed,
// registration confirmed, participant count bumped. All inside one DB
// transaction with the payment row locked, so a concurrent webhook and user
// verification cannot both settle.
func (s *PaymentService) settle(ctx context.Context, verified *uddoktapay.VerifyResponse, userID uint) (*VerifyResult, error) {
	md := verified.Metadata
	if md.TransactionID == "" || md.RegistrationID == "" {
		return nil, domain.ErrPaymentMetadata
	}
	if userID != 0 && md.UserID != strconv.FormatUint(uint64(userID), 10) {
		return nil, domain.ErrUserMismatch
	}

	now := s.clock.Now()
	var result *VerifyResult
	var capacityRefund bool

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		txn, err := s.payments.ByTransactionIDForUpdate(ctx, md.TransactionID)
		if err != nil {
			return err
		}
		if txn == nil {
			return domain.ErrTransactionNotFound
		}

		switch code := txn.Status.Code; {
		case code == domain.PaymentCompleted:
			reg, err := s.regs.ByID(ctx, txn.RegistrationID)
			if err != nil {
				return err
			}
			result = &VerifyResult{
				Success:          true,
				Status:           uddoktapay.StatusCompleted,
				Message:          "Payment already verified",
				AlreadyProcessed: true,
			}
			if reg != nil {
				result.RegistrationNumber = reg.RegistrationNumber
				result.EventTitle = reg.Event.Title
			}
			return nil
		case domain.TerminalPaymentStatus(code):
			return fmt.Errorf("transaction %s is %s: %w", txn.TransactionID, code, domain.ErrTransactionNotPending)
		}

		received, err := strconv.ParseFloat(verified.Amount, 64)
		if err != nil {
			return fmt.Errorf("gateway amount %q: %w", verified.Amount, domain.ErrPaymentMetadata)
		}
		if math.Abs(txn.Amount-received) > amountEpsilon {
			return fmt.Errorf("expected %.2f got %.2f: %w", txn.Amount, received, domain.ErrAmountMismatch)
		}

		reg, err := s.regs.ByID(ctx, txn.RegistrationID)
		if err != nil {
			return err
		}
		if reg == nil {
			return domain.ErrRegistrationNotFound
		}

		seated, err := s.events.IncrementParticipants(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if !seated {
			// The money arrived but the seats ran out. Keep the refund
			// marking committed; the conflict is reported after commit.
			if _, err := s.payments.Transition(ctx, txn.ID, domain.PaymentPending, domain.PaymentRefunded,
				map[string]interface{}{
					"refunded_at":   now,
					"refund_reason": "Event capacity reached after payment",
				}); err != nil {
				return err
			}
			if err := s.regs.Cancel(ctx, reg.ID, "Event capacity reached after payment", now); err != nil {
				return err
			}
			capacityRefund = true
			return nil
		}

		raw, _ := json.Marshal(verified)
		moved, err := s.payments.Transition(ctx, txn.ID, domain.PaymentPending, domain.PaymentCompleted,
			map[string]interface{}{
				"invoice_id":             verified.InvoiceID,
				"payment_method":         verified.PaymentMethod,
				"sender_number":          verified.SenderNumber,
				"gateway_transaction_id": verified.TransactionID,
				"gateway_response":       string(raw),
				"paid_at":                now,
				"verification_attempts":  txn.VerificationAttempts + 1,
				"last_verified_at":       now,
			})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("transaction %s: %w", txn.TransactionID, domain.ErrTransactionNotPending)
		}

		if err := s.regs.Confirm(ctx, reg.ID, now); err != nil {
			return err
		}

		event, err := s.events.ByIDForUpdate(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if event != nil && event.Full() {
			if err := s.events.SetRegistrationStatus(ctx, event.ID, domain.RegistrationFull); err != nil {
				return err
			}
		}

		result = &VerifyResult{
			Success:            true,
			Status:             uddoktapay.StatusCompleted,
			Message:            "Payment verified and registration confirmed",
			RegistrationNumber: reg.RegistrationNumber,
			EventTitle:         reg.Event.Title,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if capacityRefund {
		return nil, fmt.Errorf("payment will be refunded: %w", domain.ErrCapacityExceeded)
	}

	if result.Success && !result.AlreadyProcessed {
		log.Printf("[VERIFY] settled transaction=%s", md.TransactionID)
		s.notifyConfirmed(ctx, md.TransactionID)
	}
	return result, nil
}

func (s *PaymentService) notifyConfirmed(ctx context.Context, transactionID string) {
	txn, err := s.payments.ByTransactionID(ctx, transactionID)
	if err != nil || txn == nil {
		log.Printf("[VERIFY] load for notification transaction=%s: %v", transactionID, err)
		return
	}
	user := &txn.Registration.User
	event := &txn.Registration.Event
	s.notifier.PaymentConfirmed(user, event, txn)
	s.notifier.RegistrationConfirmed(user, event, &txn.Registration)
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	Processed bool   `json:"processed"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message"`
}

// HandleWebhook settles a gateway callback. The shared API key authenticates
// the sender; the payload carries the same shape as a verify response.
// Unknown or already-settled transactions are acknowledged without action so
// the gateway stops retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload *uddoktapay.VerifyResponse, apiKey, ip string) (*WebhookResult, error) {
	if apiKey == "" || apiKey != s.cfg.UddoktaPay.APIKey {
		log.Printf("[WEBHOOK] unauthorized request from %s", ip)
		return nil, domain.ErrUnauthorizedWebhook
	}
	if payload.Metadata.TransactionID == "" {
		return nil, domain.ErrPaymentMetadata
	}
	log.Printf("[WEBHOOK] received transaction=%s status=%s", payload.Metadata.TransactionID, payload.Status)

	if payload.Status != uddoktapay.StatusCompleted {
		return s.webhookFail(ctx, payload)
	}

	result, err := s.settle(ctx, payload, 0)
	switch {
	case err == nil:
		if result.AlreadyProcessed {
			return &WebhookResult{Processed: false, Message: "Already processed"}, nil
		}
		return &WebhookResult{Processed: true, Status: domain.PaymentCompleted, Message: "Webhook processed"}, nil
	case isAcknowledgeable(err):
		// Terminal-state races and unknown transactions are not webhook
		// errors; a retry would change nothing.
		log.Printf("[WEBHOOK] not processed transaction=%s: %v", payload.Metadata.TransactionID, err)
		return &WebhookResult{Processed: false, Message: "Not processed"}, nil
	default:
		return nil, err
	}
}

func (s *PaymentService) webhookFail(ctx context.Context, payload *uddoktapay.VerifyResponse) (*WebhookResult, error) {
	txn, err := s.payments.ByTransactionID(ctx, payload.Metadata.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return &WebhookResult{Processed: false, Message: "Transaction not found"}, nil
	}
	raw, _ := json.Marshal(payload)
	moved, err := s.payments.Transition(ctx, txn.ID, domain.PaymentPending, domain.PaymentFailed,
		map[string]interface{}{
			"invoice_id":             payload.InvoiceID,
			"payment_method":         payload.PaymentMethod,
			"sender_number":          payload.SenderNumber,
			"gateway_transaction_id": payload.TransactionID,
			"gateway_response":       string(raw),
		})
	if err != nil {
		return nil, err
	}
	if !moved {
		return &WebhookResult{Processed: false, Message: "Already processed"}, nil
	}
	log.Printf("[WEBHOOK] transaction=%s marked failed", txn.TransactionID)
	return &WebhookResult{Processed: true, Status: domain.PaymentFailed, Message: "Webhook processed"}, nil
}

func isAcknowledgeable(err error) bool {
	return errors.Is(err, domain.ErrTransactionNotFound) || errors.Is(err, domain.ErrTransactionNotPending)
}

// CancelPayment voids the caller's own pending transaction and cancels the
// linked registration.
func (s *PaymentService) CancelPayment(ctx context.Context, transactionID string, userID uint) error {
	txn, err := s.payments.ByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn == nil || txn.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	if txn.Status.Code != domain.PaymentPending {
		return fmt.Errorf("transaction is %s: %w", txn.Status.Code, domain.ErrTransactionNotPending)
	}

	now := s.clock.Now()
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		moved, err := s.payments.Transition(ctx, txn.ID, domain.PaymentPending, domain.PaymentCancelled, nil)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("transaction %s: %w", transactionID, domain.ErrTransactionNotPending)
		}
		return s.regs.Cancel(ctx, txn.RegistrationID, "User cancelled payment", now)
	})
}

// RefundPayment is the admin path out of completed: transaction refunded,
// user unenrolled, seat released, certificates revoked.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionID string, adminID uint, reason string) error {
	txn, err := s.payments.ByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn == nil {
		return domain.ErrTransactionNotFound
	}
	if txn.Status.Code != domain.PaymentCompleted {
		return fmt.Errorf("transaction is %s: %w", txn.Status.Code, domain.ErrNotRefundable)
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		moved, err := s.payments.Transition(ctx, txn.ID, domain.PaymentCompleted, domain.PaymentRefunded,
			map[string]interface{}{
				"refunded_at":   now,
				"refund_reason": reason,
				"refunded_by":   adminID,
			})
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("transaction %s: %w", transactionID, domain.ErrNotRefundable)
		}
		if err := s.regs.Refund(ctx, txn.RegistrationID, reason, now); err != nil {
			return err
		}
		if err := s.events.DecrementParticipants(ctx, txn.Registration.EventID); err != nil {
			return err
		}
		return s.certs.DeleteByRegistration(ctx, txn.RegistrationID)
	})
	if err != nil {
		return err
	}

	log.Printf("[REFUND] transaction=%s admin=%d reason=%q", transactionID, adminID, reason)
	s.notifier.PaymentRefunded(&txn.Registration.User, &txn.Registration.Event, txn)
	return nil
}

// ExpirePendingPayments is the cleanup job body: every pending transaction
// past its deadline moves to expired and its registration is cancelled. The
// conditional transition makes the sweep safe against a verification racing
// in; whoever moves the row first wins.
func (s *PaymentService) ExpirePendingPayments(ctx context.Context) (int, error) {
	now := s.clock.Now()
	due, err := s.payments.ListDuePending(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	log.Printf("[CLEANUP] found %d expired payments", len(due))

	expired := 0
	for _, txn := range due {
		txn := txn
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			moved, err := s.payments.Transition(ctx, txn.ID, domain.PaymentPending, domain.PaymentExpired, nil)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			expired++
			return s.regs.Cancel(ctx, txn.RegistrationID, "Payment timeout, not completed in time", now)
		})
		if err != nil {
			log.Printf("[CLEANUP] expire transaction=%s: %v", txn.TransactionID, err)
		}
	}
	return expired, nil
}

// GetTransaction returns one transaction. Non-admins only see their own.
func (s *PaymentService) GetTransaction(ctx context.Context, transactionID string, userID uint, admin bool) (*models.PaymentTransaction, error) {
	txn, err := s.payments.ByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil || (!admin && txn.UserID != userID) {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *PaymentService) ListUserPayments(ctx context.Context, userID uint, page, limit int) ([]models.PaymentTransaction, int64, error) {
	return s.payments.ListByUser(ctx, userID, page, limit)
}

func (s *PaymentService) ListAllPayments(ctx context.Context, f repository.PaymentFilters) ([]models.PaymentTransaction, int64, error) {
	return s.payments.List(ctx, f)
}

// generateReference builds a REG-/TXN- style reference: millisecond epoch
// plus a short random suffix, uppercased.
func generateReference(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

func parseID(s string) uint {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
