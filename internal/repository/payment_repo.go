package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/lookup"
	"oriyet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db     *gorm.DB
	lookup *lookup.Cache
}

func NewPaymentRepository(db *gorm.DB, lc *lookup.Cache) *PaymentRepository {
	return &PaymentRepository{db: db, lookup: lc}
}

func (r *PaymentRepository) preloaded(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Status").Preload("Gateway").
		Preload("Registration").Preload("Registration.Status").
		Preload("Registration.Event").Preload("Registration.Event.Status").
		Preload("Registration.User")
}

func (r *PaymentRepository) Create(ctx context.Context, t *models.PaymentTransaction) error {
	return conn(ctx, r.db).Create(t).Error
}

func (r *PaymentRepository) ByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := r.preloaded(ctx).Where("transaction_id = ?", transactionID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ByTransactionIDForUpdate locks the transaction row so concurrent webhook
// delivery and user verification serialize on it.
func (r *PaymentRepository) ByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// The lock query skips preloads; resolve the status code separately so
	// callers can run the terminal-state check.
	if err := conn(ctx, r.db).First(&t.Status, t.StatusID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PaymentRepository) LatestPendingForRegistration(ctx context.Context, registrationID uint) (*models.PaymentTransaction, error) {
	pendingID, err := r.lookup.PaymentStatusID(ctx, domain.PaymentPending)
	if err != nil {
		return nil, err
	}
	var t models.PaymentTransaction
	err = conn(ctx, r.db).
		Where("registration_id = ? AND status_id = ?", registrationID, pendingID).
		Order("created_at DESC").First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Transition applies a conditional status update: the row moves from
// fromCode to toCode (with extra column assignments) only if it is still in
// fromCode. Returns false when another writer got there first; the caller's
// idempotency signal.
func (r *PaymentRepository) Transition(ctx context.Context, id uint, fromCode, toCode string, updates map[string]interface{}) (bool, error) {
	fromID, err := r.lookup.PaymentStatusID(ctx, fromCode)
	if err != nil {
		return false, err
	}
	toID, err := r.lookup.PaymentStatusID(ctx, toCode)
	if err != nil {
		return false, err
	}
	assign := map[string]interface{}{"status_id": toID}
	for k, v := range updates {
		assign[k] = v
	}
	res := conn(ctx, r.db).Model(&models.PaymentTransaction{}).
		Where("id = ? AND status_id = ?", id, fromID).
		Updates(assign)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListDuePending returns pending transactions whose expiry has passed.
func (r *PaymentRepository) ListDuePending(ctx context.Context, cutoff time.Time) ([]models.PaymentTransaction, error) {
	pendingID, err := r.lookup.PaymentStatusID(ctx, domain.PaymentPending)
	if err != nil {
		return nil, err
	}
	var due []models.PaymentTransaction
	err = conn(ctx, r.db).
		Where("status_id = ? AND expires_at <= ?", pendingID, cutoff).
		Find(&due).Error
	return due, err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.PaymentTransaction, int64, error) {
	q := r.preloaded(ctx).Where("payment_transactions.user_id = ?", userID)

	var total int64
	if err := q.Model(&models.PaymentTransaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var txns []models.PaymentTransaction
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&txns).Error
	return txns, total, err
}

type PaymentFilters struct {
	StatusCode string
	UserID     uint
	EventID    uint
	Page       int
	Limit      int
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentFilters) ([]models.PaymentTransaction, int64, error) {
	q := r.preloaded(ctx)
	if f.StatusCode != "" {
		statusID, err := r.lookup.PaymentStatusID(ctx, f.StatusCode)
		if err != nil {
			// Caller input, not a missing seed row.
			return nil, 0, fmt.Errorf("%w: status %q", domain.ErrInvalidFilter, f.StatusCode)
		}
		q = q.Where("payment_transactions.status_id = ?", statusID)
	}
	if f.UserID != 0 {
		q = q.Where("payment_transactions.user_id = ?", f.UserID)
	}
	if f.EventID != 0 {
		q = q.Joins("JOIN event_registrations ON event_registrations.id = payment_transactions.registration_id").
			Where("event_registrations.event_id = ?", f.EventID)
	}

	var total int64
	if err := q.Model(&models.PaymentTransaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var txns []models.PaymentTransaction
	err := q.Order("payment_transactions.created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&txns).Error
	return txns, total, err
}
