package repository

import (
	"context"
	"errors"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/lookup"
	"oriyet/internal/models"

	"gorm.io/gorm"
)

type RegistrationRepository struct {
	db     *gorm.DB
	lookup *lookup.Cache
}

func NewRegistrationRepository(db *gorm.DB, lc *lookup.Cache) *RegistrationRepository {
	return &RegistrationRepository{db: db, lookup: lc}
}

func (r *RegistrationRepository) preloaded(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Status").Preload("PaymentStatus").Preload("Event").
		Preload("Event.Status").Preload("Event.RegistrationStatus")
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *models.EventRegistration) error {
	return conn(ctx, r.db).Create(reg).Error
}

func (r *RegistrationRepository) Update(ctx context.Context, reg *models.EventRegistration) error {
	return conn(ctx, r.db).Save(reg).Error
}

func (r *RegistrationRepository) ByID(ctx context.Context, id uint) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := r.preloaded(ctx).First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ActiveByUserEvent finds the user's pending or confirmed registration for an
// event, if any. Cancelled and refunded registrations are ignored.
func (r *RegistrationRepository) ActiveByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	pendingID, err := r.lookup.EventRegistrationStatusID(ctx, domain.RegStatusPending)
	if err != nil {
		return nil, err
	}
	confirmedID, err := r.lookup.EventRegistrationStatusID(ctx, domain.RegStatusConfirmed)
	if err != nil {
		return nil, err
	}
	var reg models.EventRegistration
	err = r.preloaded(ctx).
		Where("user_id = ? AND event_id = ? AND status_id IN ?", userID, eventID, []uint{pendingID, confirmedID}).
		Order("created_at DESC").First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) CancelledByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	cancelledID, err := r.lookup.EventRegistrationStatusID(ctx, domain.RegStatusCancelled)
	if err != nil {
		return nil, err
	}
	var reg models.EventRegistration
	err = conn(ctx, r.db).
		Where("user_id = ? AND event_id = ? AND status_id = ?", userID, eventID, cancelledID).
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// SetStatus moves a registration to the given status/payment-status pair.
func (r *RegistrationRepository) SetStatus(ctx context.Context, id uint, statusCode, paymentStatusCode string, updates map[string]interface{}) error {
	statusID, err := r.lookup.EventRegistrationStatusID(ctx, statusCode)
	if err != nil {
		return err
	}
	paymentStatusID, err := r.lookup.PaymentStatusID(ctx, paymentStatusCode)
	if err != nil {
		return err
	}
	assign := map[string]interface{}{
		"status_id":         statusID,
		"payment_status_id": paymentStatusID,
	}
	for k, v := range updates {
		assign[k] = v
	}
	return conn(ctx, r.db).Model(&models.EventRegistration{}).Where("id = ?", id).Updates(assign).Error
}

func (r *RegistrationRepository) Confirm(ctx context.Context, id uint, at time.Time) error {
	return r.SetStatus(ctx, id, domain.RegStatusConfirmed, domain.PaymentCompleted,
		map[string]interface{}{"confirmed_at": at})
}

func (r *RegistrationRepository) Cancel(ctx context.Context, id uint, reason string, at time.Time) error {
	return r.SetStatus(ctx, id, domain.RegStatusCancelled, domain.PaymentFailed,
		map[string]interface{}{"cancelled_at": at, "cancel_reason": reason})
}

func (r *RegistrationRepository) Refund(ctx context.Context, id uint, reason string, at time.Time) error {
	return r.SetStatus(ctx, id, domain.RegStatusRefunded, domain.PaymentRefunded,
		map[string]interface{}{"cancelled_at": at, "cancel_reason": reason})
}

func (r *RegistrationRepository) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&models.EventRegistration{}, id).Error
}

// DeleteIfPending removes a registration only while it is still pending.
// Returns false when the row was already settled or gone.
func (r *RegistrationRepository) DeleteIfPending(ctx context.Context, id uint) (bool, error) {
	pendingID, err := r.lookup.EventRegistrationStatusID(ctx, domain.RegStatusPending)
	if err != nil {
		return false, err
	}
	res := conn(ctx, r.db).Where("id = ? AND status_id = ?", id, pendingID).
		Delete(&models.EventRegistration{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RegistrationRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.EventRegistration, int64, error) {
	q := r.preloaded(ctx).Where("user_id = ?", userID)

	var total int64
	if err := q.Model(&models.EventRegistration{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var regs []models.EventRegistration
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&regs).Error
	return regs, total, err
}

// ConfirmedByUserEvent returns the user's confirmed registration for an
// event, used for certificate issuance.
func (r *RegistrationRepository) ConfirmedByUserEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	confirmedID, err := r.lookup.EventRegistrationStatusID(ctx, domain.RegStatusConfirmed)
	if err != nil {
		return nil, err
	}
	var reg models.EventRegistration
	err = r.preloaded(ctx).
		Where("user_id = ? AND event_id = ? AND status_id = ?", userID, eventID, confirmedID).
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
