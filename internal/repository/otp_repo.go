package repository

import (
	"context"
	"errors"
	"time"

	"oriyet/internal/lookup"
	"oriyet/internal/models"

	"gorm.io/gorm"
)

type OTPRepository struct {
	db     *gorm.DB
	lookup *lookup.Cache
}

func NewOTPRepository(db *gorm.DB, lc *lookup.Cache) *OTPRepository {
	return &OTPRepository{db: db, lookup: lc}
}

func (r *OTPRepository) Create(ctx context.Context, code *models.OTPCode) error {
	return conn(ctx, r.db).Create(code).Error
}

// LatestValid returns the newest unused, unexpired code for email+type.
func (r *OTPRepository) LatestValid(ctx context.Context, email, typeCode string, now time.Time) (*models.OTPCode, error) {
	typeID, err := r.lookup.OTPTypeID(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	var code models.OTPCode
	err = conn(ctx, r.db).
		Where("email = ? AND type_id = ? AND used_at IS NULL AND expires_at > ?", email, typeID, now).
		Order("created_at DESC").First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *OTPRepository) MarkUsed(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).Model(&models.OTPCode{}).Where("id = ?", id).
		Update("used_at", at).Error
}

// InvalidateForEmail retires any outstanding codes of a type before a new one
// is issued.
func (r *OTPRepository) InvalidateForEmail(ctx context.Context, email, typeCode string, at time.Time) error {
	typeID, err := r.lookup.OTPTypeID(ctx, typeCode)
	if err != nil {
		return err
	}
	return conn(ctx, r.db).Model(&models.OTPCode{}).
		Where("email = ? AND type_id = ? AND used_at IS NULL", email, typeID).
		Update("used_at", at).Error
}

// DeleteExpiredBefore sweeps codes that expired before the cutoff. Used codes
// go with them.
func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := conn(ctx, r.db).
		Where("expires_at < ? OR used_at IS NOT NULL", cutoff).
		Delete(&models.OTPCode{})
	return res.RowsAffected, res.Error
}
