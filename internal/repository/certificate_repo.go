package repository

import (
	"context"
	"errors"

	"oriyet/internal/models"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func (r *CertificateRepository) preloaded(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Registration").Preload("Registration.Event").
		Preload("Registration.User")
}

func (r *CertificateRepository) Create(ctx context.Context, c *models.Certificate) error {
	return conn(ctx, r.db).Create(c).Error
}

func (r *CertificateRepository) ByRegistration(ctx context.Context, registrationID uint) (*models.Certificate, error) {
	var c models.Certificate
	err := conn(ctx, r.db).Where("registration_id = ?", registrationID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) ByVerificationCode(ctx context.Context, code string) (*models.Certificate, error) {
	var c models.Certificate
	err := r.preloaded(ctx).Where("verification_code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID uint) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := r.preloaded(ctx).
		Joins("JOIN event_registrations ON event_registrations.id = certificates.registration_id").
		Where("event_registrations.user_id = ?", userID).
		Order("certificates.issued_at DESC").Find(&certs).Error
	return certs, err
}

// DeleteByRegistration revokes any certificate tied to a registration, e.g.
// after a refund.
func (r *CertificateRepository) DeleteByRegistration(ctx context.Context, registrationID uint) error {
	return conn(ctx, r.db).Where("registration_id = ?", registrationID).
		Delete(&models.Certificate{}).Error
}
