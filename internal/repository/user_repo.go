package repository

import (
	"context"
	"errors"

	"oriyet/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return conn(ctx, r.db).Create(u).Error
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	return conn(ctx, r.db).Save(u).Error
}

func (r *UserRepository) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := conn(ctx, r.db).Preload("Role").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := conn(ctx, r.db).Preload("Role").Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	err := conn(ctx, r.db).Preload("Role").Where("google_id = ?", googleID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
