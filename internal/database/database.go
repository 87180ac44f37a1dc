package database

import (
	"oriyet/config"
	"oriyet/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models. Lookup tables first so
// the foreign keys on the domain tables resolve.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserRole{},
		&models.AuthProvider{},
		&models.EventType{},
		&models.EventMode{},
		&models.EventStatus{},
		&models.RegistrationStatus{},
		&models.EventRegistrationStatus{},
		&models.PaymentStatus{},
		&models.PaymentGateway{},
		&models.OTPType{},
		&models.User{},
		&models.Event{},
		&models.EventRegistration{},
		&models.PaymentTransaction{},
		&models.OTPCode{},
		&models.Certificate{},
	)
}

type seedRow struct {
	code  string
	label string
}

var lookupSeeds = map[string][]seedRow{
	"user_roles": {
		{"user", "User"}, {"admin", "Administrator"},
	},
	"auth_providers": {
		{"local", "Local"}, {"google", "Google OAuth"},
	},
	"event_types": {
		{"seminar", "Seminar"}, {"workshop", "Workshop"}, {"webinar", "Webinar"},
		{"bootcamp", "Bootcamp"}, {"conference", "Conference"}, {"hackathon", "Hackathon"},
	},
	"event_modes": {
		{"online", "Online"}, {"offline", "Offline"}, {"hybrid", "Hybrid"},
	},
	"event_statuses": {
		{"upcoming", "Upcoming"}, {"ongoing", "Ongoing"},
		{"completed", "Completed"}, {"cancelled", "Cancelled"},
	},
	"registration_statuses": {
		{"open", "Open"}, {"closed", "Closed"}, {"full", "Full"},
	},
	"event_registration_statuses": {
		{"pending", "Pending"}, {"confirmed", "Confirmed"},
		{"cancelled", "Cancelled"}, {"refunded", "Refunded"},
	},
	"payment_statuses": {
		{"not_required", "Not Required"}, {"pending", "Pending"},
		{"completed", "Completed"}, {"failed", "Failed"},
		{"cancelled", "Cancelled"}, {"expired", "Expired"}, {"refunded", "Refunded"},
	},
	"payment_gateways": {
		{"uddoktapay", "UddoktaPay"}, {"stripe", "Stripe"}, {"paypal", "PayPal"},
	},
	"otp_types": {
		{"verification", "Email Verification"}, {"password_reset", "Password Reset"},
		{"password_change", "Password Change"}, {"2fa", "Two-Factor Authentication"},
		{"login", "Login Verification"},
	},
}

// SeedLookups upserts every lookup row by code. Existing ids are preserved so
// foreign keys stay valid across restarts.
func SeedLookups(db *gorm.DB) error {
	for table, rows := range lookupSeeds {
		for _, row := range rows {
			err := db.Table(table).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"label"}),
			}).Create(map[string]interface{}{"code": row.code, "label": row.label}).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}
