package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	OAuth       OAuthConfig
	Cloudinary  CloudinaryConfig
	SMTP        SMTPConfig
	UddoktaPay  UddoktaPayConfig
	Payment     PaymentConfig
	Cleanup     CleanupConfig
	FrontendURL string
	BackendURL  string
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type UddoktaPayConfig struct {
	APIKey      string
	CheckoutURL string
	VerifyURL   string
	Timeout     time.Duration
	MaxRetries  int
}

// PaymentConfig centralizes the payment-flow windows. The stale-payment
// timeout used to be a magic number buried in the service; this is the single
// source of truth now.
type PaymentConfig struct {
	PendingExpiry time.Duration // pending transaction lifetime before auto-expiry
}

// CleanupConfig holds scheduled-job intervals and retention windows.
type CleanupConfig struct {
	PaymentInterval     time.Duration // expire stale pending payments
	OTPInterval         time.Duration // purge long-expired OTP codes
	EventStatusInterval time.Duration // roll event statuses forward
	OTPRetention        time.Duration // keep expired OTPs this long before deletion
}

// OTP windows. Email-verification and password-reset codes live longer than
// the login challenge.
const (
	OTPExpiry      = 10 * time.Minute
	LoginOTPExpiry = 2 * time.Minute
)

func Load() *Config {
	// Local development keeps secrets in .env; a missing file is fine.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "5000"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DB_DSN", "root:@tcp(localhost:3306)/oriyet?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getenv("JWT_SECRET", "change-me-in-production"),
			RefreshSecret: getenv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getduration("JWT_ACCESS_EXPIRY", 7*24*time.Hour),
			RefreshExpiry: getduration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),
			Issuer:        "oriyet",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  getenv("GOOGLE_CALLBACK_URL", "http://localhost:5000/api/v1/auth/google/callback"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		SMTP: SMTPConfig{
			Host: getenv("SMTP_HOST", "smtp.gmail.com"),
			Port: getint("SMTP_PORT", 587),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getenv("EMAIL_FROM", "ORIYET <noreply@oriyet.com>"),
		},
		UddoktaPay: UddoktaPayConfig{
			APIKey:      os.Getenv("UDDOKTAPAY_API_KEY"),
			CheckoutURL: getenv("UDDOKTAPAY_API_URL", "https://sandbox.uddoktapay.com/api/checkout-v2"),
			VerifyURL:   getenv("UDDOKTAPAY_VERIFY_URL", "https://sandbox.uddoktapay.com/api/verify-payment"),
			Timeout:     getduration("UDDOKTAPAY_TIMEOUT", 30*time.Second),
			MaxRetries:  getint("UDDOKTAPAY_MAX_RETRIES", 3),
		},
		Payment: PaymentConfig{
			PendingExpiry: getduration("PAYMENT_PENDING_EXPIRY", 30*time.Minute),
		},
		Cleanup: CleanupConfig{
			PaymentInterval:     getduration("PAYMENT_CLEANUP_INTERVAL", 5*time.Minute),
			OTPInterval:         getduration("OTP_CLEANUP_INTERVAL", 10*time.Minute),
			EventStatusInterval: getduration("EVENT_STATUS_INTERVAL", 15*time.Minute),
			OTPRetention:        getduration("OTP_RETENTION", 50*time.Minute),
		},
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		BackendURL:  getenv("BACKEND_URL", "http://localhost:5000"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
