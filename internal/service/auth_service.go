package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"time"

	"oriyet/config"
	"oriyet/internal/auth"
	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// AuthService covers local signup with email verification, password login
// with optional second factor, password recovery and Google account linking.
type AuthService struct {
	tx       TxRunner
	users    UserStore
	otps     OTPStore
	lookups  Lookups
	notifier Notifier
	clock    clock.Clock
	cfg      *config.Config
}

func NewAuthService(tx TxRunner, users UserStore, otps OTPStore, lookups Lookups, notifier Notifier, clk clock.Clock, cfg *config.Config) *AuthService {
	return &AuthService{
		tx:       tx,
		users:    users,
		otps:     otps,
		lookups:  lookups,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates a local account and emails a verification code. The
// account cannot log in until the email is verified.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	existing, err := s.users.ByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	roleID, err := s.lookups.UserRoleID(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	providerID, err := s.lookups.AuthProviderID(ctx, domain.ProviderLocal)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		RoleID:       roleID,
		ProviderID:   providerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.issueOTP(ctx, &user.ID, user.Email, user.Name, domain.OTPTypeVerification, config.OTPExpiry); err != nil {
		return nil, err
	}
	log.Printf("[AUTH] registered user=%d", user.ID)
	return user, nil
}

// TokenPair is an access/refresh JWT pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmail consumes a verification code and activates the account.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*models.User, *TokenPair, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domain.ErrInvalidOTP
	}

	record, err := s.consumeOTP(ctx, email, code, domain.OTPTypeVerification)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.otps.MarkUsed(ctx, record.ID, now); err != nil {
			return err
		}
		user.EmailVerifiedAt = &now
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// ResendVerification issues a fresh verification code for an unverified
// account.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.IsVerified() {
		// Do not leak whether the address exists or its state.
		return nil
	}
	return s.issueOTP(ctx, &user.ID, user.Email, user.Name, domain.OTPTypeVerification, config.OTPExpiry)
}

// LoginResult either carries tokens or signals that a second factor is
// required first.
type LoginResult struct {
	User          *models.User `json:"user,omitempty"`
	Tokens        *TokenPair   `json:"tokens,omitempty"`
	RequiresOTP   bool         `json:"requires_otp,omitempty"`
	Authenticator bool         `json:"authenticator,omitempty"`
}

// Login checks the password. Accounts with a second factor enabled get a
// short-lived login code by email and must finish with VerifyLoginOTP;
// admins skip the second factor.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if user.Provider.Code == domain.ProviderGoogle || (user.PasswordHash == "" && user.GoogleID != nil) {
		return nil, fmt.Errorf("account uses Google sign-in: %w", domain.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsVerified() {
		// Re-issue the code so the user can finish signup from here.
		if err := s.issueOTP(ctx, &user.ID, user.Email, user.Name, domain.OTPTypeVerification, config.OTPExpiry); err != nil {
			return nil, err
		}
		return nil, domain.ErrEmailNotVerified
	}

	if user.TwoFactorEnabled && user.Role.Code != domain.RoleAdmin {
		if err := s.issueOTP(ctx, &user.ID, user.Email, user.Name, domain.OTPTypeLogin, config.LoginOTPExpiry); err != nil {
			return nil, err
		}
		return &LoginResult{
			RequiresOTP:   true,
			Authenticator: user.TwoFactorSecret != "",
		}, nil
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// VerifyLoginOTP finishes a two-step login. An authenticator code is tried
// first, then the emailed login code.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.TwoFactorEnabled {
		return nil, domain.ErrInvalidOTP
	}

	valid := false
	if user.TwoFactorSecret != "" && totp.Validate(code, user.TwoFactorSecret) {
		valid = true
	}
	if !valid {
		record, err := s.consumeOTP(ctx, email, code, domain.OTPTypeLogin)
		if err != nil {
			return nil, err
		}
		if err := s.otps.MarkUsed(ctx, record.ID, s.clock.Now()); err != nil {
			return nil, err
		}
		valid = true
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domain.ErrUserNotFound
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.users.Update(ctx, user)
}

// ForgotPassword emails a reset code. It never reveals whether the address
// has an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.issueOTP(ctx, &user.ID, user.Email, user.Name, domain.OTPTypePasswordReset, config.OTPExpiry)
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrInvalidOTP
	}
	record, err := s.consumeOTP(ctx, email, code, domain.OTPTypePasswordReset)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.otps.MarkUsed(ctx, record.ID, now); err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		return s.users.Update(ctx, user)
	})
}

// TwoFactorSetup carries the shared secret for an authenticator app.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// EnrollTwoFactor generates an authenticator secret. It stays disabled until
// ConfirmTwoFactor sees one valid code.
func (s *AuthService) EnrollTwoFactor(ctx context.Context, userID uint) (*TwoFactorSetup, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.JWT.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	user.TwoFactorSecret = key.Secret()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// ConfirmTwoFactor enables the second factor after proving the authenticator
// works.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID uint, code string) error {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.TwoFactorSecret == "" {
		return domain.ErrInvalidOTP
	}
	if !totp.Validate(code, user.TwoFactorSecret) {
		return domain.ErrInvalidOTP
	}
	user.TwoFactorEnabled = true
	return s.users.Update(ctx, user)
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, userID uint, password string) error {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.ErrInvalidCredentials
	}
	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	return s.users.Update(ctx, user)
}

// LoginWithGoogle links or creates an account from a verified Google
// identity and returns tokens. Google accounts skip email verification.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleID, email, name, avatarURL string) (*models.User, *TokenPair, bool, error) {
	user, err := s.users.ByGoogleID(ctx, googleID)
	if err != nil {
		return nil, nil, false, err
	}
	isNew := false

	if user == nil {
		user, err = s.users.ByEmail(ctx, email)
		if err != nil {
			return nil, nil, false, err
		}
		now := s.clock.Now()
		if user != nil {
			// Existing local account with the same address: link it.
			user.GoogleID = &googleID
			if user.AvatarURL == "" {
				user.AvatarURL = avatarURL
			}
			if user.EmailVerifiedAt == nil {
				user.EmailVerifiedAt = &now
			}
			if err := s.users.Update(ctx, user); err != nil {
				return nil, nil, false, err
			}
		} else {
			roleID, err := s.lookups.UserRoleID(ctx, domain.RoleUser)
			if err != nil {
				return nil, nil, false, err
			}
			providerID, err := s.lookups.AuthProviderID(ctx, domain.ProviderGoogle)
			if err != nil {
				return nil, nil, false, err
			}
			user = &models.User{
				Name:            name,
				Email:           email,
				RoleID:          roleID,
				ProviderID:      providerID,
				GoogleID:        &googleID,
				AvatarURL:       avatarURL,
				EmailVerifiedAt: &now,
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, nil, false, err
			}
			isNew = true
			log.Printf("[AUTH] created user=%d via google", user.ID)
		}
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, false, err
	}
	return user, tokens, isNew, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	role := user.Role.Code
	if role == "" {
		role = domain.RoleUser
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, user.ID, user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// issueOTP invalidates earlier codes of the same type, stores a hashed fresh
// one and emails it.
func (s *AuthService) issueOTP(ctx context.Context, userID *uint, email, name, typeCode string, expiry time.Duration) error {
	now := s.clock.Now()
	code, err := generateNumericCode(6)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	typeID, err := s.lookups.OTPTypeID(ctx, typeCode)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.otps.InvalidateForEmail(ctx, email, typeCode, now); err != nil {
			return err
		}
		return s.otps.Create(ctx, &models.OTPCode{
			UserID:    userID,
			Email:     email,
			CodeHash:  hashOTP(code),
			TypeID:    typeID,
			ExpiresAt: now.Add(expiry),
		})
	})
	if err != nil {
		return err
	}

	s.notifier.OTP(email, name, code, typeCode, expiry)
	return nil
}

// consumeOTP checks a submitted code against the latest unexpired record.
// The caller marks it used inside its own transaction.
func (s *AuthService) consumeOTP(ctx context.Context, email, code, typeCode string) (*models.OTPCode, error) {
	record, err := s.otps.LatestValid(ctx, email, typeCode, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(record.CodeHash), []byte(hashOTP(code))) != 1 {
		return nil, domain.ErrInvalidOTP
	}
	return record, nil
}

// CleanupExpiredOTPs is the scheduled sweep body. Codes are kept for a
// grace period after expiry so support can inspect recent attempts.
func (s *AuthService) CleanupExpiredOTPs(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention)
	n, err := s.otps.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[CLEANUP] removed %d expired otp codes", n)
	}
	return n, nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
