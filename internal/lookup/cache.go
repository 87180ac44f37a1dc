// Package lookup resolves stable string codes ("confirmed", "completed") to
// the surrogate keys of the lookup tables. Resolutions are memoized for the
// life of the process; Clear is the only invalidation.
package lookup

import (
	"context"
	"errors"
	"sync"

	"oriyet/internal/domain"

	"gorm.io/gorm"
)

// Source fetches a single code's id from storage.
type Source interface {
	LookupID(ctx context.Context, table, code string) (uint, error)
}

type dbSource struct {
	db *gorm.DB
}

// NewDBSource returns a Source backed by the lookup tables. The table name is
// always one of the domain.Table* constants, never user input.
func NewDBSource(db *gorm.DB) Source {
	return dbSource{db: db}
}

func (s dbSource) LookupID(ctx context.Context, table, code string) (uint, error) {
	var row struct{ ID uint }
	err := s.db.WithContext(ctx).Table(table).Select("id").Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.LookupError(table, code)
	}
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

type Cache struct {
	mu     sync.RWMutex
	src    Source
	tables map[string]map[string]uint
}

func NewCache(src Source) *Cache {
	return &Cache{src: src, tables: make(map[string]map[string]uint)}
}

// ID resolves table/code to its surrogate key, hitting storage at most once
// per code.
func (c *Cache) ID(ctx context.Context, table, code string) (uint, error) {
	c.mu.RLock()
	if id, ok := c.tables[table][code]; ok {
		c.mu.RUnlock()
		return id, nil
	}
	c.mu.RUnlock()

	id, err := c.src.LookupID(ctx, table, code)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.tables[table] == nil {
		c.tables[table] = make(map[string]uint)
	}
	c.tables[table][code] = id
	c.mu.Unlock()
	return id, nil
}

// Clear drops every memoized entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.tables = make(map[string]map[string]uint)
	c.mu.Unlock()
}

func (c *Cache) UserRoleID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableUserRoles, code)
}

func (c *Cache) AuthProviderID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableAuthProviders, code)
}

func (c *Cache) EventTypeID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableEventTypes, code)
}

func (c *Cache) EventModeID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableEventModes, code)
}

func (c *Cache) EventStatusID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableEventStatuses, code)
}

func (c *Cache) RegistrationStatusID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableRegistrationStatuses, code)
}

func (c *Cache) EventRegistrationStatusID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableEventRegistrationStatuses, code)
}

func (c *Cache) PaymentStatusID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TablePaymentStatuses, code)
}

func (c *Cache) PaymentGatewayID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TablePaymentGateways, code)
}

func (c *Cache) OTPTypeID(ctx context.Context, code string) (uint, error) {
	return c.ID(ctx, domain.TableOTPTypes, code)
}

// Warm resolves every code the payment and registration flows depend on.
// A missing row is a fatal configuration error; callers abort startup.
func (c *Cache) Warm(ctx context.Context) error {
	required := map[string][]string{
		domain.TableUserRoles:                 {domain.RoleUser, domain.RoleAdmin},
		domain.TableAuthProviders:             {domain.ProviderLocal, domain.ProviderGoogle},
		domain.TableEventStatuses:             {domain.EventUpcoming, domain.EventOngoing, domain.EventCompleted, domain.EventCancelled},
		domain.TableRegistrationStatuses:      {domain.RegistrationOpen, domain.RegistrationClosed, domain.RegistrationFull},
		domain.TableEventRegistrationStatuses: {domain.RegStatusPending, domain.RegStatusConfirmed, domain.RegStatusCancelled, domain.RegStatusRefunded},
		domain.TablePaymentStatuses: {
			domain.PaymentNotRequired, domain.PaymentPending, domain.PaymentCompleted,
			domain.PaymentFailed, domain.PaymentCancelled, domain.PaymentExpired, domain.PaymentRefunded,
		},
		domain.TablePaymentGateways: {domain.GatewayUddoktaPay},
		domain.TableOTPTypes: {
			domain.OTPTypeVerification, domain.OTPTypePasswordReset,
			domain.OTPTypePasswordChange, domain.OTPTypeTwoFactor, domain.OTPTypeLogin,
		},
	}
	for table, codes := range required {
		for _, code := range codes {
			if _, err := c.ID(ctx, table, code); err != nil {
				return err
			}
		}
	}
	return nil
}
