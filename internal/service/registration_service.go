package service

import (
	"context"
	"fmt"
	"log"

	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"
)

// RegistrationService handles free-event registrations. Paid events go
// through the payment flow instead.
type RegistrationService struct {
	tx       TxRunner
	events   EventStore
	regs     RegistrationStore
	users    UserStore
	lookups  Lookups
	notifier Notifier
	clock    clock.Clock
}

func NewRegistrationService(tx TxRunner, events EventStore, regs RegistrationStore, users UserStore, lookups Lookups, notifier Notifier, clk clock.Clock) *RegistrationService {
	return &RegistrationService{
		tx:       tx,
		events:   events,
		regs:     regs,
		users:    users,
		lookups:  lookups,
		notifier: notifier,
		clock:    clk,
	}
}

// RegisterForEvent books a seat on a free event. The seat is taken with the
// conditional capacity increment, so two concurrent registrations cannot
// both get the last one.
func (s *RegistrationService) RegisterForEvent(ctx context.Context, userID, eventID uint) (*models.EventRegistration, error) {
	event, err := s.events.ByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil || !event.IsPublished {
		return nil, domain.ErrEventNotFound
	}
	if !event.IsFree() {
		return nil, domain.ErrEventNotFree
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

	existing, err := s.regs.ActiveByUserEvent(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyRegistered
	}
	cancelled, err := s.regs.CancelledByUserEvent(ctx, userID, eventID)
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

	var reg *models.EventRegistration
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		seated, err := s.events.IncrementParticipants(ctx, eventID)
		if err != nil {
			return err
		}
		if !seated {
			return domain.ErrCapacityExceeded
		}

		statusID, err := s.lookups.EventRegistrationStatusID(ctx, domain.RegStatusConfirmed)
		if err != nil {
			return err
		}
		paymentStatusID, err := s.lookups.PaymentStatusID(ctx, domain.PaymentNotRequired)
		if err != nil {
			return err
		}
		reg = &models.EventRegistration{
			EventID:            eventID,
			UserID:             userID,
			RegistrationNumber: generateReference("REG", now),
			StatusID:           statusID,
			PaymentStatusID:    paymentStatusID,
			ConfirmedAt:        &now,
		}
		if err := s.regs.Create(ctx, reg); err != nil {
			return err
		}

		locked, err := s.events.ByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if locked != nil && locked.Full() {
			return s.events.SetRegistrationStatus(ctx, eventID, domain.RegistrationFull)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[REGISTRATION] confirmed registration=%s user=%d event=%d", reg.RegistrationNumber, userID, eventID)
	s.notifier.RegistrationConfirmed(user, event, reg)
	return reg, nil
}

// CancelRegistration releases the caller's own seat. Paid registrations with
// settled payments must go through the refund flow instead.
func (s *RegistrationService) CancelRegistration(ctx context.Context, userID, registrationID uint, reason string) error {
	reg, err := s.regs.ByID(ctx, registrationID)
	if err != nil {
		return err
	}
	if reg == nil || reg.UserID != userID {
		return domain.ErrRegistrationNotFound
	}
	switch reg.Status.Code {
	case domain.RegStatusCancelled, domain.RegStatusRefunded:
		return domain.ErrRegistrationNotFound
	}
	if reg.PaymentStatus.Code == domain.PaymentCompleted {
		return domain.ErrNotRefundable
	}

	if reason == "" {
		reason = "Cancelled by participant"
	}
	now := s.clock.Now()
	confirmed := reg.Status.Code == domain.RegStatusConfirmed
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.regs.Cancel(ctx, registrationID, reason, now); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
		if err := s.events.DecrementParticipants(ctx, reg.EventID); err != nil {
			return err
		}
		// A freed seat reopens a full event. Closed stays closed.
		locked, err := s.events.ByIDForUpdate(ctx, reg.EventID)
		if err != nil || locked == nil {
			return err
		}
		fullID, err := s.lookups.RegistrationStatusID(ctx, domain.RegistrationFull)
		if err != nil {
			return err
		}
		if locked.RegistrationStatusID == fullID {
			return s.events.SetRegistrationStatus(ctx, reg.EventID, domain.RegistrationOpen)
		}
		return nil
	})
}

// GetRegistration returns one registration. Non-admins only see their own.
func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID, userID uint, admin bool) (*models.EventRegistration, error) {
	reg, err := s.regs.ByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil || (!admin && reg.UserID != userID) {
		return nil, domain.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *RegistrationService) ListUserRegistrations(ctx context.Context, userID uint, page, limit int) ([]models.EventRegistration, int64, error) {
	return s.regs.ListByUser(ctx, userID, page, limit)
}
