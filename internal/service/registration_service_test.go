package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"
)

type registrationFixture struct {
	events   *fakeEvents
	regs     *fakeRegs
	users    *fakeUsers
	notifier *fakeNotifier
	svc      *RegistrationService
}

func newRegistrationFixture() *registrationFixture {
	fx := &registrationFixture{
		events:   newFakeEvents(),
		regs:     newFakeRegs(),
		users:    newFakeUsers(),
		notifier: &fakeNotifier{},
	}
	fx.svc = NewRegistrationService(&fakeTx{}, fx.events, fx.regs, fx.users,
		fakeLookups{}, fx.notifier, clock.NewFixed(testNow))
	return fx
}

func (fx *registrationFixture) freeEvent(maxParticipants, current int) *models.Event {
	e := &models.Event{
		Title:               "Community Meetup",
		Slug:                "community-meetup",
		MaxParticipants:     maxParticipants,
		CurrentParticipants: current,
		StartDate:           testNow.Add(24 * time.Hour),
		IsPublished:         true,
	}
	e.Status.Code = domain.EventUpcoming
	e.RegistrationStatus.Code = domain.RegistrationOpen
	return fx.events.add(e)
}

func TestRegisterForEvent(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(100, 10)

	reg, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("RegisterForEvent: %v", err)
	}
	if reg.RegistrationNumber == "" {
		t.Error("registration number empty")
	}
	if reg.ConfirmedAt == nil || !reg.ConfirmedAt.Equal(testNow) {
		t.Errorf("confirmed at = %v", reg.ConfirmedAt)
	}
	if event.CurrentParticipants != 11 {
		t.Errorf("participants = %d, want 11", event.CurrentParticipants)
	}
	if fx.notifier.regemails != 1 {
		t.Errorf("confirmation emails = %d, want 1", fx.notifier.regemails)
	}
}

func TestRegisterForEventPaid(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 0)
	event.Price = 500

	_, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if !errors.Is(err, domain.ErrEventNotFree) {
		t.Fatalf("err = %v, want ErrEventNotFree", err)
	}
}

func TestRegisterForEventFull(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(30, 30)

	_, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if len(fx.regs.byID) != 0 {
		t.Error("registration created despite full event")
	}
}

func TestRegisterForEventDuplicate(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 0)

	if _, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterForEventClosed(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 0)
	event.RegistrationStatus.Code = domain.RegistrationClosed

	_, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if !errors.Is(err, domain.ErrRegistrationClosed) {
		t.Fatalf("err = %v, want ErrRegistrationClosed", err)
	}
}

func TestRegisterForEventDeadlinePassed(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 0)
	deadline := testNow.Add(-time.Hour)
	event.RegistrationDeadline = &deadline

	_, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if !errors.Is(err, domain.ErrDeadlinePassed) {
		t.Fatalf("err = %v, want ErrDeadlinePassed", err)
	}
}

func TestRegisterForEventMarksFull(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(11, 10)

	if _, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID); err != nil {
		t.Fatalf("RegisterForEvent: %v", err)
	}
	if event.RegistrationStatus.Code != domain.RegistrationFull {
		t.Errorf("registration status = %q, want full", event.RegistrationStatus.Code)
	}
}

func TestCancelRegistration(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(100, 10)

	reg, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("RegisterForEvent: %v", err)
	}
	if err := fx.svc.CancelRegistration(context.Background(), user.ID, reg.ID, "schedule conflict"); err != nil {
		t.Fatalf("CancelRegistration: %v", err)
	}
	got, _ := fx.regs.ByID(context.Background(), reg.ID)
	if got.Status.Code != domain.RegStatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status.Code)
	}
	if got.CancelReason != "schedule conflict" {
		t.Errorf("cancel reason = %q", got.CancelReason)
	}
	if event.CurrentParticipants != 10 {
		t.Errorf("participants = %d, want 10", event.CurrentParticipants)
	}
}

func TestCancelRegistrationReopensFullEvent(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(11, 10)

	reg, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("RegisterForEvent: %v", err)
	}
	// Mirror what SetRegistrationStatus does in the real repository.
	event.RegistrationStatusID = 3

	if err := fx.svc.CancelRegistration(context.Background(), user.ID, reg.ID, ""); err != nil {
		t.Fatalf("CancelRegistration: %v", err)
	}
	if event.RegistrationStatus.Code != domain.RegistrationOpen {
		t.Errorf("registration status = %q, want open", event.RegistrationStatus.Code)
	}
}

func TestCancelRegistrationNotOwner(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 0)

	reg, err := fx.svc.RegisterForEvent(context.Background(), user.ID, event.ID)
	if err != nil {
		t.Fatalf("RegisterForEvent: %v", err)
	}
	err = fx.svc.CancelRegistration(context.Background(), 99, reg.ID, "")
	if !errors.Is(err, domain.ErrRegistrationNotFound) {
		t.Fatalf("err = %v, want ErrRegistrationNotFound", err)
	}
}

func TestCancelRegistrationPaidSettled(t *testing.T) {
	fx := newRegistrationFixture()
	user := fx.users.add(&models.User{Name: "Karim", Email: "karim@example.com"})
	event := fx.freeEvent(0, 1)

	reg := &models.EventRegistration{EventID: event.ID, UserID: user.ID, RegistrationNumber: "REG-P"}
	reg.Status.Code = domain.RegStatusConfirmed
	reg.PaymentStatus.Code = domain.PaymentCompleted
	fx.regs.add(reg)

	err := fx.svc.CancelRegistration(context.Background(), user.ID, reg.ID, "")
	if !errors.Is(err, domain.ErrNotRefundable) {
		t.Fatalf("err = %v, want ErrNotRefundable", err)
	}
}
