package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"

	"github.com/google/uuid"
)

// CertificateService issues participation certificates for confirmed
// registrations of completed events.
type CertificateService struct {
	certs  CertificateStore
	regs   RegistrationStore
	events EventStore
	clock  clock.Clock
}

func NewCertificateService(certs CertificateStore, regs RegistrationStore, events EventStore, clk clock.Clock) *CertificateService {
	return &CertificateService{certs: certs, regs: regs, events: events, clock: clk}
}

// Issue creates the certificate for a user's registration on a completed
// event. Issuing twice returns the existing one.
func (s *CertificateService) Issue(ctx context.Context, userID, eventID uint) (*models.Certificate, error) {
	event, err := s.events.ByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	if event.Status.Code != domain.EventCompleted {
		return nil, domain.ErrEventNotCompleted
	}

	reg, err := s.regs.ConfirmedByUserEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.ErrRegistrationNotFound
	}

	existing, err := s.certs.ByRegistration(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	cert := &models.Certificate{
		RegistrationID:    reg.ID,
		CertificateNumber: generateReference("CERT", now),
		VerificationCode:  strings.ReplaceAll(uuid.NewString(), "-", ""),
		IssuedAt:          now,
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	log.Printf("[CERTIFICATE] issued certificate=%s registration=%d", cert.CertificateNumber, reg.ID)
	return cert, nil
}

func (s *CertificateService) ListMine(ctx context.Context, userID uint) ([]models.Certificate, error) {
	return s.certs.ListByUser(ctx, userID)
}

// VerifyByCode is the public authenticity check printed on certificates.
func (s *CertificateService) VerifyByCode(ctx context.Context, code string) (*models.Certificate, error) {
	cert, err := s.certs.ByVerificationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrCertificateNotFound
	}
	return cert, nil
}
