package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"oriyet/internal/clock"
	"oriyet/internal/domain"
	"oriyet/internal/models"
	"oriyet/internal/repository"
	"oriyet/pkg/cloudinary"
)

// EventService is the admin CRUD surface plus the public catalogue.
type EventService struct {
	events   EventStore
	lookups  Lookups
	uploader cloudinary.Client
	clock    clock.Clock
}

func NewEventService(events EventStore, lookups Lookups, uploader cloudinary.Client, clk clock.Clock) *EventService {
	return &EventService{events: events, lookups: lookups, uploader: uploader, clock: clk}
}

type EventInput struct {
	Title                string
	Description          string
	TypeCode             string
	ModeCode             string
	Price                float64
	Currency             string
	MaxParticipants      int
	StartDate            time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	OnlineLink           string
	OnlinePlatform       string
	IsPublished          bool
}

func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	typeID, err := s.lookups.EventTypeID(ctx, in.TypeCode)
	if err != nil {
		return nil, err
	}
	modeID, err := s.lookups.EventModeID(ctx, in.ModeCode)
	if err != nil {
		return nil, err
	}
	statusID, err := s.lookups.EventStatusID(ctx, domain.EventUpcoming)
	if err != nil {
		return nil, err
	}
	regStatusID, err := s.lookups.RegistrationStatusID(ctx, domain.RegistrationOpen)
	if err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = "BDT"
	}

	event := &models.Event{
		Title:                in.Title,
		Slug:                 slug,
		Description:          in.Description,
		TypeID:               typeID,
		ModeID:               modeID,
		StatusID:             statusID,
		RegistrationStatusID: regStatusID,
		Price:                in.Price,
		Currency:             currency,
		MaxParticipants:      in.MaxParticipants,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		RegistrationDeadline: in.RegistrationDeadline,
		OnlineLink:           in.OnlineLink,
		OnlinePlatform:       in.OnlinePlatform,
		IsPublished:          in.IsPublished,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	log.Printf("[EVENT] created event=%d slug=%s", event.ID, event.Slug)
	return event, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, id uint, in EventInput) (*models.Event, error) {
	event, err := s.events.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	if in.Title != "" && in.Title != event.Title {
		event.Title = in.Title
		slug, err := s.uniqueSlug(ctx, in.Title)
		if err != nil {
			return nil, err
		}
		event.Slug = slug
	}
	if in.Description != "" {
		event.Description = in.Description
	}
	if in.TypeCode != "" {
		typeID, err := s.lookups.EventTypeID(ctx, in.TypeCode)
		if err != nil {
			return nil, err
		}
		event.TypeID = typeID
	}
	if in.ModeCode != "" {
		modeID, err := s.lookups.EventModeID(ctx, in.ModeCode)
		if err != nil {
			return nil, err
		}
		event.ModeID = modeID
	}
	if in.Price >= 0 {
		event.Price = in.Price
	}
	if in.Currency != "" {
		event.Currency = in.Currency
	}
	if in.MaxParticipants >= 0 {
		event.MaxParticipants = in.MaxParticipants
	}
	if !in.StartDate.IsZero() {
		event.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		event.EndDate = in.EndDate
	}
	if in.RegistrationDeadline != nil {
		event.RegistrationDeadline = in.RegistrationDeadline
	}
	if in.OnlineLink != "" {
		event.OnlineLink = in.OnlineLink
	}
	if in.OnlinePlatform != "" {
		event.OnlinePlatform = in.OnlinePlatform
	}
	event.IsPublished = in.IsPublished

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id uint) error {
	event, err := s.events.ByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	return s.events.Delete(ctx, id)
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.events.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// GetPublishedBySlug is the public detail endpoint; unpublished events stay
// invisible.
func (s *EventService) GetPublishedBySlug(ctx context.Context, slug string) (*models.Event, error) {
	event, err := s.events.BySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if event == nil || !event.IsPublished {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

func (s *EventService) ListPublished(ctx context.Context, f repository.EventFilters) ([]models.Event, int64, error) {
	return s.events.ListPublished(ctx, f)
}

// SetRegistrationStatus lets an admin open or close registration manually.
func (s *EventService) SetRegistrationStatus(ctx context.Context, id uint, code string) error {
	event, err := s.events.ByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return domain.ErrEventNotFound
	}
	return s.events.SetRegistrationStatus(ctx, id, code)
}

// UploadCover stores the cover image and saves its delivery URL.
func (s *EventService) UploadCover(ctx context.Context, id uint, file io.Reader) (*models.Event, error) {
	event, err := s.events.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	url, _, err := s.uploader.UploadImage(ctx, file, "events", fmt.Sprintf("event-%d-cover", id))
	if err != nil {
		return nil, fmt.Errorf("upload cover: %w", err)
	}
	event.CoverURL = url
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateStatuses is the scheduled job body rolling upcoming events into
// ongoing and ongoing past their end into completed.
func (s *EventService) UpdateStatuses(ctx context.Context) (int64, error) {
	n, err := s.events.RollStatuses(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[EVENT] rolled %d event statuses", n)
	}
	return n, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// uniqueSlug appends a counter when the natural slug is taken.
func (s *EventService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "event"
	}
	slug := base
	for i := 2; ; i++ {
		existing, err := s.events.BySlug(ctx, slug)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
