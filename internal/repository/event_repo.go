package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/lookup"
	"oriyet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository struct {
	db     *gorm.DB
	lookup *lookup.Cache
}

func NewEventRepository(db *gorm.DB, lc *lookup.Cache) *EventRepository {
	return &EventRepository{db: db, lookup: lc}
}

func (r *EventRepository) preloaded(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Preload("Type").Preload("Mode").Preload("Status").Preload("RegistrationStatus")
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	return conn(ctx, r.db).Create(e).Error
}

func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	return conn(ctx, r.db).Save(e).Error
}

func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&models.Event{}, id).Error
}

func (r *EventRepository) ByID(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	err := r.preloaded(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) BySlug(ctx context.Context, slug string) (*models.Event, error) {
	var e models.Event
	err := r.preloaded(ctx).Where("slug = ?", slug).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ByIDForUpdate locks the event row for the rest of the ambient transaction.
// Capacity checks and participant-count changes go through this lock.
func (r *EventRepository) ByIDForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	var e models.Event
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// IncrementParticipants bumps the live count only while capacity remains.
// Returns false when the event is already full.
func (r *EventRepository) IncrementParticipants(ctx context.Context, id uint) (bool, error) {
	res := conn(ctx, r.db).Model(&models.Event{}).
		Where("id = ? AND (max_participants = 0 OR current_participants < max_participants)", id).
		UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EventRepository) DecrementParticipants(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Model(&models.Event{}).
		Where("id = ? AND current_participants > 0", id).
		UpdateColumn("current_participants", gorm.Expr("current_participants - 1")).Error
}

func (r *EventRepository) SetRegistrationStatus(ctx context.Context, id uint, code string) error {
	statusID, err := r.lookup.RegistrationStatusID(ctx, code)
	if err != nil {
		return err
	}
	return conn(ctx, r.db).Model(&models.Event{}).
		Where("id = ?", id).
		Update("registration_status_id", statusID).Error
}

type EventFilters struct {
	TypeCode   string
	ModeCode   string
	StatusCode string
	Search     string
	Page       int
	Limit      int
}

func (r *EventRepository) ListPublished(ctx context.Context, f EventFilters) ([]models.Event, int64, error) {
	q := r.preloaded(ctx).Where("is_published = ?", true)
	// Filter codes come from the query string: an unknown code is caller
	// input, not a missing seed row.
	if f.TypeCode != "" {
		id, err := r.lookup.EventTypeID(ctx, f.TypeCode)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: type %q", domain.ErrInvalidFilter, f.TypeCode)
		}
		q = q.Where("type_id = ?", id)
	}
	if f.ModeCode != "" {
		id, err := r.lookup.EventModeID(ctx, f.ModeCode)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: mode %q", domain.ErrInvalidFilter, f.ModeCode)
		}
		q = q.Where("mode_id = ?", id)
	}
	if f.StatusCode != "" {
		id, err := r.lookup.EventStatusID(ctx, f.StatusCode)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: status %q", domain.ErrInvalidFilter, f.StatusCode)
		}
		q = q.Where("status_id = ?", id)
	}
	if f.Search != "" {
		q = q.Where("title LIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Model(&models.Event{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var events []models.Event
	err := q.Order("start_date ASC").Offset((page - 1) * limit).Limit(limit).Find(&events).Error
	return events, total, err
}

// RollStatuses advances upcoming events whose start date has passed to
// ongoing, and ongoing events past their end date to completed. Returns the
// number of rows touched.
func (r *EventRepository) RollStatuses(ctx context.Context, now time.Time) (int64, error) {
	upcomingID, err := r.lookup.EventStatusID(ctx, domain.EventUpcoming)
	if err != nil {
		return 0, err
	}
	ongoingID, err := r.lookup.EventStatusID(ctx, domain.EventOngoing)
	if err != nil {
		return 0, err
	}
	completedID, err := r.lookup.EventStatusID(ctx, domain.EventCompleted)
	if err != nil {
		return 0, err
	}

	started := conn(ctx, r.db).Model(&models.Event{}).
		Where("status_id = ? AND start_date <= ?", upcomingID, now).
		Update("status_id", ongoingID)
	if started.Error != nil {
		return 0, started.Error
	}
	finished := conn(ctx, r.db).Model(&models.Event{}).
		Where("status_id = ? AND end_date IS NOT NULL AND end_date <= ?", ongoingID, now).
		Update("status_id", completedID)
	if finished.Error != nil {
		return started.RowsAffected, finished.Error
	}
	return started.RowsAffected + finished.RowsAffected, nil
}
