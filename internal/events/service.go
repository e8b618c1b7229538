package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew  = "events.service.new"
	opCreate      = "events.create"
	opList        = "events.list"
	opGet         = "events.get"
	opUpdate      = "events.update"
	opDelete      = "events.delete"
	opBatchCreate = "events.batch_create"
)

// ServiceConfig describes the dependencies for the event service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service implements the permission-scoped event store, the sharing
// manager and the history log over a single persistence handle.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the event service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// Create inserts the event and assigns the creator the Owner role.
// Both rows commit together or not at all.
func (s *Service) Create(ctx context.Context, creatorID uint, fields EventFields) (Event, error) {
	event := Event{
		Title:             fields.Title,
		Description:       fields.Description,
		StartTime:         fields.StartTime,
		EndTime:           fields.EndTime,
		Location:          fields.Location,
		IsRecurring:       fields.IsRecurring,
		RecurrencePattern: fields.RecurrencePattern,
		CreatedAt:         s.clock().UTC(),
		CreatorID:         creatorID,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return newServiceError(opCreate, "event_insert_failed", err)
		}
		permission := Permission{UserID: creatorID, EventID: event.ID, Role: RoleOwner}
		if err := tx.Create(&permission).Error; err != nil {
			return newServiceError(opCreate, "owner_permission_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opCreate, "transaction_failed", txErr, zap.Uint("creator_id", creatorID))
		return Event{}, txErr
	}

	return event, nil
}

// List returns the page of events the actor holds any permission on.
func (s *Service) List(ctx context.Context, actorID uint, skip, limit int) ([]Event, error) {
	accessible := s.db.Model(&Permission{}).
		Select("event_id").
		Where("user_id = ?", actorID)

	var result []Event
	err := s.db.WithContext(ctx).
		Where("id IN (?)", accessible).
		Offset(skip).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.Uint("actor_id", actorID))
		return nil, newServiceError(opList, "query_failed", err)
	}

	return result, nil
}

// Get loads a single event. The permission check runs before the
// existence check, so an actor without a role receives access denied
// even when the event does not exist.
func (s *Service) Get(ctx context.Context, actorID, eventID uint) (Event, error) {
	if err := s.authorize(ctx, opGet, actorID, eventID, OperationRead); err != nil {
		return Event{}, err
	}

	event, err := s.loadEvent(ctx, s.db, opGet, eventID)
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// Update replaces every editable attribute of the event with the
// supplied fields. The state prior to the change is appended to the
// history log inside the same transaction.
func (s *Service) Update(ctx context.Context, actorID, eventID uint, fields EventFields) (Event, error) {
	if err := s.authorize(ctx, opUpdate, actorID, eventID, OperationUpdate); err != nil {
		return Event{}, err
	}

	var updated Event
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.loadEvent(ctx, tx, opUpdate, eventID)
		if err != nil {
			return err
		}

		snapshot := s.snapshotOf(event, actorID)
		if err := tx.Create(&snapshot).Error; err != nil {
			return newServiceError(opUpdate, "history_insert_failed", err)
		}

		event.Title = fields.Title
		event.Description = fields.Description
		event.StartTime = fields.StartTime
		event.EndTime = fields.EndTime
		event.Location = fields.Location
		event.IsRecurring = fields.IsRecurring
		event.RecurrencePattern = fields.RecurrencePattern
		if err := tx.Save(&event).Error; err != nil {
			return newServiceError(opUpdate, "event_save_failed", err)
		}

		updated = event
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opUpdate, "transaction_failed", txErr,
				zap.Uint("actor_id", actorID), zap.Uint("event_id", eventID))
		}
		return Event{}, txErr
	}

	return updated, nil
}

// Delete removes the event together with its permission rows and
// history entries, leaving no orphans behind. Owner only.
func (s *Service) Delete(ctx context.Context, actorID, eventID uint) error {
	if err := s.authorize(ctx, opDelete, actorID, eventID, OperationDelete); err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadEvent(ctx, tx, opDelete, eventID); err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&Permission{}).Error; err != nil {
			return newServiceError(opDelete, "permission_cascade_failed", err)
		}
		if err := tx.Where("event_id = ?", eventID).Delete(&EventHistory{}).Error; err != nil {
			return newServiceError(opDelete, "history_cascade_failed", err)
		}
		if err := tx.Delete(&Event{}, eventID).Error; err != nil {
			return newServiceError(opDelete, "event_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opDelete, "transaction_failed", txErr,
				zap.Uint("actor_id", actorID), zap.Uint("event_id", eventID))
		}
		return txErr
	}

	return nil
}

// BatchCreate applies Create sequentially for each item. Every element
// commits independently, so a failure partway through leaves earlier
// events persisted; the slice returned alongside the error holds them.
func (s *Service) BatchCreate(ctx context.Context, creatorID uint, items []EventFields) ([]Event, error) {
	created := make([]Event, 0, len(items))
	for _, fields := range items {
		event, err := s.Create(ctx, creatorID, fields)
		if err != nil {
			return created, newServiceError(opBatchCreate, "item_failed", err)
		}
		created = append(created, event)
	}
	return created, nil
}

// roleOf looks up the actor's role on the event. An empty role means
// no permission row exists.
func (s *Service) roleOf(ctx context.Context, userID, eventID uint) (Role, error) {
	var permission Permission
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Take(&permission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return permission.Role, nil
}

func (s *Service) authorize(ctx context.Context, operation string, actorID, eventID uint, op Operation) error {
	role, err := s.roleOf(ctx, actorID, eventID)
	if err != nil {
		s.logError(operation, "permission_lookup_failed", err,
			zap.Uint("actor_id", actorID), zap.Uint("event_id", eventID))
		return newServiceError(operation, "permission_lookup_failed", err)
	}
	if !Authorize(role, op) {
		return newServiceError(operation, "access_denied", ErrAccessDenied)
	}
	return nil
}

func (s *Service) loadEvent(ctx context.Context, tx *gorm.DB, operation string, eventID uint) (Event, error) {
	var event Event
	err := tx.WithContext(ctx).Take(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, newServiceError(operation, "event_missing", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "event_select_failed", err, zap.Uint("event_id", eventID))
		return Event{}, newServiceError(operation, "event_select_failed", err)
	}
	return event, nil
}

func (s *Service) snapshotOf(event Event, changedBy uint) EventHistory {
	return EventHistory{
		EventID:           event.ID,
		Timestamp:         s.clock().UTC(),
		Title:             event.Title,
		Description:       event.Description,
		StartTime:         event.StartTime,
		EndTime:           event.EndTime,
		Location:          event.Location,
		RecurrencePattern: event.RecurrencePattern,
		ChangedBy:         changedBy,
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("events service error", attrs...)
}
