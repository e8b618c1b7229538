package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opChangelog = "events.changelog"
	opVersion   = "events.version"
	opRollback  = "events.rollback"
	opDiff      = "events.diff"
)

// diffFields fixes the order in which field diffs are emitted.
var diffFields = []string{
	"title",
	"description",
	"start_time",
	"end_time",
	"location",
	"recurrence_pattern",
}

// Changelog returns the event's history, most recent first. Ties on
// timestamp are broken by insertion order.
func (s *Service) Changelog(ctx context.Context, actorID, eventID uint) ([]EventHistory, error) {
	if err := s.authorize(ctx, opChangelog, actorID, eventID, OperationRead); err != nil {
		return nil, err
	}

	var result []EventHistory
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp DESC, id DESC").
		Find(&result).Error
	if err != nil {
		s.logError(opChangelog, "query_failed", err, zap.Uint("event_id", eventID))
		return nil, newServiceError(opChangelog, "query_failed", err)
	}

	return result, nil
}

// Version loads a single snapshot. The lookup is scoped to the event,
// so a version id belonging to a different event reads as not found.
func (s *Service) Version(ctx context.Context, actorID, eventID, versionID uint) (EventHistory, error) {
	if err := s.authorize(ctx, opVersion, actorID, eventID, OperationRead); err != nil {
		return EventHistory{}, err
	}

	return s.loadVersion(ctx, s.db, opVersion, eventID, versionID)
}

// Rollback restores the event's editable fields from the target
// snapshot. The pre-rollback state is appended to the history log in
// the same transaction, so the rollback itself is auditable.
// IsRecurring, CreatorID and CreatedAt are left untouched; snapshots
// do not record them.
func (s *Service) Rollback(ctx context.Context, actorID, eventID, versionID uint) (Event, error) {
	if err := s.authorize(ctx, opRollback, actorID, eventID, OperationUpdate); err != nil {
		return Event{}, err
	}

	var restored Event
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := s.loadVersion(ctx, tx, opRollback, eventID, versionID)
		if err != nil {
			return err
		}

		event, err := s.loadEvent(ctx, tx, opRollback, eventID)
		if err != nil {
			return err
		}

		snapshot := s.snapshotOf(event, actorID)
		if err := tx.Create(&snapshot).Error; err != nil {
			return newServiceError(opRollback, "history_insert_failed", err)
		}

		event.Title = version.Title
		event.Description = version.Description
		event.StartTime = version.StartTime
		event.EndTime = version.EndTime
		event.Location = version.Location
		event.RecurrencePattern = version.RecurrencePattern
		if err := tx.Save(&event).Error; err != nil {
			return newServiceError(opRollback, "event_save_failed", err)
		}

		restored = event
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opRollback, "transaction_failed", txErr,
				zap.Uint("event_id", eventID), zap.Uint("version_id", versionID))
		}
		return Event{}, txErr
	}

	return restored, nil
}

// Diff compares two snapshots of the same event field by field. Only
// fields whose stringified values differ are reported, in the fixed
// diffFields order. The first version supplied is always treated as
// the old side regardless of which snapshot is chronologically older.
func (s *Service) Diff(ctx context.Context, actorID, eventID, versionA, versionB uint) ([]FieldDiff, error) {
	if err := s.authorize(ctx, opDiff, actorID, eventID, OperationRead); err != nil {
		return nil, err
	}

	first, err := s.loadVersion(ctx, s.db, opDiff, eventID, versionA)
	if err != nil {
		return nil, err
	}
	second, err := s.loadVersion(ctx, s.db, opDiff, eventID, versionB)
	if err != nil {
		return nil, err
	}

	result := make([]FieldDiff, 0, len(diffFields))
	for _, field := range diffFields {
		oldValue := historyFieldValue(first, field)
		newValue := historyFieldValue(second, field)
		if oldValue != newValue {
			result = append(result, FieldDiff{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}

	return result, nil
}

func (s *Service) loadVersion(ctx context.Context, tx *gorm.DB, operation string, eventID, versionID uint) (EventHistory, error) {
	var version EventHistory
	err := tx.WithContext(ctx).
		Where("id = ? AND event_id = ?", versionID, eventID).
		Take(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EventHistory{}, newServiceError(operation, "version_missing", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "version_select_failed", err,
			zap.Uint("event_id", eventID), zap.Uint("version_id", versionID))
		return EventHistory{}, newServiceError(operation, "version_select_failed", err)
	}
	return version, nil
}

func historyFieldValue(version EventHistory, field string) string {
	switch field {
	case "title":
		return version.Title
	case "description":
		return version.Description
	case "start_time":
		return formatTimestamp(version.StartTime)
	case "end_time":
		return formatTimestamp(version.EndTime)
	case "location":
		return version.Location
	case "recurrence_pattern":
		return version.RecurrencePattern
	default:
		return ""
	}
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}
