package events

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opShare            = "events.share"
	opListPermissions  = "events.list_permissions"
	opUpdatePermission = "events.update_permission"
	opRemovePermission = "events.remove_permission"
)

// Share grants or updates roles for the supplied users. Authorization
// is checked once for the actor, not per item. Existing permission
// rows are overwritten with the new role (idempotent upsert); the
// resulting rows are returned in input order.
func (s *Service) Share(ctx context.Context, actorID, eventID uint, entries []ShareEntry) ([]Permission, error) {
	if err := s.authorize(ctx, opShare, actorID, eventID, OperationShare); err != nil {
		return nil, err
	}

	result := make([]Permission, 0, len(entries))
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			var permission Permission
			err := tx.Where("user_id = ? AND event_id = ?", entry.UserID, eventID).
				Take(&permission).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				permission = Permission{UserID: entry.UserID, EventID: eventID, Role: entry.Role}
				if err := tx.Create(&permission).Error; err != nil {
					return newServiceError(opShare, "permission_insert_failed", err)
				}
			case err != nil:
				return newServiceError(opShare, "permission_select_failed", err)
			default:
				permission.Role = entry.Role
				if err := tx.Save(&permission).Error; err != nil {
					return newServiceError(opShare, "permission_save_failed", err)
				}
			}
			result = append(result, permission)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opShare, "transaction_failed", txErr,
			zap.Uint("actor_id", actorID), zap.Uint("event_id", eventID))
		return nil, txErr
	}

	return result, nil
}

// ListPermissions returns every permission row on the event. Any role
// grants access.
func (s *Service) ListPermissions(ctx context.Context, actorID, eventID uint) ([]Permission, error) {
	if err := s.authorize(ctx, opListPermissions, actorID, eventID, OperationRead); err != nil {
		return nil, err
	}

	var result []Permission
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Find(&result).Error
	if err != nil {
		s.logError(opListPermissions, "query_failed", err, zap.Uint("event_id", eventID))
		return nil, newServiceError(opListPermissions, "query_failed", err)
	}

	return result, nil
}

// UpdatePermission changes the role on an existing permission row.
// Owner only; fails with not found when no row exists for the pair.
func (s *Service) UpdatePermission(ctx context.Context, actorID, eventID, targetUserID uint, role Role) (Permission, error) {
	if err := s.authorize(ctx, opUpdatePermission, actorID, eventID, OperationManagePermissions); err != nil {
		return Permission{}, err
	}

	permission, err := s.loadPermission(ctx, opUpdatePermission, targetUserID, eventID)
	if err != nil {
		return Permission{}, err
	}

	permission.Role = role
	if err := s.db.WithContext(ctx).Save(&permission).Error; err != nil {
		s.logError(opUpdatePermission, "permission_save_failed", err,
			zap.Uint("event_id", eventID), zap.Uint("target_user_id", targetUserID))
		return Permission{}, newServiceError(opUpdatePermission, "permission_save_failed", err)
	}

	return permission, nil
}

// RemovePermission revokes the target user's access to the event.
// Owner only; fails with not found when no row exists for the pair.
func (s *Service) RemovePermission(ctx context.Context, actorID, eventID, targetUserID uint) error {
	if err := s.authorize(ctx, opRemovePermission, actorID, eventID, OperationManagePermissions); err != nil {
		return err
	}

	permission, err := s.loadPermission(ctx, opRemovePermission, targetUserID, eventID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&permission).Error; err != nil {
		s.logError(opRemovePermission, "permission_delete_failed", err,
			zap.Uint("event_id", eventID), zap.Uint("target_user_id", targetUserID))
		return newServiceError(opRemovePermission, "permission_delete_failed", err)
	}

	return nil
}

func (s *Service) loadPermission(ctx context.Context, operation string, userID, eventID uint) (Permission, error) {
	var permission Permission
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Take(&permission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Permission{}, newServiceError(operation, "permission_missing", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "permission_select_failed", err,
			zap.Uint("event_id", eventID), zap.Uint("target_user_id", userID))
		return Permission{}, newServiceError(operation, "permission_select_failed", err)
	}
	return permission, nil
}
