package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillOwnerPermissions = "2026-07-12_backfill_owner_permissions"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillOwnerPermissions, apply: backfillOwnerPermissions},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillOwnerPermissions repairs events that predate the owner
// invariant: every event must carry an Owner permission row for its
// creator.
func backfillOwnerPermissions(db *gorm.DB) error {
	const insert = `
		INSERT INTO permissions (user_id, event_id, role)
		SELECT e.creator_id, e.id, 'Owner'
		FROM events e
		WHERE NOT EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.event_id = e.id AND p.role = 'Owner'
		)`
	return db.Exec(insert).Error
}
