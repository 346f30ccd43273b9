// Package migrate applies versioned data migrations on top of the gorm
// managed schema. Applied versions are recorded in a ledger table so every
// migration runs exactly once, replacing the one-off repair scripts of the
// legacy system.
package migrate

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// SchemaMigration is one row of the applied-migrations ledger.
type SchemaMigration struct {
	// Version is the migration number.
	Version int `gorm:"primaryKey;autoIncrement:false"`
	// Name describes the migration.
	Name string `gorm:"size:150;not null"`
	// AppliedAt is the timestamp the migration ran.
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the database table name for the ledger.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// migration is one versioned data migration.
type migration struct {
	version int
	name    string
	run     func(tx *gorm.DB) error
}

// migrations in ascending version order.
var migrations = []migration{
	{
		version: 1,
		name:    "normalize field lock context",
		run:     normalizeFieldLockContext,
	},
	{
		version: 2,
		name:    "backfill response context field locks",
		run:     backfillResponseFieldLocks,
	},
}

// Run applies all pending migrations, each inside its own transaction
// together with its ledger entry.
func Run(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return err
	}

	for _, m := range migrations {
		var count int64
		if err := db.Model(&SchemaMigration{}).Where("version = ?", m.version).Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.run(tx); err != nil {
				return err
			}

			return tx.Create(&SchemaMigration{
				Version:   m.version,
				Name:      m.name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return err
		}

		log.Info().Int("version", m.version).Str("name", m.name).Msg("migration applied")
	}

	return nil
}

// normalizeFieldLockContext defaults the context of historical rows that
// predate the context column to "creation".
func normalizeFieldLockContext(tx *gorm.DB) error {
	return tx.Model(&models.FieldLock{}).
		Where("context IS NULL OR context = ''").
		Update("context", models.ContextCreation).Error
}

// backfillResponseFieldLocks duplicates every creation-context lock into the
// response context with identical flags, so a report's lock state is defined
// for both lifecycle contexts even where historically only one was
// configured. Rows that already have a response counterpart are skipped.
func backfillResponseFieldLocks(tx *gorm.DB) error {
	var creationLocks []models.FieldLock
	if err := tx.Where("context = ?", models.ContextCreation).Find(&creationLocks).Error; err != nil {
		return err
	}

	for _, lock := range creationLocks {
		var count int64
		err := tx.Model(&models.FieldLock{}).
			Where("group_id = ? AND field_name = ? AND context = ?",
				lock.GroupID, lock.FieldName, models.ContextResponse).
			Count(&count).Error
		if err != nil {
			return err
		}

		if count > 0 {
			continue
		}

		copied := models.FieldLock{
			GroupID:    lock.GroupID,
			FieldName:  lock.FieldName,
			Context:    models.ContextResponse,
			IsLocked:   lock.IsLocked,
			IsRequired: lock.IsRequired,
		}

		if err := tx.Create(&copied).Error; err != nil {
			return err
		}
	}

	return nil
}
