// Package fieldlock provides CRUD operations for per-group field edit locks.
package fieldlock

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

const (
	keyQueryPattern = "group_id = ? AND field_name = ? AND context = ?"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrFieldNameEmpty is returned when the field name is empty.
	ErrFieldNameEmpty = errors.New("field name cannot be empty")
	// ErrInvalidContext is returned for a context outside creation/response.
	ErrInvalidContext = errors.New("context must be creation or response")
)

// validContext reports whether ctx is one of the two lifecycle contexts.
func validContext(ctx models.LockContext) bool {
	return ctx == models.ContextCreation || ctx == models.ContextResponse
}

// Set creates or updates the lock for (groupID, fieldName, context).
// The upsert is idempotent: repeating a call leaves exactly one row for the key.
func Set(db *gorm.DB, groupID uint, fieldName string, context models.LockContext, isLocked, isRequired bool) (*models.FieldLock, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if fieldName == "" {
		return nil, ErrFieldNameEmpty
	}
	if !validContext(context) {
		return nil, ErrInvalidContext
	}

	var lock models.FieldLock
	result := db.Where(keyQueryPattern, groupID, fieldName, context).First(&lock)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		lock = models.FieldLock{
			GroupID:    groupID,
			FieldName:  fieldName,
			Context:    context,
			IsLocked:   isLocked,
			IsRequired: isRequired,
		}

		if err := db.Create(&lock).Error; err != nil {
			return nil, err
		}

		return &lock, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	lock.IsLocked = isLocked
	lock.IsRequired = isRequired

	if err := db.Save(&lock).Error; err != nil {
		return nil, err
	}

	return &lock, nil
}

// Get retrieves the lock for (groupID, fieldName, context).
// A missing row is reported via gorm.ErrRecordNotFound so callers can apply
// the default-allow rule themselves.
func Get(db *gorm.DB, groupID uint, fieldName string, context models.LockContext) (*models.FieldLock, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if fieldName == "" {
		return nil, ErrFieldNameEmpty
	}
	if !validContext(context) {
		return nil, ErrInvalidContext
	}

	var lock models.FieldLock
	if err := db.Where(keyQueryPattern, groupID, fieldName, context).First(&lock).Error; err != nil {
		return nil, err
	}

	return &lock, nil
}

// ListByGroup retrieves all locks of one group across both contexts.
func ListByGroup(db *gorm.DB, groupID uint) ([]models.FieldLock, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var locks []models.FieldLock
	if err := db.Where("group_id = ?", groupID).
		Order("field_name ASC, context ASC").
		Find(&locks).Error; err != nil {
		return nil, err
	}

	return locks, nil
}

// ListAll retrieves every lock, ordered for the admin settings page.
func ListAll(db *gorm.DB) ([]models.FieldLock, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var locks []models.FieldLock
	if err := db.Order("group_id ASC, field_name ASC, context ASC").
		Find(&locks).Error; err != nil {
		return nil, err
	}

	return locks, nil
}

// Delete removes the lock for (groupID, fieldName, context).
// Removing a lock restores the default-allow behavior for the field.
func Delete(db *gorm.DB, groupID uint, fieldName string, context models.LockContext) error {
	if db == nil {
		return ErrDBNil
	}
	if fieldName == "" {
		return ErrFieldNameEmpty
	}
	if !validContext(context) {
		return ErrInvalidContext
	}

	return db.Where(keyQueryPattern, groupID, fieldName, context).
		Delete(&models.FieldLock{}).Error
}
