// Package grouppermission provides CRUD operations for group permission flags.
package grouppermission

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

const (
	keyQueryPattern = "group_id = ? AND permission_name = ?"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrPermissionNameEmpty is returned when the permission name is empty.
	ErrPermissionNameEmpty = errors.New("permission name cannot be empty")
)

// Set creates or updates the flag for (groupID, permissionName).
// The upsert is idempotent, keyed by the unique (group, permission) pair.
func Set(db *gorm.DB, groupID uint, permissionName string, allowed bool) (*models.GroupPermission, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if permissionName == "" {
		return nil, ErrPermissionNameEmpty
	}

	var flag models.GroupPermission
	result := db.Where(keyQueryPattern, groupID, permissionName).First(&flag)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		flag = models.GroupPermission{
			GroupID:        groupID,
			PermissionName: permissionName,
			Allowed:        allowed,
		}

		if err := db.Create(&flag).Error; err != nil {
			return nil, err
		}

		return &flag, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	flag.Allowed = allowed

	if err := db.Save(&flag).Error; err != nil {
		return nil, err
	}

	return &flag, nil
}

// Get retrieves the flag for (groupID, permissionName).
// A missing row is reported via gorm.ErrRecordNotFound; the evaluator treats
// it as denied.
func Get(db *gorm.DB, groupID uint, permissionName string) (*models.GroupPermission, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if permissionName == "" {
		return nil, ErrPermissionNameEmpty
	}

	var flag models.GroupPermission
	if err := db.Where(keyQueryPattern, groupID, permissionName).First(&flag).Error; err != nil {
		return nil, err
	}

	return &flag, nil
}

// ListByGroup retrieves all permission flags of one group.
func ListByGroup(db *gorm.DB, groupID uint) ([]models.GroupPermission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var flags []models.GroupPermission
	if err := db.Where("group_id = ?", groupID).
		Order("permission_name ASC").
		Find(&flags).Error; err != nil {
		return nil, err
	}

	return flags, nil
}

// Delete removes the flag for (groupID, permissionName).
func Delete(db *gorm.DB, groupID uint, permissionName string) error {
	if db == nil {
		return ErrDBNil
	}
	if permissionName == "" {
		return ErrPermissionNameEmpty
	}

	return db.Where(keyQueryPattern, groupID, permissionName).
		Delete(&models.GroupPermission{}).Error
}
