// Package notification implements the persistent notification state machine.
//
// Each row moves ACTIVE -> RESPONDED | DISMISSED, or expires implicitly once
// its attempt ceiling is reached. Expired rows are retained for audit; the
// Pending query simply stops returning them.
package notification

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

const (
	activeQueryPattern = "responded_at IS NULL AND dismissed_at IS NULL"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")
)

// UpdateResult tags the outcome of an ownership-checked state transition.
// The legacy system collapsed NotFound and Forbidden into a silent no-op;
// keeping them apart lets callers and tests tell the cases apart while the
// HTTP layer still maps both to a generic response.
type UpdateResult int

const (
	// ResultOk means the transition was applied.
	ResultOk UpdateResult = iota
	// ResultNotFound means no such notification exists or it is already resolved.
	ResultNotFound
	// ResultForbidden means the notification belongs to another user.
	ResultForbidden
)

// Pending returns the caller's ACTIVE notifications that are currently
// eligible to surface: next_eligible_time has passed and the attempt ceiling
// is not reached. Most recent first. Pure read; the caller decides whether to
// actually display them and then calls MarkShown.
func Pending(db *gorm.DB, userID uint64) ([]models.Notification, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []models.Notification
	err := db.Where("recipient_id = ?", userID).
		Where(activeQueryPattern).
		Where("is_persistent = ?", true).
		Where("next_eligible_time <= ?", time.Now()).
		Where("attempts_made < max_attempts").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// MarkShown records one surfacing of the notification: attempts_made is
// incremented and next_eligible_time pushed one repeat interval into the
// future. Concurrent callers may both record a surfacing; delivery is
// at-least-once and an extra nag is tolerated.
func MarkShown(db *gorm.DB, notificationID uint64) error {
	if db == nil {
		return ErrDBNil
	}

	var row models.Notification
	if err := db.First(&row, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}

		return err
	}

	result := db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]interface{}{
			"attempts_made":      gorm.Expr("attempts_made + 1"),
			"next_eligible_time": time.Now().Add(time.Duration(row.RepeatIntervalMinutes) * time.Minute),
		})
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// Respond transitions an ACTIVE notification to RESPONDED. The transition is
// only applied when userID matches the recipient; otherwise the row is left
// untouched and the mismatch is reported through the result tag.
func Respond(db *gorm.DB, notificationID, userID uint64, responseText string) (UpdateResult, error) {
	if db == nil {
		return ResultNotFound, ErrDBNil
	}

	return resolve(db, notificationID, userID, map[string]interface{}{
		"responded_at":  time.Now(),
		"response_text": responseText,
	})
}

// Dismiss transitions an ACTIVE notification to DISMISSED. Same ownership
// rule as Respond.
func Dismiss(db *gorm.DB, notificationID, userID uint64) (UpdateResult, error) {
	if db == nil {
		return ResultNotFound, ErrDBNil
	}

	return resolve(db, notificationID, userID, map[string]interface{}{
		"dismissed_at": time.Now(),
	})
}

// resolve applies a terminal transition after the ownership check.
func resolve(db *gorm.DB, notificationID, userID uint64, updates map[string]interface{}) (UpdateResult, error) {
	var row models.Notification
	err := db.Where(activeQueryPattern).First(&row, notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return ResultNotFound, err
	}

	if row.RecipientID != userID {
		return ResultForbidden, nil
	}

	result := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Where(activeQueryPattern).
		Updates(updates)
	if result.Error != nil {
		return ResultNotFound, result.Error
	}

	// A concurrent resolver may have won the race between the read and the
	// guarded update; report NotFound in that case.
	if result.RowsAffected == 0 {
		return ResultNotFound, nil
	}

	return ResultOk, nil
}

// CountActive returns the number of unresolved notifications for a user,
// including ones that are not currently eligible. Used by the dashboard badge.
func CountActive(db *gorm.DB, userID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := db.Model(&models.Notification{}).
		Where("recipient_id = ?", userID).
		Where(activeQueryPattern).
		Where("attempts_made < max_attempts").
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
