package models

import "time"

// Notification is one per-recipient delivery of a change record. Persistent
// notifications resurface on a fixed cadence until the recipient responds or
// dismisses them, or the attempt ceiling is reached. An exhausted row is kept
// for audit, it just stops being eligible.
//
// Row states:
//
//	ACTIVE    responded_at and dismissed_at are both nil
//	RESPONDED responded_at set
//	DISMISSED dismissed_at set
//	EXPIRED   still ACTIVE but attempts_made >= max_attempts (implicit)
type Notification struct {
	// ID is the unique identifier for the notification.
	ID uint64 `gorm:"primaryKey"`
	// ChangeRecordID is the change this notification delivers.
	ChangeRecordID uint64 `gorm:"not null;index"`
	// ChangeRecord is the associated change record (loaded via foreign key).
	ChangeRecord ChangeRecord `gorm:"foreignKey:ChangeRecordID"`
	// ReportID is the report the change belongs to (denormalized for the API).
	ReportID uint64 `gorm:"not null;index"`
	// RecipientID is the user this notification belongs to.
	RecipientID uint64 `gorm:"not null;index"`
	// Title is the rendered notification title.
	Title string `gorm:"size:255;not null"`
	// Message is the rendered notification body.
	Message string `gorm:"type:text"`
	// ChangeType mirrors the change record's type for the pending API.
	ChangeType ChangeType `gorm:"type:varchar(20);not null"`
	// IsPersistent enables the resurfacing mechanic.
	IsPersistent bool `gorm:"not null;default:true"`
	// AttemptsMade counts how often the notification was surfaced.
	AttemptsMade int `gorm:"not null;default:0"`
	// MaxAttempts is the resurfacing ceiling.
	MaxAttempts int `gorm:"not null;default:10"`
	// RepeatIntervalMinutes is the cadence between surfacings.
	RepeatIntervalMinutes int `gorm:"not null;default:5"`
	// NextEligibleTime is the earliest instant the row may surface again.
	NextEligibleTime time.Time `gorm:"not null;index"`
	// RespondedAt is set when the recipient responds.
	RespondedAt *time.Time
	// ResponseText holds the recipient's response, if any.
	ResponseText string `gorm:"type:text"`
	// DismissedAt is set when the recipient opts out.
	DismissedAt *time.Time
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}
