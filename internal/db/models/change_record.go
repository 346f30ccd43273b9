package models

import "time"

// ChangeType classifies a report mutation in the change log.
type ChangeType string

const (
	// ChangeCreated records the creation of a report.
	ChangeCreated ChangeType = "created"
	// ChangeUpdated records a field update.
	ChangeUpdated ChangeType = "updated"
	// ChangeResponded records a response to the report.
	ChangeResponded ChangeType = "responded"
	// ChangeValueAdded records a supplementary value attached to the report.
	ChangeValueAdded ChangeType = "value_added"
	// ChangeFinalized records the finalization of a report.
	ChangeFinalized ChangeType = "finalized"
)

// ChangeRecord is one append-only entry of the report change log. Rows are
// immutable once written; they are the trigger input for notification fan-out
// and double as the audit trail.
type ChangeRecord struct {
	// ID is the unique identifier for the change record.
	ID uint64 `gorm:"primaryKey"`
	// ReportID is the mutated report.
	ReportID uint64 `gorm:"not null;index"`
	// Report is the associated report (loaded via foreign key).
	Report Report `gorm:"foreignKey:ReportID"`
	// ActorID is the user who performed the mutation.
	ActorID uint64 `gorm:"not null;index"`
	// ChangeType classifies the mutation.
	ChangeType ChangeType `gorm:"type:varchar(20);not null"`
	// FieldChanged names the mutated field, empty for whole-entity changes.
	FieldChanged string `gorm:"size:100"`
	// OldValue is the serialized previous value.
	OldValue string `gorm:"type:text"`
	// NewValue is the serialized new value.
	NewValue string `gorm:"type:text"`
	// CreatedAt is the timestamp of the mutation (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ChangeRecord model.
func (ChangeRecord) TableName() string {
	return "change_records"
}
