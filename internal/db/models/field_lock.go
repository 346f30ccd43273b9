package models

import "time"

// LockContext identifies the report lifecycle phase a field lock applies to.
type LockContext string

const (
	// ContextCreation applies while a report is being created.
	ContextCreation LockContext = "creation"
	// ContextResponse applies while a report is being responded to.
	ContextResponse LockContext = "response"
)

// FieldLock restricts which report fields the members of a group may edit
// during a given lifecycle context. A field with no row is unlocked and not
// required: the evaluator is default-allow for field edits. This asymmetry
// with GroupPermission is a deliberate compatibility property.
type FieldLock struct {
	// ID is the unique identifier for the field lock.
	ID uint `gorm:"primaryKey"`
	// GroupID is the group this lock belongs to.
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_field_context"`
	// Group is the associated group (loaded via foreign key).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// FieldName is the report field this lock applies to.
	FieldName string `gorm:"size:100;not null;uniqueIndex:idx_group_field_context"`
	// Context is the lifecycle phase (creation or response).
	Context LockContext `gorm:"type:varchar(20);not null;default:'creation';uniqueIndex:idx_group_field_context"`
	// IsLocked forbids edits of the field in this context when true.
	IsLocked bool `gorm:"not null;default:false"`
	// IsRequired marks the field as mandatory in this context when true.
	IsRequired bool `gorm:"not null;default:false"`
	// CreatedAt is the timestamp when the lock was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the lock was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the FieldLock model.
func (FieldLock) TableName() string {
	return "field_locks"
}
