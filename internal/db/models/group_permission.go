package models

import "time"

// GroupPermission represents one permission flag granted to (or withheld from)
// a group. A permission with no row at all is treated as denied: the
// evaluator is default-deny for permissions.
type GroupPermission struct {
	// ID is the unique identifier for the permission flag.
	ID uint `gorm:"primaryKey"`
	// GroupID is the group this flag belongs to.
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_permission"`
	// Group is the associated group (loaded via foreign key).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// PermissionName identifies the protected action, e.g. "report.finalize".
	PermissionName string `gorm:"size:100;not null;uniqueIndex:idx_group_permission"`
	// Allowed is the flag value. A false row behaves like an absent row but
	// keeps the administrator's explicit decision visible.
	Allowed bool `gorm:"not null;default:false"`
	// CreatedAt is the timestamp when the flag was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the flag was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the GroupPermission model.
func (GroupPermission) TableName() string {
	return "group_permissions"
}
