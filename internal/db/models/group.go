// Package models contains database model definitions.
package models

import "time"

// Group represents a department style user group, e.g. "Qualidade" or
// "Operadores". Groups own permission flags and field locks; a user derives
// all group-granted rights from their single group membership.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the group as it appears in the system.
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "groups"
}
