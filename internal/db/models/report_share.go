package models

import "time"

// ReportShare grants a user visibility of a report without ownership.
// Share recipients are part of the notification fan-out target set.
type ReportShare struct {
	// ReportID is the shared report.
	ReportID uint64 `gorm:"primaryKey;column:report_id"`
	// UserID is the user the report is shared with.
	UserID uint64 `gorm:"primaryKey;column:user_id"`
	// Report is the associated report (loaded via foreign key).
	// When a report row is removed, its shares go with it (CASCADE).
	Report Report `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the share was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ReportShare model.
func (ReportShare) TableName() string {
	return "report_shares"
}
