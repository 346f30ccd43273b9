package models

import "time"

// ReportStatus enumerates the workflow states of a non-conformance report.
// The values are the Portuguese labels the business uses.
type ReportStatus string

const (
	// StatusPending marks a freshly created report awaiting work.
	StatusPending ReportStatus = "Pendente"
	// StatusInProgress marks a report being worked on.
	StatusInProgress ReportStatus = "Em Andamento"
	// StatusFinalized marks a closed report.
	StatusFinalized ReportStatus = "Finalizado"
)

// ReportState enumerates report visibility. Reports are never physically
// deleted; a deleted report keeps its row and change history.
type ReportState string

const (
	// StateActive is the normal visible state.
	StateActive ReportState = "active"
	// StateDeleted hides the report from listings.
	StateDeleted ReportState = "deleted"
)

// Report is the non-conformance report (RNC), the core business entity.
// Every mutation of a report is recorded in the change log, which in turn
// fans out persistent notifications to the interested users.
type Report struct {
	// ID is the unique identifier for the report.
	ID uint64 `gorm:"primaryKey"`
	// Number is the human-facing RNC number.
	Number string `gorm:"unique;size:30;not null"`
	// Title is a short summary of the non-conformance.
	Title string `gorm:"size:255;not null"`
	// Description holds the detailed description of the non-conformance.
	Description string `gorm:"type:text"`
	// Status is the workflow state (Pendente, Em Andamento, Finalizado).
	Status ReportStatus `gorm:"type:varchar(20);not null;default:'Pendente';index"`
	// CreatedByID is the user who recorded the report.
	CreatedByID uint64 `gorm:"not null;index"`
	// CreatedBy is the creating user (loaded via foreign key).
	CreatedBy User `gorm:"foreignKey:CreatedByID"`
	// AssignedToID is the user currently responsible, nil when unassigned.
	AssignedToID *uint64 `gorm:"index"`
	// AssignedTo is the responsible user (loaded via foreign key).
	AssignedTo *User `gorm:"foreignKey:AssignedToID"`
	// State is the soft delete state. Invariant: DeletedAt is set iff
	// State is deleted; the report controller maintains both together.
	State ReportState `gorm:"type:varchar(10);not null;default:'active';index"`
	// DeletedAt is the soft delete timestamp.
	DeletedAt *time.Time
	// CreatedAt is the timestamp when the report was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the report was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Report model.
func (Report) TableName() string {
	return "reports"
}
