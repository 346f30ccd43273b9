// Package changelog writes the append-only report change log.
package changelog

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrReportNotFound is returned when logging against an unknown report.
	// Never swallowed: a lost change record means lost notifications.
	ErrReportNotFound = errors.New("report not found")
	// ErrActorEmpty is returned when no actor user id was supplied.
	ErrActorEmpty = errors.New("actor user id cannot be zero")
)

// Params carries one change log entry. OldValue and NewValue accept arbitrary
// structured data and are serialized before storage.
type Params struct {
	ReportID   uint64
	ActorID    uint64
	ChangeType models.ChangeType
	Field      string
	OldValue   interface{}
	NewValue   interface{}
}

// Log appends one change record. The report must exist; an unknown report id
// is rejected with ErrReportNotFound and nothing is written.
func Log(db *gorm.DB, p Params) (*models.ChangeRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if p.ActorID == 0 {
		return nil, ErrActorEmpty
	}

	var count int64
	if err := db.Model(&models.Report{}).Where("id = ?", p.ReportID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to verify report: %w", err)
	}

	if count == 0 {
		return nil, ErrReportNotFound
	}

	record := models.ChangeRecord{
		ReportID:     p.ReportID,
		ActorID:      p.ActorID,
		ChangeType:   p.ChangeType,
		FieldChanged: p.Field,
		OldValue:     serialize(p.OldValue),
		NewValue:     serialize(p.NewValue),
	}

	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

// ListByReport retrieves the change history of one report, oldest first.
func ListByReport(db *gorm.DB, reportID uint64) ([]models.ChangeRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var records []models.ChangeRecord
	if err := db.Where("report_id = ?", reportID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// serialize turns an arbitrary value into its storable text form. Strings
// pass through unchanged, everything else becomes JSON.
func serialize(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(out)
	}
}
