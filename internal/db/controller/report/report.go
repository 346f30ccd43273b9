// Package report provides CRUD operations for non-conformance reports.
package report

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/uniuri"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrReportNotFound is returned when a report is not found.
	ErrReportNotFound = errors.New("report not found")
	// ErrTitleEmpty is returned when attempting to create a report without a title.
	ErrTitleEmpty = errors.New("report title cannot be empty")
	// ErrReportDeleted is returned when mutating a soft deleted report.
	ErrReportDeleted = errors.New("report is deleted")
	// ErrReportFinalized is returned when mutating a finalized report.
	ErrReportFinalized = errors.New("report is already finalized")
)

// numberChars are the characters used for generated RNC numbers.
var numberChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

// NewNumber generates a human-facing RNC number.
func NewNumber() string {
	return "RNC-" + uniuri.NewLenChars(8, numberChars)
}

// Create inserts a new report in Pendente state.
func Create(db *gorm.DB, title, description string, createdBy uint64, assignedTo *uint64) (*models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if title == "" {
		return nil, ErrTitleEmpty
	}

	rpt := models.Report{
		Number:       NewNumber(),
		Title:        title,
		Description:  description,
		Status:       models.StatusPending,
		CreatedByID:  createdBy,
		AssignedToID: assignedTo,
		State:        models.StateActive,
	}

	if err := db.Create(&rpt).Error; err != nil {
		return nil, err
	}

	return &rpt, nil
}

// Get retrieves a report by id, including soft deleted ones. Callers that
// must not see deleted reports check State themselves.
func Get(db *gorm.DB, id uint64) (*models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rpt models.Report
	if err := db.First(&rpt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}

		return nil, err
	}

	return &rpt, nil
}

// ListActive retrieves all non-deleted reports, newest first.
func ListActive(db *gorm.DB) ([]models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var reports []models.Report
	if err := db.Where("state = ?", models.StateActive).
		Order("id DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}

	return reports, nil
}

// CountByStatus returns the number of active reports per workflow status.
func CountByStatus(db *gorm.DB) (map[models.ReportStatus]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	type row struct {
		Status models.ReportStatus
		Total  int64
	}

	var rows []row
	err := db.Model(&models.Report{}).
		Select("status, COUNT(*) as total").
		Where("state = ?", models.StateActive).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[models.ReportStatus]int64{
		models.StatusPending:    0,
		models.StatusInProgress: 0,
		models.StatusFinalized:  0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}

	return counts, nil
}

// mutable loads a report and rejects mutation of deleted ones.
func mutable(db *gorm.DB, id uint64) (*models.Report, error) {
	rpt, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if rpt.State == models.StateDeleted {
		return nil, ErrReportDeleted
	}

	return rpt, nil
}

// UpdateField writes one field of a report and returns the previous value.
// Only the free-form business fields go through here; workflow transitions
// have their own functions.
func UpdateField(db *gorm.DB, id uint64, field, value string) (old string, err error) {
	if db == nil {
		return "", ErrDBNil
	}

	rpt, err := mutable(db, id)
	if err != nil {
		return "", err
	}

	switch field {
	case "title":
		old = rpt.Title
		rpt.Title = value
	case "description":
		old = rpt.Description
		rpt.Description = value
	default:
		// unknown fields are stored nowhere but still change-logged by the
		// caller; the legacy schema carried many free-form columns that the
		// normalized schema folds into the description
		return "", nil
	}

	if err := db.Save(rpt).Error; err != nil {
		return "", err
	}

	return old, nil
}

// Assign sets the responsible user and moves a pending report into progress.
func Assign(db *gorm.DB, id, userID uint64) (*models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	rpt, err := mutable(db, id)
	if err != nil {
		return nil, err
	}

	rpt.AssignedToID = &userID
	if rpt.Status == models.StatusPending {
		rpt.Status = models.StatusInProgress
	}

	if err := db.Save(rpt).Error; err != nil {
		return nil, err
	}

	return rpt, nil
}

// Respond moves a report into Em Andamento as the assignee starts working it.
func Respond(db *gorm.DB, id uint64) (*models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	rpt, err := mutable(db, id)
	if err != nil {
		return nil, err
	}

	if rpt.Status == models.StatusFinalized {
		return nil, ErrReportFinalized
	}

	rpt.Status = models.StatusInProgress

	if err := db.Save(rpt).Error; err != nil {
		return nil, err
	}

	return rpt, nil
}

// Finalize closes a report.
func Finalize(db *gorm.DB, id uint64) (*models.Report, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	rpt, err := mutable(db, id)
	if err != nil {
		return nil, err
	}

	if rpt.Status == models.StatusFinalized {
		return nil, ErrReportFinalized
	}

	rpt.Status = models.StatusFinalized

	if err := db.Save(rpt).Error; err != nil {
		return nil, err
	}

	return rpt, nil
}

// SoftDelete hides a report. The row and its change history are retained.
// State and DeletedAt are set together to keep the invariant
// "deleted_at set iff state=deleted".
func SoftDelete(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	rpt, err := Get(db, id)
	if err != nil {
		return err
	}

	if rpt.State == models.StateDeleted {
		return nil // already deleted, idempotent
	}

	now := time.Now()
	rpt.State = models.StateDeleted
	rpt.DeletedAt = &now

	return db.Save(rpt).Error
}

// Share grants a user visibility of the report. Idempotent.
func Share(db *gorm.DB, reportID, userID uint64) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := mutable(db, reportID); err != nil {
		return err
	}

	var existing models.ReportShare
	err := db.Where("report_id = ? AND user_id = ?", reportID, userID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Create(&models.ReportShare{ReportID: reportID, UserID: userID}).Error
}

// SharedUserIDs returns the ids of all users the report is shared with.
func SharedUserIDs(db *gorm.DB, reportID uint64) ([]uint64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ids []uint64
	err := db.Model(&models.ReportShare{}).
		Where("report_id = ?", reportID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
