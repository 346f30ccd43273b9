// Package notify expands report changes into per-recipient persistent
// notifications and composes the change logger with the fan-out step.
package notify

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/changelog"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/report"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// fallbackActorName is used when the actor's display name cannot be
// resolved. Delivery is prioritized over cosmetic completeness.
const fallbackActorName = "Um usuário"

// Service fans out change records into notifications.
type Service struct {
	maxAttempts           int
	repeatIntervalMinutes int
}

// NewService creates a fan-out service with the configured delivery ceiling
// and cadence.
func NewService(cfg config.Notify) *Service {
	return &Service{
		maxAttempts:           cfg.MaxAttempts,
		repeatIntervalMinutes: cfg.RepeatIntervalMinutes,
	}
}

// LogChange appends a change record and synchronously fans it out. This is
// the single entry point report mutation handlers call after committing a
// write: a lost change record would mean lost notifications, so logging
// failures are returned to the caller, never swallowed.
func (s *Service) LogChange(db *gorm.DB, p changelog.Params) (*models.ChangeRecord, error) {
	record, err := changelog.Log(db, p)
	if err != nil {
		return nil, err
	}

	if err := s.FanOut(db, record); err != nil {
		return record, err
	}

	return record, nil
}

// FanOut creates one notification row per interested user.
//
// The target set is {owner, assignee} plus share recipients, minus the actor:
// the author of a change is never notified about it. On finalization the
// creator's group peers are interested too. An empty target set is a no-op.
func (s *Service) FanOut(db *gorm.DB, change *models.ChangeRecord) error {
	if db == nil {
		return ErrDBNil
	}

	rpt, err := report.Get(db, change.ReportID)
	if err != nil {
		return err
	}

	targets := map[uint64]struct{}{
		rpt.CreatedByID: {},
	}
	if rpt.AssignedToID != nil {
		targets[*rpt.AssignedToID] = struct{}{}
	}

	shared, err := report.SharedUserIDs(db, change.ReportID)
	if err != nil {
		return err
	}

	for _, id := range shared {
		targets[id] = struct{}{}
	}

	if change.ChangeType == models.ChangeFinalized {
		peers, err := groupPeers(db, rpt.CreatedByID)
		if err != nil {
			return err
		}

		for _, id := range peers {
			targets[id] = struct{}{}
		}
	}

	// never notify the author of their own change
	delete(targets, change.ActorID)

	if len(targets) == 0 {
		return nil
	}

	title, message := render(change.ChangeType, s.actorName(db, change.ActorID), rpt.Number)

	now := time.Now()
	for recipient := range targets {
		row := models.Notification{
			ChangeRecordID:        change.ID,
			ReportID:              change.ReportID,
			RecipientID:           recipient,
			Title:                 title,
			Message:               message,
			ChangeType:            change.ChangeType,
			IsPersistent:          true,
			AttemptsMade:          0,
			MaxAttempts:           s.maxAttempts,
			RepeatIntervalMinutes: s.repeatIntervalMinutes,
			NextEligibleTime:      now,
		}

		if err := db.Create(&row).Error; err != nil {
			return err
		}
	}

	return nil
}

// actorName resolves the actor's display name, degrading to a placeholder
// rather than failing the fan-out.
func (s *Service) actorName(db *gorm.DB, actorID uint64) string {
	var actor models.User
	if err := db.First(&actor, actorID).Error; err != nil {
		log.Warn().Err(err).Uint64("actor_id", actorID).Msg("could not resolve actor name")

		return fallbackActorName
	}

	if actor.Name != "" {
		return actor.Name
	}

	if actor.Username != "" {
		return actor.Username
	}

	return fallbackActorName
}

// groupPeers returns the ids of all active users sharing the given user's
// group. A user without a group has no peers.
func groupPeers(db *gorm.DB, userID uint64) ([]uint64, error) {
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	if u.GroupID == nil {
		return nil, nil
	}

	var ids []uint64
	err := db.Model(&models.User{}).
		Where("group_id = ? AND active = ?", *u.GroupID, true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
