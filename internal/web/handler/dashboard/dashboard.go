// Package dashboard renders the report status overview.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/notification"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/report"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the path to the dashboard page.
	Path = "/dashboard"
)

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, _ *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path, s.Get)
}

// Get renders the dashboard: report counts per workflow status and the
// caller's unresolved notification count.
func (s *Service) Get(c *fiber.Ctx) error {
	counts, err := report.CountByStatus(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reports")

		return c.Status(fiber.StatusInternalServerError).Render("dashboard/dashboard", fiber.Map{
			"Title": s.cfg.Title,
			"Error": "Falha ao carregar o painel",
		}, handler.BaseLayout)
	}

	var notificationCount int64
	if sessUser, ok := c.Locals("CurrentUser").(models.User); ok {
		notificationCount, err = notification.CountActive(s.db, sessUser.ID)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", sessUser.ID).Msg("failed to count notifications")
		}
	}

	return c.Render("dashboard/dashboard", fiber.Map{
		"Title":         s.cfg.Title,
		"Pending":       counts[models.StatusPending],
		"InProgress":    counts[models.StatusInProgress],
		"Finalized":     counts[models.StatusFinalized],
		"Notifications": notificationCount,
	}, handler.BaseLayout)
}
