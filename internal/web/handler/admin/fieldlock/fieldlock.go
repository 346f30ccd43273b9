// Package fieldlock provides the admin settings page for per-group field
// edit locks, per field and lifecycle context.
package fieldlock

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	fieldlockctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/fieldlock"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the base path for field lock management.
	Path = handler.RootPath + "admin/fieldlocks"

	// TemplateList is the template for the settings page.
	TemplateList = "admin/fieldlock/list"

	// TitleFieldLocks is the page title.
	TitleFieldLocks = "Bloqueio de Campos"
)

// upsertBody is the JSON body for creating or updating one lock.
type upsertBody struct {
	GroupID    uint   `json:"group_id" validate:"required"`
	FieldName  string `json:"field_name" validate:"required,max=100"`
	Context    string `json:"context" validate:"required,oneof=creation response"`
	IsLocked   bool   `json:"is_locked"`
	IsRequired bool   `json:"is_required"`
}

// Service provides the field lock admin handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. All of them are admin gated.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authService
	s.validator = validator.New()

	app.Get(Path,
		authz.RequirePermission(authService, authz.PermAdminFieldLocks),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authService, authz.PermAdminFieldLocks),
		s.Upsert,
	)
	app.Delete(Path,
		authz.RequirePermission(authService, authz.PermAdminFieldLocks),
		s.Delete,
	)
}

// List renders the settings page with every configured lock grouped by group.
func (s *Service) List(c *fiber.Ctx) error {
	locks, err := fieldlockctl.ListAll(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to load field locks")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Title": TitleFieldLocks,
			"Error": "Falha ao carregar os bloqueios",
		}, handler.BaseLayout)
	}

	var groups []models.Group
	if err := s.db.Order("name ASC").Find(&groups).Error; err != nil {
		log.Error().Err(err).Msg("failed to load groups")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Title": TitleFieldLocks,
			"Error": "Falha ao carregar os grupos",
		}, handler.BaseLayout)
	}

	groupNames := make(map[uint]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	return c.Render(TemplateList, fiber.Map{
		"Title":      TitleFieldLocks,
		"Locks":      locks,
		"Groups":     groups,
		"GroupNames": groupNames,
	}, handler.BaseLayout)
}

// Upsert creates or updates one lock and invalidates the evaluator cache.
func (s *Service) Upsert(c *fiber.Ctx) error {
	body := new(upsertBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	lock, err := fieldlockctl.Set(s.db, body.GroupID, body.FieldName,
		models.LockContext(body.Context), body.IsLocked, body.IsRequired)
	if err != nil {
		log.Error().Err(err).Msg("failed to save field lock")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	s.authz.Invalidate()

	return c.JSON(fiber.Map{
		"id":          lock.ID,
		"group_id":    lock.GroupID,
		"field_name":  lock.FieldName,
		"context":     string(lock.Context),
		"is_locked":   lock.IsLocked,
		"is_required": lock.IsRequired,
	})
}

// Delete removes one lock, restoring the default-allow behavior for the field.
func (s *Service) Delete(c *fiber.Ctx) error {
	body := new(upsertBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := fieldlockctl.Delete(s.db, body.GroupID, body.FieldName, models.LockContext(body.Context)); err != nil {
		log.Error().Err(err).Msg("failed to delete field lock")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	s.authz.Invalidate()

	return c.JSON(fiber.Map{"ok": true})
}
