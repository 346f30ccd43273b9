// Package permission provides the admin JSON API for group permission flags.
package permission

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	permctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/grouppermission"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the base path for permission management.
	Path = "/api/admin/groups/:group/permissions"
)

// upsertBody is the JSON body for setting one permission flag.
type upsertBody struct {
	PermissionName string `json:"permission_name" validate:"required,max=100"`
	Allowed        bool   `json:"allowed"`
}

// Service provides the permission admin handlers.
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
		authz.RequirePermission(authService, authz.PermAdminPermissions),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authService, authz.PermAdminPermissions),
		s.Upsert,
	)
}

// List returns all permission flags of a group.
func (s *Service) List(c *fiber.Ctx) error {
	groupID, ok := s.paramGroup(c)
	if !ok {
		return nil
	}

	flags, err := permctl.ListByGroup(s.db, groupID)
	if err != nil {
		log.Error().Err(err).Uint("group_id", groupID).Msg("failed to list permissions")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	type item struct {
		PermissionName string `json:"permission_name"`
		Allowed        bool   `json:"allowed"`
	}

	items := make([]item, 0, len(flags))
	for _, f := range flags {
		items = append(items, item{PermissionName: f.PermissionName, Allowed: f.Allowed})
	}

	return c.JSON(items)
}

// Upsert sets one permission flag and invalidates the evaluator cache.
func (s *Service) Upsert(c *fiber.Ctx) error {
	groupID, ok := s.paramGroup(c)
	if !ok {
		return nil
	}

	body := new(upsertBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	flag, err := permctl.Set(s.db, groupID, body.PermissionName, body.Allowed)
	if err != nil {
		log.Error().Err(err).Uint("group_id", groupID).Msg("failed to save permission")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	s.authz.Invalidate()

	return c.JSON(fiber.Map{
		"group_id":        flag.GroupID,
		"permission_name": flag.PermissionName,
		"allowed":         flag.Allowed,
	})
}

// paramGroup parses the :group route parameter, writing the error response itself.
func (s *Service) paramGroup(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("group"), 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group id"}) //nolint:errcheck
		return 0, false
	}

	return uint(id), true
}
