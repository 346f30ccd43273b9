// Package group provides the admin JSON API for managing user groups.
package group

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the base path for group management.
	Path = "/api/admin/groups"

	// RouteOne addresses a single group.
	RouteOne = Path + "/:id"
)

// groupBody is the JSON body for creating or updating a group.
type groupBody struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// groupItem is one row of the group list JSON response.
type groupItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     int64  `json:"members"`
}

// Service provides CRUD operations for groups.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
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
		authz.RequirePermission(authService, authz.PermAdminGroups),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authService, authz.PermAdminGroups),
		s.Create,
	)
	app.Put(RouteOne,
		authz.RequirePermission(authService, authz.PermAdminGroups),
		s.Update,
	)
	app.Delete(RouteOne,
		authz.RequirePermission(authService, authz.PermAdminGroups),
		s.Delete,
	)
}

// List returns all groups with their member counts.
func (s *Service) List(c *fiber.Ctx) error {
	var groups []models.Group
	if err := s.db.Order("name ASC").Find(&groups).Error; err != nil {
		log.Error().Err(err).Msg("failed to load groups")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	items := make([]groupItem, 0, len(groups))
	for _, g := range groups {
		var count int64
		if err := s.db.Model(&models.User{}).Where("group_id = ?", g.ID).Count(&count).Error; err != nil {
			log.Error().Err(err).Uint("group_id", g.ID).Msg("failed to count members")
		}

		items = append(items, groupItem{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			Members:     count,
		})
	}

	return c.JSON(items)
}

// Create inserts a new group.
func (s *Service) Create(c *fiber.Ctx) error {
	body := new(groupBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	g := models.Group{Name: body.Name, Description: body.Description}
	if err := s.db.Create(&g).Error; err != nil {
		log.Error().Err(err).Str("name", body.Name).Msg("failed to create group")

		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Group already exists"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": g.ID})
}

// Update changes the name or description of a group.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	body := new(groupBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var g models.Group
	if err := s.db.First(&g, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}

	g.Name = body.Name
	g.Description = body.Description

	if err := s.db.Save(&g).Error; err != nil {
		log.Error().Err(err).Uint("group_id", g.ID).Msg("failed to update group")

		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Failed to update group"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// Delete removes a group. Its permission flags and field locks cascade away;
// members become ungrouped and lose all group-granted rights.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	result := s.db.Delete(&models.Group{}, id)
	if result.Error != nil {
		log.Error().Err(result.Error).Uint("group_id", id).Msg("failed to delete group")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
	}

	s.authz.Invalidate()

	return c.JSON(fiber.Map{"ok": true})
}

// paramID parses the :id route parameter, writing the error response itself.
func (s *Service) paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"}) //nolint:errcheck
		return 0, false
	}

	return uint(id), true
}
