// Package user provides the admin JSON API for managing user accounts.
package user

import (
	"strconv"
	"time"

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
	// Path is the base path for user management.
	Path = "/api/admin/users"

	// RouteOne addresses a single user.
	RouteOne = Path + "/:id"
)

// createBody is the JSON body for creating a user.
type createBody struct {
	Username string `json:"username" validate:"required,max=100"`
	Name     string `json:"name" validate:"max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
	GroupID  *uint  `json:"group_id"`
}

// updateBody is the JSON body for updating a user. Password is optional;
// when empty the stored hash is kept.
type updateBody struct {
	Name     string `json:"name" validate:"max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
	GroupID  *uint  `json:"group_id"`
	Active   bool   `json:"active"`
}

// userItem is one row of the user list JSON response.
type userItem struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	GroupID   *uint  `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	Active    bool   `json:"active"`
}

// Service provides CRUD operations for user accounts.
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
		authz.RequirePermission(authService, authz.PermAdminUsers),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authService, authz.PermAdminUsers),
		s.Create,
	)
	app.Put(RouteOne,
		authz.RequirePermission(authService, authz.PermAdminUsers),
		s.Update,
	)
	app.Delete(RouteOne,
		authz.RequirePermission(authService, authz.PermAdminUsers),
		s.Delete,
	)
}

// List returns all non-deleted users.
func (s *Service) List(c *fiber.Ctx) error {
	var users []models.User
	if err := s.db.Preload("Group").Where("deleted_at IS NULL").Order("username ASC").Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("failed to load users")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	items := make([]userItem, 0, len(users))
	for _, u := range users {
		item := userItem{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.Name,
			Email:    u.Email,
			Role:     string(u.Role),
			GroupID:  u.GroupID,
			Active:   u.Active,
		}
		if u.Group != nil {
			item.GroupName = u.Group.Name
		}

		items = append(items, item)
	}

	return c.JSON(items)
}

// Create inserts a new user with a hashed password.
func (s *Service) Create(c *fiber.Ctx) error {
	body := new(createBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if ok := s.groupExists(c, body.GroupID); !ok {
		return nil
	}

	u := models.User{
		Active:   true,
		Username: body.Username,
		Name:     body.Name,
		Email:    body.Email,
		Password: models.HashPassword(body.Password),
		Role:     models.Role(body.Role),
		GroupID:  body.GroupID,
	}

	if err := s.db.Create(&u).Error; err != nil {
		log.Error().Err(err).Str("username", body.Username).Msg("failed to create user")

		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already taken"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": u.ID})
}

// Update changes account attributes. The username is immutable.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	body := new(updateBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if ok := s.groupExists(c, body.GroupID); !ok {
		return nil
	}

	var u models.User
	if err := s.db.Where("deleted_at IS NULL").First(&u, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	u.Name = body.Name
	u.Email = body.Email
	u.Role = models.Role(body.Role)
	u.GroupID = body.GroupID
	u.Active = body.Active
	if body.Password != "" {
		u.Password = models.HashPassword(body.Password)
	}

	if err := s.db.Save(&u).Error; err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to update user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	// Role and group assignment feed the permission cache.
	s.authz.Invalidate()

	return c.JSON(fiber.Map{"ok": true})
}

// Delete soft deletes a user account and deactivates it.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	actor := authz.CurrentUser(c)
	if actor != nil && actor.User.ID == id {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Cannot delete own account"})
	}

	now := time.Now()
	result := s.db.Model(&models.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{"deleted_at": now, "active": false})
	if result.Error != nil {
		log.Error().Err(result.Error).Uint64("user_id", id).Msg("failed to delete user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// paramID parses the :id route parameter, writing the error response itself.
func (s *Service) paramID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"}) //nolint:errcheck
		return 0, false
	}

	return id, true
}

// groupExists validates a referenced group id, writing the error response itself.
func (s *Service) groupExists(c *fiber.Ctx, groupID *uint) bool {
	if groupID == nil {
		return true
	}

	var count int64
	if err := s.db.Model(&models.Group{}).Where("id = ?", *groupID).Count(&count).Error; err != nil || count == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown group"}) //nolint:errcheck
		return false
	}

	return true
}
