// Package login implements the login page and session creation.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
	"github.com/ippel-tech/ippel-rnc/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// ErrInvalidCredentials is shown for unknown users and wrong passwords alike.
	ErrInvalidCredentials = "Usuário ou senha inválidos"
	// ErrAccountInactive is shown for disabled accounts.
	ErrAccountInactive = "Conta desativada"
	// ErrInternal is shown when session handling fails.
	ErrInternal = "Erro interno"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.db = db
	s.cfg = cfg

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render("login/login", fiber.Map{
		"Title": s.cfg.Title,
	})
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	user := new(models.User)

	if err := c.BodyParser(user); err != nil {
		return err
	}

	// find user in db
	var dbUser models.User
	result := s.db.Where("username = ?", user.Username).First(&dbUser)
	if result.Error != nil {
		return s.renderError(c, ErrInvalidCredentials)
	}

	// check if user is active
	if !dbUser.Active {
		return s.renderError(c, ErrAccountInactive)
	}

	// check if password matches
	if !dbUser.VerifyPassword(user.Password) {
		return s.renderError(c, ErrInvalidCredentials)
	}

	sessionID := session.GenerateSessionID()

	userSession := &session.Data{
		User: dbUser,
	}

	if err := userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return s.renderError(c, ErrInternal)
	}

	// set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.Redirect("/dashboard")
}

func (s *Service) renderError(c *fiber.Ctx, msg string) error {
	return c.Render("login/login", fiber.Map{
		"Title": s.cfg.Title,
		"error": msg,
	})
}
