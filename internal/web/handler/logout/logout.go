// Package logout tears down the user session.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler/login"
	"github.com/ippel-tech/ippel-rnc/internal/web/session"
)

const (
	// Path is the path to the logout endpoint.
	Path = "/logout"
)

// Service is the logout handler service.
type Service struct {
	cfg *config.Config
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New("app or cfg is nil")
	}

	s.cfg = cfg

	app.Get(Path, s.Get)

	return nil
}

// Get removes the session and redirects to the login page.
func (s *Service) Get(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID != "" {
		_ = session.Delete(sessionID) //nolint:errcheck // expired sessions are fine
	}

	c.ClearCookie(session.CookieName)

	return c.Redirect(login.Path)
}
