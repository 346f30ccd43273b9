// Package notification exposes the persistent notification JSON API.
package notification

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	notifctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/notification"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the base path of the persistent notification API.
	Path = "/api/persistent-notifications"

	// RoutePending lists the caller's currently eligible notifications.
	RoutePending = Path + "/pending"
	// RouteRespond resolves a notification with a response.
	RouteRespond = Path + "/:id/respond"
	// RouteDismiss resolves a notification by opting out.
	RouteDismiss = Path + "/:id/dismiss"
)

// pendingItem is one row of the pending JSON response.
type pendingItem struct {
	ID         uint64 `json:"id"`
	RNCID      uint64 `json:"rnc_id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	ChangeType string `json:"change_type"`
	CreatedAt  string `json:"created_at"`
}

// respondBody is the request body of the respond endpoint.
type respondBody struct {
	Response string `json:"response"`
}

// Service is the notification API handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the notification API handler.
var Handler = Service{}

// Init initializes the notification API handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, _ *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(RoutePending, s.Pending)
	app.Post(RouteRespond, s.Respond)
	app.Post(RouteDismiss, s.Dismiss)
}

// Pending returns the caller's eligible notifications and records one
// surfacing attempt per returned row. Delivering the payload is the display
// event: the same notification resurfaces after its repeat interval until
// resolved or exhausted.
func (s *Service) Pending(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	rows, err := notifctl.Pending(s.db, sess.User.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", sess.User.ID).Msg("failed to load pending notifications")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	items := make([]pendingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, pendingItem{
			ID:         row.ID,
			RNCID:      row.ReportID,
			Title:      row.Title,
			Message:    row.Message,
			ChangeType: string(row.ChangeType),
			CreatedAt:  row.CreatedAt.Format("2006-01-02 15:04:05"),
		})

		if err := notifctl.MarkShown(s.db, row.ID); err != nil {
			// the row was still delivered; an extra surfacing later is tolerated
			log.Warn().Err(err).Uint64("notification_id", row.ID).Msg("failed to mark notification shown")
		}
	}

	return c.JSON(items)
}

// Respond transitions a notification to RESPONDED.
func (s *Service) Respond(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"})
	}

	body := new(respondBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	result, err := notifctl.Respond(s.db, id, sess.User.ID, body.Response)
	if err != nil {
		log.Error().Err(err).Uint64("notification_id", id).Msg("failed to respond to notification")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return s.resolveResponse(c, result)
}

// Dismiss transitions a notification to DISMISSED.
func (s *Service) Dismiss(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"})
	}

	result, err := notifctl.Dismiss(s.db, id, sess.User.ID)
	if err != nil {
		log.Error().Err(err).Uint64("notification_id", id).Msg("failed to dismiss notification")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return s.resolveResponse(c, result)
}

// resolveResponse maps the tagged controller result onto HTTP. Forbidden is
// reported as not found on purpose; whether a notification id exists for
// another user is not disclosed.
func (s *Service) resolveResponse(c *fiber.Ctx, result notifctl.UpdateResult) error {
	switch result {
	case notifctl.ResultOk:
		return c.JSON(fiber.Map{"ok": true})
	case notifctl.ResultForbidden, notifctl.ResultNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}
