// Package report exposes the non-conformance report JSON API. Every mutation
// goes through the change logger, which fans out persistent notifications.
package report

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/authz"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/controller/changelog"
	reportctl "github.com/ippel-tech/ippel-rnc/internal/db/controller/report"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/notify"
	"github.com/ippel-tech/ippel-rnc/internal/web/handler"
)

const (
	// Path is the base path of the report API.
	Path = "/api/reports"

	// RouteField updates one report field.
	RouteField = Path + "/:id/field"
	// RouteRespond responds to a report.
	RouteRespond = Path + "/:id/respond"
	// RouteFinalize closes a report.
	RouteFinalize = Path + "/:id/finalize"
	// RouteDelete soft deletes a report.
	RouteDelete = Path + "/:id/delete"
	// RouteShare shares a report with another user.
	RouteShare = Path + "/:id/share"
	// RouteHistory lists the change history of a report.
	RouteHistory = Path + "/:id/history"
)

// creationFields are the report fields subject to field locks at creation.
var creationFields = map[string]func(*createBody) string{
	"title":       func(b *createBody) string { return b.Title },
	"description": func(b *createBody) string { return b.Description },
}

// Service is the report API handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	notify    *notify.Service
	validator *validator.Validate
}

// Handler is the report API handler.
var Handler = Service{}

// Init initializes the report API handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *authz.Service, notifyService *notify.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authService
	s.notify = notifyService
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path,
		authz.RequirePermission(authService, authz.PermReportCreate),
		s.Create,
	)
	app.Post(RouteField,
		authz.RequirePermission(authService, authz.PermReportEdit),
		s.UpdateField,
	)
	app.Post(RouteRespond,
		authz.RequirePermission(authService, authz.PermReportRespond),
		s.Respond,
	)
	app.Post(RouteFinalize,
		authz.RequirePermission(authService, authz.PermReportFinalize),
		s.Finalize,
	)
	app.Post(RouteDelete,
		authz.RequirePermission(authService, authz.PermReportDelete),
		s.Delete,
	)
	app.Post(RouteShare,
		authz.RequirePermission(authService, authz.PermReportShare),
		s.Share,
	)
	app.Get(RouteHistory, s.History)
}

// List returns all active reports, newest first.
func (s *Service) List(c *fiber.Ctx) error {
	reports, err := reportctl.ListActive(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list reports")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	items := make([]reportItem, 0, len(reports))
	for _, rpt := range reports {
		items = append(items, reportItem{
			ID:          rpt.ID,
			Number:      rpt.Number,
			Title:       rpt.Title,
			Description: rpt.Description,
			Status:      string(rpt.Status),
			CreatedBy:   rpt.CreatedByID,
			AssignedTo:  rpt.AssignedToID,
			CreatedAt:   rpt.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return c.JSON(items)
}

// Create records a new report. Field locks of the creation context apply:
// locked fields must be empty, required fields must be set.
func (s *Service) Create(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	body := new(createBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	for field, value := range creationFields {
		ok, err := s.checkField(c, &sess.User, field, value(body), models.ContextCreation)
		if err != nil {
			return err
		}
		if !ok {
			return nil // response already written by checkField
		}
	}

	rpt, err := reportctl.Create(s.db, body.Title, body.Description, sess.User.ID, body.AssignedTo)
	if err != nil {
		log.Error().Err(err).Msg("failed to create report")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	s.logChange(changelog.Params{
		ReportID:   rpt.ID,
		ActorID:    sess.User.ID,
		ChangeType: models.ChangeCreated,
		NewValue:   rpt.Title,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     rpt.ID,
		"number": rpt.Number,
		"status": string(rpt.Status),
	})
}

// UpdateField writes one field of a report, subject to the field lock of the
// report's current lifecycle context.
func (s *Service) UpdateField(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	body := new(fieldBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rpt, err := reportctl.Get(s.db, id)
	if err != nil {
		return s.reportError(c, err)
	}

	// a pending report is still in its creation phase, afterwards response
	// context locks apply
	context := models.ContextResponse
	if rpt.Status == models.StatusPending {
		context = models.ContextCreation
	}

	allowed, err := s.authz.CanEditField(&sess.User, body.Field, context)
	if err != nil {
		log.Error().Err(err).Str("field", body.Field).Msg("failed to check field lock")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if !allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": handler.MsgForbidden})
	}

	old, err := reportctl.UpdateField(s.db, id, body.Field, body.Value)
	if err != nil {
		return s.reportError(c, err)
	}

	s.logChange(changelog.Params{
		ReportID:   id,
		ActorID:    sess.User.ID,
		ChangeType: models.ChangeUpdated,
		Field:      body.Field,
		OldValue:   old,
		NewValue:   body.Value,
	})

	return c.JSON(fiber.Map{"ok": true})
}

// Respond moves a report into Em Andamento and logs the response.
func (s *Service) Respond(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	body := new(respondBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rpt, err := reportctl.Respond(s.db, id)
	if err != nil {
		return s.reportError(c, err)
	}

	s.logChange(changelog.Params{
		ReportID:   id,
		ActorID:    sess.User.ID,
		ChangeType: models.ChangeResponded,
		NewValue:   body.Response,
	})

	return c.JSON(fiber.Map{"ok": true, "status": string(rpt.Status)})
}

// Finalize closes a report and logs the finalization.
func (s *Service) Finalize(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	rpt, err := reportctl.Finalize(s.db, id)
	if err != nil {
		return s.reportError(c, err)
	}

	s.logChange(changelog.Params{
		ReportID:   id,
		ActorID:    sess.User.ID,
		ChangeType: models.ChangeFinalized,
		OldValue:   string(models.StatusInProgress),
		NewValue:   string(rpt.Status),
	})

	return c.JSON(fiber.Map{"ok": true, "status": string(rpt.Status)})
}

// Delete soft deletes a report. The row and its history remain.
func (s *Service) Delete(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	if err := reportctl.SoftDelete(s.db, id); err != nil {
		return s.reportError(c, err)
	}

	s.logChange(changelog.Params{
		ReportID:   id,
		ActorID:    sess.User.ID,
		ChangeType: models.ChangeUpdated,
		Field:      "state",
		OldValue:   string(models.StateActive),
		NewValue:   string(models.StateDeleted),
	})

	return c.JSON(fiber.Map{"ok": true})
}

// Share grants another user visibility of the report.
func (s *Service) Share(c *fiber.Ctx) error {
	sess := authz.CurrentUser(c)
	if sess == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	body := new(shareBody)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := reportctl.Share(s.db, id, body.UserID); err != nil {
		return s.reportError(c, err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

// History returns the change log of a report, oldest first.
func (s *Service) History(c *fiber.Ctx) error {
	id, ok := s.paramID(c)
	if !ok {
		return nil
	}

	records, err := changelog.ListByReport(s.db, id)
	if err != nil {
		log.Error().Err(err).Uint64("report_id", id).Msg("failed to load change history")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:         rec.ID,
			ActorID:    rec.ActorID,
			ChangeType: string(rec.ChangeType),
			Field:      rec.FieldChanged,
			OldValue:   rec.OldValue,
			NewValue:   rec.NewValue,
			CreatedAt:  rec.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return c.JSON(items)
}

// checkField enforces the field lock of one creation field. Returns false
// after writing the denial response.
func (s *Service) checkField(c *fiber.Ctx, user *models.User, field, value string, context models.LockContext) (bool, error) {
	allowed, err := s.authz.CanEditField(user, field, context)
	if err != nil {
		log.Error().Err(err).Str("field", field).Msg("failed to check field lock")

		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if !allowed && value != "" {
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": handler.MsgForbidden})
	}

	required, err := s.authz.FieldRequired(user, field, context)
	if err != nil {
		log.Error().Err(err).Str("field", field).Msg("failed to check field requirement")

		return false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if required && value == "" {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Campo obrigatório: " + field})
	}

	return true, nil
}

// logChange appends the change record and fans out notifications. A fan-out
// failure after a committed mutation is logged but not surfaced; the
// mutation itself already succeeded.
func (s *Service) logChange(p changelog.Params) {
	if _, err := s.notify.LogChange(s.db, p); err != nil {
		log.Error().Err(err).Uint64("report_id", p.ReportID).Str("change_type", string(p.ChangeType)).
			Msg("failed to log change")
	}
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

// reportError maps controller errors onto HTTP responses.
func (s *Service) reportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reportctl.ErrReportNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, reportctl.ErrReportDeleted), errors.Is(err, reportctl.ErrReportFinalized):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("report operation failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}
