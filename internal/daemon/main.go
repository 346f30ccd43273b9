// Package daemon wires the database, migrations, notification fan-out,
// backups and web service into one running process.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	sessionsqlite "github.com/gofiber/storage/sqlite3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ippel-tech/ippel-rnc/internal/backup"
	"github.com/ippel-tech/ippel-rnc/internal/config"
	"github.com/ippel-tech/ippel-rnc/internal/db/migrate"
	"github.com/ippel-tech/ippel-rnc/internal/logger"
	"github.com/ippel-tech/ippel-rnc/internal/db/models"
	"github.com/ippel-tech/ippel-rnc/internal/notify"
	"github.com/ippel-tech/ippel-rnc/internal/web"
	"github.com/ippel-tech/ippel-rnc/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
	backup     *backup.Runner
}

// Start starts the Daemon's web service and background workers. It blocks
// until the web service stops.
func (d *Daemon) Start() error {
	if d.backup != nil {
		d.backup.Start()
		defer d.backup.Stop()
	}

	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logging")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.DB)), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to open database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupPermission{},
		&models.FieldLock{},
		&models.Report{},
		&models.ReportShare{},
		&models.ChangeRecord{},
		&models.Notification{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database schema")
		return nil
	}

	if err = migrate.Run(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run data migrations")
		return nil
	}

	seed(cfg, db)

	// Initialize fiber session store on the same SQLite file.
	sessionStorage := sessionsqlite.New(sessionsqlite.Config{
		Database: cfg.DB.Path,
		Table:    "sessions",
	})

	session.Init(sessionStorage)

	notifyService := notify.NewService(cfg.Notify)

	d := &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db, notifyService),
	}

	if cfg.Backup.Enabled {
		runner, err := backup.New(cfg.DB, cfg.Backup)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure database backups")
			return nil
		}

		d.backup = runner
	}

	return d
}

// dsn builds the SQLite connection string. WAL keeps readers unblocked during
// writes; busy_timeout makes concurrent writers wait instead of failing with
// SQLITE_BUSY.
func dsn(cfg config.DB) string {
	s := cfg.Path + fmt.Sprintf("?_pragma=busy_timeout(%d)", cfg.BusyTimeoutMS)
	if cfg.WAL {
		s += "&_pragma=journal_mode(WAL)"
	}

	return s
}
