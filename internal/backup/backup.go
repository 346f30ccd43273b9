// Package backup takes periodic copy-based snapshots of the SQLite database
// file on a background timer.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ippel-tech/ippel-rnc/internal/config"
)

var (
	// ErrSourceEmpty is returned when no database path was configured.
	ErrSourceEmpty = errors.New("backup source path cannot be empty")
	// ErrTargetDirEmpty is returned when no backup directory was configured.
	ErrTargetDirEmpty = errors.New("backup target directory cannot be empty")
)

// Runner copies the database file into the backup directory on a fixed
// interval. Snapshot failures are logged and retried on the next tick, never
// fatal to the serving process; the copy competes for the same file lock as
// normal request handling and transient failure is expected.
type Runner struct {
	source   string
	dir      string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New creates a backup runner for the configured database file.
func New(dbCfg config.DB, cfg config.Backup) (*Runner, error) {
	if dbCfg.Path == "" {
		return nil, ErrSourceEmpty
	}
	if cfg.Dir == "" {
		return nil, ErrTargetDirEmpty
	}

	return &Runner{
		source:   dbCfg.Path,
		dir:      cfg.Dir,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the background timer goroutine.
func (r *Runner) Start() {
	go r.loop()
}

// Stop terminates the timer and waits for an in-flight snapshot to finish.
func (r *Runner) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if _, err := r.Snapshot(); err != nil {
				log.Error().Err(err).Str("source", r.source).Msg("database snapshot failed, will retry next interval")
			}
		}
	}
}

// Snapshot copies the database file into the backup directory and returns
// the snapshot path.
func (r *Runner) Snapshot() (string, error) {
	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return "", err
	}

	target := filepath.Join(r.dir, fmt.Sprintf("%s.%s",
		filepath.Base(r.source), time.Now().Format("20060102-150405")))

	if err := copyFile(r.source, target); err != nil {
		return "", err
	}

	log.Info().Str("target", target).Msg("database snapshot written")

	return target, nil
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close() //nolint:errcheck
		return err
	}

	return out.Close()
}
