package config

import (
	"time"

	"github.com/ippel-tech/ippel-rnc/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Notify    Notify
	Authz     Authz
	Backup    Backup
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown in seconds
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Notify holds the persistent notification settings.
type Notify struct {
	MaxAttempts           int // ceiling of re-delivery attempts per notification
	RepeatIntervalMinutes int // cadence between re-deliveries
}

// Authz holds the authorization evaluator cache settings.
type Authz struct {
	CacheSize       int // bounded LRU entry count
	CacheTTLSeconds int // per-entry time to live
}

// Backup holds the periodic database snapshot settings.
type Backup struct {
	Enabled         bool
	Dir             string // target directory for snapshot copies
	IntervalMinutes int
}
