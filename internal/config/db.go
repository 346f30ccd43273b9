package config

// DB holds the database configuration settings.
// The whole application shares one SQLite file.
type DB struct {
	Path          string // path to the sqlite database file
	BusyTimeoutMS int    // sqlite busy_timeout pragma in milliseconds
	WAL           bool   // enable write-ahead-log journal mode
}
