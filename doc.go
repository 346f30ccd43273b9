// Package main provides the entry point for the IPPEL RNC tracking service.
// It initializes and runs a web server using the Fiber framework that lets
// users record non-conformance reports (RNCs), assign them to users and
// groups, and work them through their lifecycle. The application uses gorm
// over a single SQLite file for persistence and includes group-based
// permissions, per-field edit locks, an append-only change log, and
// persistent notifications that resurface until acknowledged.
package main
