// Package storage holds the goose migration set applied to a Postgres
// deployment before internal/auth, internal/history, and internal/wallet's
// PostgresService variants are allowed to start (each refuses to start
// against a database missing its own table rather than bootstrap DDL
// itself against what may be a shared production connection).
package storage

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending migration in migrations/ to db. It is
// intended for the cmd/migrate tool and for local/dev bootstrapping; a
// production deployment would typically run the equivalent `goose up`
// out of band instead.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// MigrateDown rolls back exactly one migration; used by cmd/migrate's
// -down flag.
func MigrateDown(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Down(db, "migrations")
}
