// Command migrate applies (or rolls back one step of) the Postgres
// schema internal/auth, internal/history, and internal/wallet's
// PostgresService variants require before they will start.
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"holdem-lite/internal/storage"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of applying pending ones")
	flag.Parse()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("AUTH_DATABASE_DSN"))
	}
	if dsn == "" {
		log.Fatal("[Migrate] DATABASE_URL (or AUTH_DATABASE_DSN) must be set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("[Migrate] open: %v", err)
	}
	defer db.Close()

	if *down {
		if err := storage.MigrateDown(db); err != nil {
			log.Fatalf("[Migrate] down: %v", err)
		}
		log.Printf("[Migrate] rolled back one migration")
		return
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("[Migrate] up: %v", err)
	}
	log.Printf("[Migrate] schema up to date")
}
