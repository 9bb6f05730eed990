// Runs schema migrations outside the app lifecycle. The app applies pending
// migrations on startup anyway; this binary is for rollbacks and CI.
//
//	go run ./cmd/migrate              # apply all pending migrations
//	go run ./cmd/migrate -down        # roll back everything
//	go run ./cmd/migrate -steps -1    # roll back one step
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"ai-content-boost/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	down := flag.Bool("down", false, "roll back all migrations")
	steps := flag.Int("steps", 0, "apply exactly n steps (negative rolls back)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}
	defer m.Close()

	switch {
	case *steps != 0:
		err = m.Steps(*steps)
	case *down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	version, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		log.Println("schema is empty")
	case verr != nil:
		log.Printf("version lookup: %v", verr)
	default:
		log.Printf("schema version: %d (dirty=%v)", version, dirty)
	}
}
