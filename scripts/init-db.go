// Command init-db drops and recreates the schema, then seeds the admin
// account and sample catalog. Development databases only.
package main

import (
	"flag"

	"mechanical_shop/internal/config"
	"mechanical_shop/internal/database"
	"mechanical_shop/internal/migrations"

	log "github.com/sirupsen/logrus"
)

func main() {
	keep := flag.Bool("keep", false, "migrate without dropping existing tables")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if *keep {
		log.Info("Migrating schema")
		err = migrations.RunMigrations(db)
	} else {
		log.Warn("Dropping and recreating all tables")
		err = migrations.Reset(db)
	}
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if err := migrations.Seed(db); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	log.Info("Database initialized")
}
