package main

import (
	"log"

	"realitycheck/backend/internal/config"
	"realitycheck/backend/internal/db"
)

func main() {
	cfg := config.Load()
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	applied, err := db.AppliedMigrations(database)
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	for _, name := range applied {
		log.Printf("  %s", name)
	}
	log.Printf("%d migrations applied to %s", len(applied), cfg.DBPath)
}
