// Command realitymcp serves the commitment lifecycle over MCP stdio for the
// owner named by MCP_USER_ID.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"realitycheck/backend/internal/config"
	"realitycheck/backend/internal/db"
	"realitycheck/backend/internal/mcptools"
	"realitycheck/backend/internal/repository"
	"realitycheck/backend/internal/service"
)

func main() {
	// stdout carries the MCP transport.
	log.SetOutput(os.Stderr)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if cfg.MCPUserID == "" {
		return fmt.Errorf("MCP_USER_ID is required")
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	commitmentService := service.NewCommitmentService(
		repository.NewCommitmentRepository(database),
		repository.NewUserRepository(database),
		repository.NewScoreEventRepository(database),
	)

	return server.ServeStdio(mcptools.NewServer(commitmentService, cfg.MCPUserID))
}
