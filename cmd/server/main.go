package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realitycheck/backend/internal/config"
	"realitycheck/backend/internal/db"
	"realitycheck/backend/internal/handler"
	"realitycheck/backend/internal/repository"
	"realitycheck/backend/internal/router"
	"realitycheck/backend/internal/service"
	"realitycheck/backend/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	userRepo := repository.NewUserRepository(database)
	commitmentRepo := repository.NewCommitmentRepository(database)
	scoreEventRepo := repository.NewScoreEventRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	commitmentService := service.NewCommitmentService(commitmentRepo, userRepo, scoreEventRepo)

	authHandler := handler.NewAuthHandler(authService)
	commitmentHandler := handler.NewCommitmentHandler(commitmentService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ReconcileInterval > 0 {
		go worker.NewReconcileWorker(userRepo, commitmentService, cfg.ReconcileInterval).Run(ctx)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(authService, authHandler, commitmentHandler, cfg.CORSOrigins),
	}

	go func() {
		log.Printf("backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
