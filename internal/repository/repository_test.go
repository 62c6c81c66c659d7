package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"realitycheck/backend/internal/db"
	"realitycheck/backend/internal/model"
	"realitycheck/backend/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func seedUser(t *testing.T, users *repository.UserRepository, id, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:           id,
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		RealityScore: model.InitialRealityScore,
		BiasType:     model.BiasRealistic,
		CurrentPhase: model.InitialPhase,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestUpdateProfileVersionConflict(t *testing.T) {
	database := openTestDB(t)
	users := repository.NewUserRepository(database)
	ctx := context.Background()
	seedUser(t, users, "u1", "u1@example.com")

	stale, err := users.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	fresh, err := users.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	fresh.RealityScore = 90
	if err := users.UpdateProfileTx(ctx, tx, fresh); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if fresh.Version != 2 {
		t.Fatalf("expected version 2, got %d", fresh.Version)
	}
	stale.RealityScore = 50
	if err := users.UpdateProfileTx(ctx, tx, stale); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	stored, err := users.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.RealityScore != 90 {
		t.Fatalf("stale write must not land, score %d", stored.RealityScore)
	}
}

func TestArchiveAllAndListing(t *testing.T) {
	database := openTestDB(t)
	users := repository.NewUserRepository(database)
	commitments := repository.NewCommitmentRepository(database)
	ctx := context.Background()
	seedUser(t, users, "u1", "u1@example.com")
	seedUser(t, users, "u2", "u2@example.com")

	insert := func(id, owner string, status string, gap float64) {
		t.Helper()
		tx, err := commitments.BeginTx(ctx)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		defer tx.Rollback()
		now := time.Now().UTC()
		c := &model.Commitment{
			ID: id, UserID: owner, Title: id, EstimatedEffort: 1,
			Status: status, Phase: 1, CreatedAt: now, UpdatedAt: now,
		}
		if status == model.StatusCompleted {
			actual := 1 + gap
			ratio := actual
			c.ActualEffort = &actual
			c.EffortGap = &gap
			c.EffortRatio = &ratio
		}
		if err := commitments.InsertTx(ctx, tx, c); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	insert("a", "u1", model.StatusCompleted, 2)
	insert("b", "u1", model.StatusPending, 0)
	insert("c", "u1", model.StatusCompleted, -1)
	insert("other", "u2", model.StatusPending, 0)

	gaps, err := commitments.RecentGaps(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("recent gaps: %v", err)
	}
	if len(gaps) != 2 || gaps[0] != -1 || gaps[1] != 2 {
		t.Fatalf("expected gaps newest first [-1 2], got %v", gaps)
	}

	tx, err := commitments.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	archived, err := commitments.ArchiveAllTx(ctx, tx, "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if archived != 3 {
		t.Fatalf("expected 3 archived, got %d", archived)
	}

	active, err := commitments.ListActive(ctx, "u1")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active commitments, got %d", len(active))
	}

	others, err := commitments.ListActive(ctx, "u2")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("other owner's commitments must stay active, got %d", len(others))
	}

	all, err := commitments.ListArchived(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 archived, got %d", len(all))
	}
	none, err := commitments.ListArchived(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected nothing archived in phase 2, got %d", len(none))
	}

	gaps, err = commitments.RecentGaps(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("recent gaps: %v", err)
	}
	if len(gaps) != 0 {
		t.Fatalf("archived completions must not feed bias, got %v", gaps)
	}
}
