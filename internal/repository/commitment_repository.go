package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"realitycheck/backend/internal/model"
)

type CommitmentRepository struct {
	db *sql.DB
}

func NewCommitmentRepository(db *sql.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

const commitmentColumns = `id, user_id, title, estimated_effort, actual_effort,
	start_date, end_date, status, effort_gap, effort_ratio, pending_reason,
	inaccurate_note, archived, archived_at, phase, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *CommitmentRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *CommitmentRepository) InsertTx(ctx context.Context, tx *sql.Tx, c *model.Commitment) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO commitments (`+commitmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.UserID,
		c.Title,
		c.EstimatedEffort,
		nullableFloat(c.ActualEffort),
		nullableTime(c.StartDate),
		nullableTime(c.EndDate),
		c.Status,
		nullableFloat(c.EffortGap),
		nullableFloat(c.EffortRatio),
		c.PendingReason,
		c.InaccurateNote,
		boolToInt(c.Archived),
		nullableTime(c.ArchivedAt),
		c.Phase,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) GetTx(ctx context.Context, tx *sql.Tx, id string) (*model.Commitment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+commitmentColumns+` FROM commitments WHERE id = ?`, id)
	return scanCommitment(row)
}

// UpdateTx persists the mutable fields of a commitment. Identity, owner,
// estimate, dates, phase and creation time are never rewritten.
func (r *CommitmentRepository) UpdateTx(ctx context.Context, tx *sql.Tx, c *model.Commitment) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE commitments
		 SET actual_effort = ?,
		     status = ?,
		     effort_gap = ?,
		     effort_ratio = ?,
		     pending_reason = ?,
		     inaccurate_note = ?,
		     updated_at = ?
		 WHERE id = ? AND archived = 0`,
		nullableFloat(c.ActualEffort),
		c.Status,
		nullableFloat(c.EffortGap),
		nullableFloat(c.EffortRatio),
		c.PendingReason,
		c.InaccurateNote,
		formatTime(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM commitments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete commitment rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveAllTx archives every active commitment of the user and returns how
// many rows changed.
func (r *CommitmentRepository) ArchiveAllTx(ctx context.Context, tx *sql.Tx, userID string, at time.Time) (int64, error) {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE commitments
		 SET archived = 1, archived_at = ?, updated_at = ?
		 WHERE user_id = ? AND archived = 0`,
		formatTime(at),
		formatTime(at),
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("archive commitments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive commitments rows: %w", err)
	}
	return affected, nil
}

func (r *CommitmentRepository) ListActive(ctx context.Context, userID string) ([]model.Commitment, error) {
	return listCommitments(
		ctx,
		r.db,
		`SELECT `+commitmentColumns+`
		 FROM commitments
		 WHERE user_id = ? AND archived = 0
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
}

// ListArchived returns archived commitments newest first. A phase of 0
// selects every phase.
func (r *CommitmentRepository) ListArchived(ctx context.Context, userID string, phase int) ([]model.Commitment, error) {
	if phase > 0 {
		return listCommitments(
			ctx,
			r.db,
			`SELECT `+commitmentColumns+`
			 FROM commitments
			 WHERE user_id = ? AND archived = 1 AND phase = ?
			 ORDER BY created_at DESC, rowid DESC`,
			userID,
			phase,
		)
	}
	return listCommitments(
		ctx,
		r.db,
		`SELECT `+commitmentColumns+`
		 FROM commitments
		 WHERE user_id = ? AND archived = 1
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
}

// RecentGaps returns effort gaps of the newest completed, active
// commitments, newest first.
func (r *CommitmentRepository) RecentGaps(ctx context.Context, userID string, limit int) ([]float64, error) {
	return recentGaps(ctx, r.db, userID, limit)
}

func (r *CommitmentRepository) RecentGapsTx(ctx context.Context, tx *sql.Tx, userID string, limit int) ([]float64, error) {
	return recentGaps(ctx, tx, userID, limit)
}

// CompletedRatios returns every effort ratio of completed, active
// commitments, newest first.
func (r *CommitmentRepository) CompletedRatios(ctx context.Context, userID string) ([]float64, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT effort_ratio
		 FROM commitments
		 WHERE user_id = ? AND status = ? AND archived = 0 AND effort_ratio IS NOT NULL
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
		model.StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list ratios: %w", err)
	}
	return scanFloats(rows, "ratio")
}

func recentGaps(ctx context.Context, q queryer, userID string, limit int) ([]float64, error) {
	rows, err := q.QueryContext(
		ctx,
		`SELECT COALESCE(effort_gap, 0)
		 FROM commitments
		 WHERE user_id = ? AND status = ? AND archived = 0
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		userID,
		model.StatusCompleted,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent gaps: %w", err)
	}
	return scanFloats(rows, "gap")
}

func scanFloats(rows *sql.Rows, label string) ([]float64, error) {
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", label, err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", label, err)
	}
	return values, nil
}

func listCommitments(ctx context.Context, q queryer, query string, args ...interface{}) ([]model.Commitment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()

	commitments := make([]model.Commitment, 0)
	for rows.Next() {
		c, scanErr := scanCommitment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		commitments = append(commitments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return commitments, nil
}

func scanCommitment(s scanner) (*model.Commitment, error) {
	c := model.Commitment{}
	var actualEffort, effortGap, effortRatio sql.NullFloat64
	var startDate, endDate, archivedAt sql.NullString
	var archived int
	var createdAt, updatedAt string
	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.EstimatedEffort,
		&actualEffort,
		&startDate,
		&endDate,
		&c.Status,
		&effortGap,
		&effortRatio,
		&c.PendingReason,
		&c.InaccurateNote,
		&archived,
		&archivedAt,
		&c.Phase,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan commitment: %w", err)
	}

	c.ActualEffort = floatPtr(actualEffort)
	c.EffortGap = floatPtr(effortGap)
	c.EffortRatio = floatPtr(effortRatio)
	c.Archived = archived != 0

	if c.StartDate, err = parseNullableTime(startDate); err != nil {
		return nil, fmt.Errorf("parse commitment start_date: %w", err)
	}
	if c.EndDate, err = parseNullableTime(endDate); err != nil {
		return nil, fmt.Errorf("parse commitment end_date: %w", err)
	}
	if c.ArchivedAt, err = parseNullableTime(archivedAt); err != nil {
		return nil, fmt.Errorf("parse commitment archived_at: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse commitment created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse commitment updated_at: %w", err)
	}

	return &c, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
