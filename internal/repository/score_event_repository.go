package repository

import (
	"context"
	"database/sql"
	"fmt"

	"realitycheck/backend/internal/model"
)

// ScoreEventRepository stores the append-only score ledger.
type ScoreEventRepository struct {
	db *sql.DB
}

func NewScoreEventRepository(db *sql.DB) *ScoreEventRepository {
	return &ScoreEventRepository{db: db}
}

const scoreEventColumns = `id, user_id, commitment_id, phase, kind, delta,
	score_after, bias_after, created_at`

func (r *ScoreEventRepository) InsertTx(ctx context.Context, tx *sql.Tx, event *model.ScoreEvent) error {
	var commitmentID interface{}
	if event.CommitmentID != nil {
		commitmentID = *event.CommitmentID
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO score_events (`+scoreEventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.UserID,
		commitmentID,
		event.Phase,
		event.Kind,
		event.Delta,
		event.ScoreAfter,
		event.BiasAfter,
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert score event: %w", err)
	}
	return nil
}

// ListByPhase returns a phase's ledger oldest first.
func (r *ScoreEventRepository) ListByPhase(ctx context.Context, userID string, phase int) ([]model.ScoreEvent, error) {
	return listScoreEvents(ctx, r.db, userID, phase)
}

func (r *ScoreEventRepository) ListByPhaseTx(ctx context.Context, tx *sql.Tx, userID string, phase int) ([]model.ScoreEvent, error) {
	return listScoreEvents(ctx, tx, userID, phase)
}

func listScoreEvents(ctx context.Context, q queryer, userID string, phase int) ([]model.ScoreEvent, error) {
	rows, err := q.QueryContext(
		ctx,
		`SELECT `+scoreEventColumns+`
		 FROM score_events
		 WHERE user_id = ? AND phase = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID,
		phase,
	)
	if err != nil {
		return nil, fmt.Errorf("list score events: %w", err)
	}
	defer rows.Close()

	events := make([]model.ScoreEvent, 0)
	for rows.Next() {
		event, scanErr := scanScoreEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score events: %w", err)
	}
	return events, nil
}

func scanScoreEvent(s scanner) (*model.ScoreEvent, error) {
	event := model.ScoreEvent{}
	var commitmentID sql.NullString
	var createdAt string
	err := s.Scan(
		&event.ID,
		&event.UserID,
		&commitmentID,
		&event.Phase,
		&event.Kind,
		&event.Delta,
		&event.ScoreAfter,
		&event.BiasAfter,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan score event: %w", err)
	}

	if commitmentID.Valid {
		value := commitmentID.String
		event.CommitmentID = &value
	}
	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse score event created_at: %w", err)
	}
	event.CreatedAt = parsedCreatedAt
	return &event, nil
}
