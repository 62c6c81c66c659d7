package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "realitycheck/backend/internal/errors"
	"realitycheck/backend/internal/model"
	"realitycheck/backend/internal/repository"
	"realitycheck/backend/internal/score"
)

type CommitmentService struct {
	commitments *repository.CommitmentRepository
	users       *repository.UserRepository
	events      *repository.ScoreEventRepository
}

type CreateCommitmentInput struct {
	Title           string
	EstimatedEffort *float64
	StartDate       string
	EndDate         string
}

type CompleteCommitmentInput struct {
	ActualEffort   *float64
	InaccurateNote *string
}

type CommitmentList struct {
	Commitments  []model.Commitment `json:"commitments"`
	RealityScore int                `json:"realityScore"`
	BiasType     string             `json:"biasType"`
	CurrentPhase int                `json:"currentPhase"`
}

type CompletionResult struct {
	Message      string           `json:"message"`
	Commitment   model.Commitment `json:"commitment"`
	RealityScore int              `json:"realityScore"`
	BiasType     string           `json:"biasType"`
}

type Suggestion struct {
	Multiplier float64 `json:"multiplier"`
	RatioBias  string  `json:"ratioBias"`
	Samples    int     `json:"samples"`
}

type ScoreHistory struct {
	Phase        int                `json:"phase"`
	RealityScore int                `json:"realityScore"`
	Events       []model.ScoreEvent `json:"events"`
}

func NewCommitmentService(
	commitments *repository.CommitmentRepository,
	users *repository.UserRepository,
	events *repository.ScoreEventRepository,
) *CommitmentService {
	return &CommitmentService{
		commitments: commitments,
		users:       users,
		events:      events,
	}
}

func (s *CommitmentService) Create(ctx context.Context, userID string, input CreateCommitmentInput) (*model.Commitment, *apperrors.APIError) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("invalid_title", "title is required")
	}
	if input.EstimatedEffort == nil {
		return nil, apperrors.Validation("invalid_estimated_effort", "estimatedEffort is required")
	}
	estimate := *input.EstimatedEffort
	if !isFinite(estimate) || estimate <= 0 {
		return nil, apperrors.Validation("invalid_estimated_effort", "estimatedEffort must be greater than zero")
	}

	startDate, err := parseDate(input.StartDate)
	if err != nil {
		return nil, apperrors.Validation("invalid_start_date", "startDate must be YYYY-MM-DD or RFC 3339")
	}
	endDate, err := parseDate(input.EndDate)
	if err != nil {
		return nil, apperrors.Validation("invalid_end_date", "endDate must be YYYY-MM-DD or RFC 3339")
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return nil, apperrors.Validation("invalid_date_range", "End date cannot be before start date")
	}

	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return nil, internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := s.getOwnerTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	// Stamped under the write lock so created_at follows insertion order.
	now := time.Now().UTC()
	commitment := model.Commitment{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		EstimatedEffort: estimate,
		StartDate:       startDate,
		EndDate:         endDate,
		Status:          model.StatusPending,
		Archived:        false,
		Phase:           phaseOrDefault(user.CurrentPhase),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.commitments.InsertTx(ctx, tx, &commitment); err != nil {
		return nil, internalError("failed to create commitment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("failed to commit transaction", err)
	}
	return &commitment, nil
}

func (s *CommitmentService) List(ctx context.Context, userID string) (*CommitmentList, *apperrors.APIError) {
	commitments, err := s.commitments.ListActive(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list commitments", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user_not_found", "User not found")
	}
	if err != nil {
		return nil, internalError("failed to get user", err)
	}

	return &CommitmentList{
		Commitments:  commitments,
		RealityScore: user.RealityScore,
		BiasType:     user.BiasType,
		CurrentPhase: user.CurrentPhase,
	}, nil
}

// ListArchived returns archived commitments of one phase, or of every phase
// when phase is 0.
func (s *CommitmentService) ListArchived(ctx context.Context, userID string, phase int) ([]model.Commitment, *apperrors.APIError) {
	if phase < 0 {
		return nil, apperrors.Validation("invalid_phase", "phase must not be negative")
	}
	commitments, err := s.commitments.ListArchived(ctx, userID, phase)
	if err != nil {
		return nil, internalError("failed to list archived commitments", err)
	}
	return commitments, nil
}

// Complete records actual effort on a pending commitment and folds the
// result into the owner's score and bias in the same transaction.
func (s *CommitmentService) Complete(ctx context.Context, userID, commitmentID string, input CompleteCommitmentInput) (*CompletionResult, *apperrors.APIError) {
	if input.ActualEffort == nil {
		return nil, apperrors.Validation("invalid_actual_effort", "actualEffort is required")
	}
	actual := *input.ActualEffort
	if !isFinite(actual) || actual < 0 {
		return nil, apperrors.Validation("invalid_actual_effort", "actualEffort must be zero or more")
	}

	now := time.Now().UTC()
	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return nil, internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	commitment, apiErr := s.getOwnedTx(ctx, tx, userID, commitmentID)
	if apiErr != nil {
		return nil, apiErr
	}
	if commitment.Archived {
		return nil, apperrors.InvalidState("commitment_archived", "Cannot update archived commitment")
	}
	if !commitment.IsPending() {
		return nil, apperrors.InvalidState("commitment_completed", "Commitment is already completed")
	}

	completion := score.ComputeCompletionDelta(commitment.EstimatedEffort, actual)
	if !isFinite(completion.EffortRatio) || !isFinite(completion.EffortGap) {
		return nil, apperrors.Validation("invalid_actual_effort", "actualEffort is out of range for this estimate")
	}

	note := ""
	if input.InaccurateNote != nil {
		note = strings.TrimSpace(*input.InaccurateNote)
	}
	if note == "" {
		note = commitment.PendingReason
	}

	commitment.ActualEffort = &actual
	commitment.Status = model.StatusCompleted
	commitment.EffortGap = &completion.EffortGap
	commitment.EffortRatio = &completion.EffortRatio
	commitment.InaccurateNote = note
	commitment.PendingReason = ""
	commitment.UpdatedAt = now

	if err := s.commitments.UpdateTx(ctx, tx, commitment); err != nil {
		return nil, internalError("failed to update commitment", err)
	}

	user, apiErr := s.getOwnerTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	gaps, err := s.commitments.RecentGapsTx(ctx, tx, userID, score.RecentWindow)
	if err != nil {
		return nil, internalError("failed to read recent completions", err)
	}

	user.RealityScore = score.Apply(user.RealityScore, completion.ScoreDelta)
	user.BiasType = score.ClassifyBias(gaps)
	user.UpdatedAt = now
	if apiErr := s.saveProfileTx(ctx, tx, user); apiErr != nil {
		return nil, apiErr
	}

	commitmentRef := commitment.ID
	event := model.ScoreEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CommitmentID: &commitmentRef,
		Phase:        commitment.Phase,
		Kind:         model.ScoreEventCompletion,
		Delta:        completion.ScoreDelta,
		ScoreAfter:   user.RealityScore,
		BiasAfter:    user.BiasType,
		CreatedAt:    now,
	}
	if err := s.events.InsertTx(ctx, tx, &event); err != nil {
		return nil, internalError("failed to record score event", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("failed to commit transaction", err)
	}

	return &CompletionResult{
		Message:      "Completed",
		Commitment:   *commitment,
		RealityScore: user.RealityScore,
		BiasType:     user.BiasType,
	}, nil
}

func (s *CommitmentService) SavePendingReason(ctx context.Context, userID, commitmentID, reason string) (*model.Commitment, *apperrors.APIError) {
	now := time.Now().UTC()
	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return nil, internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	commitment, apiErr := s.getOwnedTx(ctx, tx, userID, commitmentID)
	if apiErr != nil {
		return nil, apiErr
	}
	if commitment.Archived {
		return nil, apperrors.InvalidState("commitment_archived", "Cannot edit archived commitment")
	}
	if !commitment.IsPending() {
		return nil, apperrors.InvalidState("commitment_not_pending", "Only pending commitments can be edited")
	}

	commitment.PendingReason = strings.TrimSpace(reason)
	commitment.UpdatedAt = now
	if err := s.commitments.UpdateTx(ctx, tx, commitment); err != nil {
		return nil, internalError("failed to save reason", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("failed to commit transaction", err)
	}
	return commitment, nil
}

func (s *CommitmentService) Delete(ctx context.Context, userID, commitmentID string) *apperrors.APIError {
	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	commitment, apiErr := s.getOwnedTx(ctx, tx, userID, commitmentID)
	if apiErr != nil {
		return apiErr
	}
	if commitment.Archived {
		return apperrors.InvalidState("commitment_archived", "Cannot delete archived commitment")
	}
	if commitment.IsCompleted() {
		return apperrors.InvalidState("commitment_completed", "Completed commitments cannot be deleted")
	}

	if err := s.commitments.DeleteTx(ctx, tx, commitment.ID); err != nil {
		return internalError("failed to delete commitment", err)
	}

	if err := tx.Commit(); err != nil {
		return internalError("failed to commit transaction", err)
	}
	return nil
}

func (s *CommitmentService) Suggestion(ctx context.Context, userID string) (*Suggestion, *apperrors.APIError) {
	gaps, err := s.commitments.RecentGaps(ctx, userID, score.RecentWindow)
	if err != nil {
		return nil, internalError("failed to read recent completions", err)
	}
	ratios, err := s.commitments.CompletedRatios(ctx, userID)
	if err != nil {
		return nil, internalError("failed to read effort ratios", err)
	}

	return &Suggestion{
		Multiplier: score.SuggestMultiplier(gaps),
		RatioBias:  score.ClassifyRatioBias(ratios),
		Samples:    len(ratios),
	}, nil
}

// StartNewPhase archives every active commitment and restores the profile
// baseline under a single transaction.
func (s *CommitmentService) StartNewPhase(ctx context.Context, userID string) (*model.Profile, *apperrors.APIError) {
	now := time.Now().UTC()
	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return nil, internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := s.getOwnerTx(ctx, tx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	archived, err := s.commitments.ArchiveAllTx(ctx, tx, userID, now)
	if err != nil {
		return nil, internalError("failed to archive commitments", err)
	}

	previousScore := user.RealityScore
	user.RealityScore = model.InitialRealityScore
	user.BiasType = model.BiasRealistic
	user.CurrentPhase = phaseOrDefault(user.CurrentPhase) + 1
	user.UpdatedAt = now
	if apiErr := s.saveProfileTx(ctx, tx, user); apiErr != nil {
		return nil, apiErr
	}

	event := model.ScoreEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Phase:      user.CurrentPhase,
		Kind:       model.ScoreEventPhaseReset,
		Delta:      model.InitialRealityScore - previousScore,
		ScoreAfter: user.RealityScore,
		BiasAfter:  user.BiasType,
		CreatedAt:  now,
	}
	if err := s.events.InsertTx(ctx, tx, &event); err != nil {
		return nil, internalError("failed to record score event", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError("failed to commit transaction", err)
	}

	log.Printf("user %s started phase %d, archived %d commitments", userID, user.CurrentPhase, archived)
	profile := user.Profile()
	return &profile, nil
}

func (s *CommitmentService) ScoreHistory(ctx context.Context, userID string) (*ScoreHistory, *apperrors.APIError) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user_not_found", "User not found")
	}
	if err != nil {
		return nil, internalError("failed to get user", err)
	}

	events, err := s.events.ListByPhase(ctx, userID, user.CurrentPhase)
	if err != nil {
		return nil, internalError("failed to read score history", err)
	}

	return &ScoreHistory{
		Phase:        user.CurrentPhase,
		RealityScore: user.RealityScore,
		Events:       events,
	}, nil
}

// ReconcileProfile re-derives the owner's score from the current phase's
// ledger and the bias from recent completions, repairing the stored
// aggregate when it has drifted. It reports whether a repair was written.
func (s *CommitmentService) ReconcileProfile(ctx context.Context, userID string) (bool, *apperrors.APIError) {
	tx, err := s.commitments.BeginTx(ctx)
	if err != nil {
		return false, internalError("failed to start transaction", err)
	}
	defer tx.Rollback()

	user, apiErr := s.getOwnerTx(ctx, tx, userID)
	if apiErr != nil {
		return false, apiErr
	}

	events, err := s.events.ListByPhaseTx(ctx, tx, userID, user.CurrentPhase)
	if err != nil {
		return false, internalError("failed to read score history", err)
	}
	deltas := make([]int, 0, len(events))
	for _, event := range events {
		if event.Kind == model.ScoreEventCompletion {
			deltas = append(deltas, event.Delta)
		}
	}

	gaps, err := s.commitments.RecentGapsTx(ctx, tx, userID, score.RecentWindow)
	if err != nil {
		return false, internalError("failed to read recent completions", err)
	}

	expectedScore := score.FoldScore(deltas)
	expectedBias := score.ClassifyBias(gaps)
	if user.RealityScore == expectedScore && user.BiasType == expectedBias {
		return false, nil
	}

	log.Printf(
		"reconcile user %s: score %d -> %d, bias %s -> %s",
		userID, user.RealityScore, expectedScore, user.BiasType, expectedBias,
	)
	user.RealityScore = expectedScore
	user.BiasType = expectedBias
	user.UpdatedAt = time.Now().UTC()
	if apiErr := s.saveProfileTx(ctx, tx, user); apiErr != nil {
		return false, apiErr
	}

	if err := tx.Commit(); err != nil {
		return false, internalError("failed to commit transaction", err)
	}
	return true, nil
}

func (s *CommitmentService) getOwnedTx(ctx context.Context, tx *sql.Tx, userID, commitmentID string) (*model.Commitment, *apperrors.APIError) {
	commitment, err := s.commitments.GetTx(ctx, tx, commitmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("commitment_not_found", "Not found")
	}
	if err != nil {
		return nil, internalError("failed to get commitment", err)
	}
	if commitment.UserID != userID {
		return nil, apperrors.Forbidden("Forbidden")
	}
	return commitment, nil
}

func (s *CommitmentService) getOwnerTx(ctx context.Context, tx *sql.Tx, userID string) (*model.User, *apperrors.APIError) {
	user, err := s.users.GetByIDTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user_not_found", "User not found")
	}
	if err != nil {
		return nil, internalError("failed to get user", err)
	}
	return user, nil
}

func (s *CommitmentService) saveProfileTx(ctx context.Context, tx *sql.Tx, user *model.User) *apperrors.APIError {
	err := s.users.UpdateProfileTx(ctx, tx, user)
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.Conflict("profile_conflict", "profile changed concurrently, retry the request", nil)
	}
	if err != nil {
		return internalError("failed to update profile", err)
	}
	return nil
}

func internalError(message string, err error) *apperrors.APIError {
	log.Printf("%s: %v", message, err)
	return apperrors.Internal(message)
}

func phaseOrDefault(phase int) int {
	if phase < model.InitialPhase {
		return model.InitialPhase
	}
	return phase
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
