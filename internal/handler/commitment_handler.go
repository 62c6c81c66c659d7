package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "realitycheck/backend/internal/errors"
	"realitycheck/backend/internal/service"
)

type CommitmentHandler struct {
	commitmentService *service.CommitmentService
}

type createCommitmentRequest struct {
	Title           string   `json:"title"`
	EstimatedEffort *float64 `json:"estimatedEffort"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
}

type pendingReasonRequest struct {
	PendingReason string `json:"pendingReason"`
}

type completeCommitmentRequest struct {
	ActualEffort   *float64 `json:"actualEffort"`
	InaccurateNote *string  `json:"inaccurateNote"`
}

func NewCommitmentHandler(commitmentService *service.CommitmentService) *CommitmentHandler {
	return &CommitmentHandler{commitmentService: commitmentService}
}

func (h *CommitmentHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createCommitmentRequest
	if !bindJSON(c, &req) {
		return
	}

	commitment, apiErr := h.commitmentService.Create(c.Request.Context(), userID, service.CreateCommitmentInput{
		Title:           req.Title,
		EstimatedEffort: req.EstimatedEffort,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, commitment)
}

func (h *CommitmentHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, apiErr := h.commitmentService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CommitmentHandler) ListArchived(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	phase := 0
	if raw := c.Query("phase"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(c, apperrors.Validation("invalid_phase", "phase must be a positive number"))
			return
		}
		phase = parsed
	}

	commitments, apiErr := h.commitmentService.ListArchived(c.Request.Context(), userID, phase)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commitments": commitments})
}

func (h *CommitmentHandler) Suggestion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	suggestion, apiErr := h.commitmentService.Suggestion(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

func (h *CommitmentHandler) ScoreHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	history, apiErr := h.commitmentService.ScoreHistory(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *CommitmentHandler) StartNewPhase(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	profile, apiErr := h.commitmentService.StartNewPhase(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Started new phase",
		"realityScore": profile.RealityScore,
		"biasType":     profile.BiasType,
		"currentPhase": profile.CurrentPhase,
	})
}

func (h *CommitmentHandler) SavePendingReason(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req pendingReasonRequest
	if !bindJSON(c, &req) {
		return
	}

	commitment, apiErr := h.commitmentService.SavePendingReason(c.Request.Context(), userID, c.Param("id"), req.PendingReason)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reason saved", "commitment": commitment})
}

func (h *CommitmentHandler) Complete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req completeCommitmentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, apiErr := h.commitmentService.Complete(c.Request.Context(), userID, c.Param("id"), service.CompleteCommitmentInput{
		ActualEffort:   req.ActualEffort,
		InaccurateNote: req.InaccurateNote,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CommitmentHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if apiErr := h.commitmentService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
