package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"realitycheck/backend/internal/service"
)

// CreateTool handles the commitment_create MCP tool.
type CreateTool struct{ owner }

func (t *CreateTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_create",
		mcp.WithDescription("Log a new pending commitment with an effort estimate in hours."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("What you commit to doing"),
		),
		mcp.WithNumber("estimated_effort",
			mcp.Required(),
			mcp.Description("Estimated effort in hours, greater than zero"),
		),
		mcp.WithString("start_date",
			mcp.Description("Optional start date (YYYY-MM-DD)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Optional end date (YYYY-MM-DD), not before start_date"),
		),
	)
}

func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	commitment, apiErr := t.lifecycle.Create(ctx, t.userID, service.CreateCommitmentInput{
		Title:           req.GetString("title", ""),
		EstimatedEffort: optionalFloat(req, "estimated_effort"),
		StartDate:       req.GetString("start_date", ""),
		EndDate:         req.GetString("end_date", ""),
	})
	if apiErr != nil {
		return errorResult(apiErr), nil
	}

	var sb strings.Builder
	sb.WriteString("Created commitment:\n")
	formatCommitment(&sb, *commitment)
	fmt.Fprintf(&sb, "Phase: %d\n", commitment.Phase)
	return mcp.NewToolResultText(sb.String()), nil
}

// ListTool handles the commitment_list MCP tool.
type ListTool struct{ owner }

func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_list",
		mcp.WithDescription("List active commitments (newest first) with the current reality score, bias and phase."),
	)
}

func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, apiErr := t.lifecycle.List(ctx, t.userID)
	if apiErr != nil {
		return errorResult(apiErr), nil
	}

	var sb strings.Builder
	sb.WriteString("## Commitments\n\n")
	fmt.Fprintf(&sb, "- **Reality score**: %d\n", list.RealityScore)
	fmt.Fprintf(&sb, "- **Bias**: %s\n", list.BiasType)
	fmt.Fprintf(&sb, "- **Phase**: %d\n\n", list.CurrentPhase)
	if len(list.Commitments) == 0 {
		sb.WriteString("No active commitments.\n")
	}
	for _, c := range list.Commitments {
		formatCommitment(&sb, c)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// CompleteTool handles the commitment_complete MCP tool.
type CompleteTool struct{ owner }

func (t *CompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_complete",
		mcp.WithDescription("Record the actual effort spent on a pending commitment. Updates the reality score and bias."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Commitment id"),
		),
		mcp.WithNumber("actual_effort",
			mcp.Required(),
			mcp.Description("Actual effort in hours"),
		),
		mcp.WithString("inaccurate_note",
			mcp.Description("Why the estimate was off (defaults to the saved pending reason)"),
		),
	)
}

func (t *CompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	result, apiErr := t.lifecycle.Complete(ctx, t.userID, id, service.CompleteCommitmentInput{
		ActualEffort:   optionalFloat(req, "actual_effort"),
		InaccurateNote: optionalString(req, "inaccurate_note"),
	})
	if apiErr != nil {
		return errorResult(apiErr), nil
	}

	var sb strings.Builder
	sb.WriteString("Completed:\n")
	formatCommitment(&sb, result.Commitment)
	fmt.Fprintf(&sb, "Reality score: %d, bias: %s\n", result.RealityScore, result.BiasType)
	return mcp.NewToolResultText(sb.String()), nil
}

// PendingReasonTool handles the commitment_pending_reason MCP tool.
type PendingReasonTool struct{ owner }

func (t *PendingReasonTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_pending_reason",
		mcp.WithDescription("Save why a pending commitment is not done yet. Empty text clears the reason."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Commitment id"),
		),
		mcp.WithString("reason",
			mcp.Description("Reason text"),
		),
	)
}

func (t *PendingReasonTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	commitment, apiErr := t.lifecycle.SavePendingReason(ctx, t.userID, id, req.GetString("reason", ""))
	if apiErr != nil {
		return errorResult(apiErr), nil
	}

	var sb strings.Builder
	sb.WriteString("Reason saved:\n")
	formatCommitment(&sb, *commitment)
	return mcp.NewToolResultText(sb.String()), nil
}

// DeleteTool handles the commitment_delete MCP tool.
type DeleteTool struct{ owner }

func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_delete",
		mcp.WithDescription("Permanently delete a pending commitment. Completed or archived commitments cannot be deleted."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Commitment id"),
		),
	)
}

func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if apiErr := t.lifecycle.Delete(ctx, t.userID, id); apiErr != nil {
		return errorResult(apiErr), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted commitment %s", id)), nil
}

// SuggestionTool handles the commitment_suggestion MCP tool.
type SuggestionTool struct{ owner }

func (t *SuggestionTool) Definition() mcp.Tool {
	return mcp.NewTool("commitment_suggestion",
		mcp.WithDescription("Get the advisory multiplier to apply to your next estimate, based on recent completions."),
	)
}

func (t *SuggestionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	suggestion, apiErr := t.lifecycle.Suggestion(ctx, t.userID)
	if apiErr != nil {
		return errorResult(apiErr), nil
	}

	advice := "Your recent estimates are on target."
	switch {
	case suggestion.Multiplier > 1:
		advice = "You usually underestimate effort. Consider increasing your estimate."
	case suggestion.Multiplier < 1:
		advice = "You usually overestimate effort."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Multiplier: %g\n", suggestion.Multiplier)
	fmt.Fprintf(&sb, "Ratio bias: %s (%d samples)\n", suggestion.RatioBias, suggestion.Samples)
	sb.WriteString(advice + "\n")
	return mcp.NewToolResultText(sb.String()), nil
}

// StartPhaseTool handles the phase_start MCP tool.
type StartPhaseTool struct{ owner }

func (t *StartPhaseTool) Definition() mcp.Tool {
	return mcp.NewTool("phase_start",
		mcp.WithDescription(
			"Archive every active commitment and start a new phase with the reality score reset to 100. "+
				"Archived history is kept but no longer scored.",
		),
	)
}

func (t *StartPhaseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, apiErr := t.lifecycle.StartNewPhase(ctx, t.userID)
	if apiErr != nil {
		return errorResult(apiErr), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Started phase %d. Reality score: %d, bias: %s",
		profile.CurrentPhase, profile.RealityScore, profile.BiasType,
	)), nil
}
