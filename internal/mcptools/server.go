// Package mcptools exposes the commitment lifecycle as MCP tools scoped to a
// single owner.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	apperrors "realitycheck/backend/internal/errors"
	"realitycheck/backend/internal/model"
	"realitycheck/backend/internal/service"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Lifecycle is the subset of the commitment service the tools drive.
type Lifecycle interface {
	Create(ctx context.Context, userID string, input service.CreateCommitmentInput) (*model.Commitment, *apperrors.APIError)
	List(ctx context.Context, userID string) (*service.CommitmentList, *apperrors.APIError)
	Complete(ctx context.Context, userID, commitmentID string, input service.CompleteCommitmentInput) (*service.CompletionResult, *apperrors.APIError)
	SavePendingReason(ctx context.Context, userID, commitmentID, reason string) (*model.Commitment, *apperrors.APIError)
	Delete(ctx context.Context, userID, commitmentID string) *apperrors.APIError
	Suggestion(ctx context.Context, userID string) (*service.Suggestion, *apperrors.APIError)
	StartNewPhase(ctx context.Context, userID string) (*model.Profile, *apperrors.APIError)
}

type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// NewServer registers every lifecycle tool for userID.
func NewServer(lifecycle Lifecycle, userID string) *server.MCPServer {
	s := server.NewMCPServer(
		"realitycheck",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Track effort commitments: create them with an estimate, complete them with the actual effort, "+
				"and watch the reality score and bias classification. Check commitment_suggestion before estimating.",
		),
	)

	for _, t := range Tools(lifecycle, userID) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Tools returns the lifecycle tools in registration order.
func Tools(lifecycle Lifecycle, userID string) []Tool {
	base := owner{lifecycle: lifecycle, userID: userID}
	return []Tool{
		&CreateTool{base},
		&ListTool{base},
		&CompleteTool{base},
		&PendingReasonTool{base},
		&DeleteTool{base},
		&SuggestionTool{base},
		&StartPhaseTool{base},
	}
}

type owner struct {
	lifecycle Lifecycle
	userID    string
}

func errorResult(apiErr *apperrors.APIError) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Code))
}

// optionalFloat distinguishes an absent argument from an explicit zero.
func optionalFloat(req mcp.CallToolRequest, key string) *float64 {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	value := req.GetFloat(key, 0)
	return &value
}

func optionalString(req mcp.CallToolRequest, key string) *string {
	if _, ok := req.GetArguments()[key]; !ok {
		return nil
	}
	value := req.GetString(key, "")
	return &value
}

func formatCommitment(sb *strings.Builder, c model.Commitment) {
	fmt.Fprintf(sb, "- **%s** `%s` [%s] estimated %gh", c.Title, c.ID, c.Status, c.EstimatedEffort)
	if c.ActualEffort != nil {
		fmt.Fprintf(sb, ", actual %gh", *c.ActualEffort)
	}
	if c.EffortGap != nil {
		fmt.Fprintf(sb, ", gap %+gh", *c.EffortGap)
	}
	if c.PendingReason != "" {
		fmt.Fprintf(sb, ", pending: %s", c.PendingReason)
	}
	if c.InaccurateNote != "" {
		fmt.Fprintf(sb, ", note: %s", c.InaccurateNote)
	}
	sb.WriteString("\n")
}
