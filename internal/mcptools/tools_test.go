package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	apperrors "realitycheck/backend/internal/errors"
	"realitycheck/backend/internal/model"
	"realitycheck/backend/internal/service"
)

// fakeLifecycle records the last call and returns canned results.
type fakeLifecycle struct {
	userID       string
	createInput  service.CreateCommitmentInput
	completeID   string
	completeIn   service.CompleteCommitmentInput
	reason       string
	deletedID    string
	err          *apperrors.APIError
	commitments  []model.Commitment
	multiplier   float64
	phaseStarted bool
}

func (f *fakeLifecycle) Create(_ context.Context, userID string, input service.CreateCommitmentInput) (*model.Commitment, *apperrors.APIError) {
	f.userID = userID
	f.createInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &model.Commitment{ID: "c-1", UserID: userID, Title: input.Title, EstimatedEffort: *input.EstimatedEffort, Status: model.StatusPending, Phase: 1}, nil
}

func (f *fakeLifecycle) List(_ context.Context, userID string) (*service.CommitmentList, *apperrors.APIError) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &service.CommitmentList{Commitments: f.commitments, RealityScore: 85, BiasType: model.BiasOptimistic, CurrentPhase: 2}, nil
}

func (f *fakeLifecycle) Complete(_ context.Context, userID, commitmentID string, input service.CompleteCommitmentInput) (*service.CompletionResult, *apperrors.APIError) {
	f.userID = userID
	f.completeID = commitmentID
	f.completeIn = input
	if f.err != nil {
		return nil, f.err
	}
	gap := *input.ActualEffort - 2
	return &service.CompletionResult{
		Message:      "Completed",
		Commitment:   model.Commitment{ID: commitmentID, Title: "done", EstimatedEffort: 2, ActualEffort: input.ActualEffort, EffortGap: &gap, Status: model.StatusCompleted},
		RealityScore: 90,
		BiasType:     model.BiasOptimistic,
	}, nil
}

func (f *fakeLifecycle) SavePendingReason(_ context.Context, userID, commitmentID, reason string) (*model.Commitment, *apperrors.APIError) {
	f.userID = userID
	f.reason = reason
	if f.err != nil {
		return nil, f.err
	}
	return &model.Commitment{ID: commitmentID, Title: "waiting", Status: model.StatusPending, PendingReason: reason}, nil
}

func (f *fakeLifecycle) Delete(_ context.Context, userID, commitmentID string) *apperrors.APIError {
	f.userID = userID
	f.deletedID = commitmentID
	return f.err
}

func (f *fakeLifecycle) Suggestion(_ context.Context, userID string) (*service.Suggestion, *apperrors.APIError) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &service.Suggestion{Multiplier: f.multiplier, RatioBias: model.BiasRealistic, Samples: 3}, nil
}

func (f *fakeLifecycle) StartNewPhase(_ context.Context, userID string) (*model.Profile, *apperrors.APIError) {
	f.userID = userID
	f.phaseStarted = true
	if f.err != nil {
		return nil, f.err
	}
	return &model.Profile{RealityScore: 100, BiasType: model.BiasRealistic, CurrentPhase: 3}, nil
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, result *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("nil result")
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
}

func isRequired(def mcp.Tool, name string) bool {
	for _, r := range def.InputSchema.Required {
		if r == name {
			return true
		}
	}
	return false
}

func TestTools_Definitions(t *testing.T) {
	tools := Tools(&fakeLifecycle{}, "user-1")

	want := map[string][]string{
		"commitment_create":         {"title", "estimated_effort"},
		"commitment_list":           nil,
		"commitment_complete":       {"id", "actual_effort"},
		"commitment_pending_reason": {"id"},
		"commitment_delete":         {"id"},
		"commitment_suggestion":     nil,
		"phase_start":               nil,
	}
	if len(tools) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(tools), len(want))
	}

	for _, tool := range tools {
		def := tool.Definition()
		required, ok := want[def.Name]
		if !ok {
			t.Errorf("unexpected tool %q", def.Name)
			continue
		}
		for _, name := range required {
			if _, ok := def.InputSchema.Properties[name]; !ok {
				t.Errorf("%s: missing %q parameter", def.Name, name)
			}
			if !isRequired(def, name) {
				t.Errorf("%s: %q should be required", def.Name, name)
			}
		}
	}

	if isRequired((&CompleteTool{}).Definition(), "inaccurate_note") {
		t.Error("inaccurate_note should be optional")
	}
}

func TestCreateTool_PassesArguments(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	tool := &CreateTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title":            "Ship release",
		"estimated_effort": 6.5,
		"start_date":       "2026-04-01",
	}))
	mustNotError(t, result, err)

	if lifecycle.userID != "user-1" {
		t.Errorf("owner = %q, want user-1", lifecycle.userID)
	}
	if lifecycle.createInput.EstimatedEffort == nil || *lifecycle.createInput.EstimatedEffort != 6.5 {
		t.Errorf("estimate not forwarded: %+v", lifecycle.createInput)
	}
	if lifecycle.createInput.StartDate != "2026-04-01" {
		t.Errorf("start date = %q", lifecycle.createInput.StartDate)
	}
	text := resultText(result)
	if !strings.Contains(text, "Ship release") || !strings.Contains(text, "c-1") {
		t.Errorf("unexpected result text: %s", text)
	}
}

func TestCreateTool_MissingEstimateIsNil(t *testing.T) {
	lifecycle := &fakeLifecycle{err: apperrors.Validation("invalid_estimated_effort", "estimatedEffort is required")}
	tool := &CreateTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title": "No estimate",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifecycle.createInput.EstimatedEffort != nil {
		t.Error("absent estimate should be forwarded as nil")
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(resultText(result), "invalid_estimated_effort") {
		t.Errorf("error should carry the code, got: %s", resultText(result))
	}
}

func TestListTool_RendersProfile(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	tool := &ListTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	text := resultText(result)
	for _, want := range []string{"**Reality score**: 85", "OPTIMISTIC", "**Phase**: 2", "No active commitments"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in: %s", want, text)
		}
	}

	lifecycle.commitments = []model.Commitment{{ID: "c-9", Title: "Listed", Status: model.StatusPending, EstimatedEffort: 1, PendingReason: "blocked"}}
	result, err = tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	text = resultText(result)
	if !strings.Contains(text, "Listed") || !strings.Contains(text, "pending: blocked") {
		t.Errorf("expected commitment line, got: %s", text)
	}
}

func TestCompleteTool(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	tool := &CompleteTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"actual_effort": 3.0,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(result), "'id' is required") {
		t.Fatalf("expected missing id error, got: %s", resultText(result))
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id":            "c-2",
		"actual_effort": 0.0,
	}))
	mustNotError(t, result, err)
	if lifecycle.completeID != "c-2" {
		t.Errorf("completed id = %q", lifecycle.completeID)
	}
	if lifecycle.completeIn.ActualEffort == nil || *lifecycle.completeIn.ActualEffort != 0 {
		t.Error("explicit zero effort should be forwarded")
	}
	if lifecycle.completeIn.InaccurateNote != nil {
		t.Error("absent note should be nil so the pending reason is kept")
	}
	if !strings.Contains(resultText(result), "Reality score: 90") {
		t.Errorf("unexpected result: %s", resultText(result))
	}
}

func TestPendingReasonAndDeleteTools(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	reasonTool := &PendingReasonTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := reasonTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id":     "c-3",
		"reason": "waiting on review",
	}))
	mustNotError(t, result, err)
	if lifecycle.reason != "waiting on review" {
		t.Errorf("reason = %q", lifecycle.reason)
	}

	deleteTool := &DeleteTool{owner{lifecycle: lifecycle, userID: "user-1"}}
	result, err = deleteTool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "c-3"}))
	mustNotError(t, result, err)
	if lifecycle.deletedID != "c-3" {
		t.Errorf("deleted id = %q", lifecycle.deletedID)
	}

	lifecycle.err = apperrors.InvalidState("commitment_completed", "Completed commitments cannot be deleted")
	result, err = deleteTool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "c-4"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(result), "commitment_completed") {
		t.Errorf("expected tool error with code, got: %s", resultText(result))
	}
}

func TestSuggestionTool_Advice(t *testing.T) {
	cases := []struct {
		multiplier float64
		want       string
	}{
		{multiplier: 1.2, want: "increasing your estimate"},
		{multiplier: 0.9, want: "overestimate"},
		{multiplier: 1.0, want: "on target"},
	}
	for _, tc := range cases {
		lifecycle := &fakeLifecycle{multiplier: tc.multiplier}
		tool := &SuggestionTool{owner{lifecycle: lifecycle, userID: "user-1"}}
		result, err := tool.Handle(context.Background(), makeReq(nil))
		mustNotError(t, result, err)
		if !strings.Contains(resultText(result), tc.want) {
			t.Errorf("multiplier %v: expected %q in %s", tc.multiplier, tc.want, resultText(result))
		}
	}
}

func TestStartPhaseTool(t *testing.T) {
	lifecycle := &fakeLifecycle{}
	tool := &StartPhaseTool{owner{lifecycle: lifecycle, userID: "user-1"}}

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	if !lifecycle.phaseStarted {
		t.Fatal("expected phase to start")
	}
	if !strings.Contains(resultText(result), "Started phase 3") {
		t.Errorf("unexpected result: %s", resultText(result))
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer(&fakeLifecycle{}, "user-1")
	if s == nil {
		t.Fatal("expected server")
	}
}
