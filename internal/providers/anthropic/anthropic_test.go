package anthropic

import (
	"testing"

	"github.com/modecore/agentrun/pkg/models"
)

func TestNewRejectsMissingAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error when APIKey is empty")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.defaultModel != "claude-sonnet-4-20250514" {
		t.Errorf("defaultModel = %q, want claude-sonnet-4-20250514", p.defaultModel)
	}
	if p.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %d, want %d", p.maxTokens, defaultMaxTokens)
	}
}

func TestBuildParamsSeparatesSystemFromMessages(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := models.ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []models.Message{
			{Kind: models.KindDeveloper, Content: "be terse"},
			{Kind: models.KindUser, Content: "hello"},
			{Kind: models.KindAssistant, Content: "hi", ToolCalls: []models.ToolCall{
				{ID: "call-1", Name: "lookup", Arguments: `{"q":"go"}`},
			}},
			{Kind: models.KindTool, CallID: "call-1", Content: `{"result":"ok"}`},
		},
	}

	params, err := p.buildParams(req)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if len(params.System) != 1 || params.System[0].Text != "be terse" {
		t.Errorf("system = %+v, want one block with %q", params.System, "be terse")
	}
	if len(params.Messages) != 3 {
		t.Fatalf("got %d messages, want 3 (user, assistant, tool-result)", len(params.Messages))
	}
}

func TestConvertToolsProducesNamedTool(t *testing.T) {
	tools, err := convertTools([]models.ToolSchema{{
		Name:        "lookup",
		Description: "looks things up",
		Parameters:  map[string]any{"type": "object"},
	}})
	if err != nil {
		t.Fatalf("convertTools: %v", err)
	}
	if len(tools) != 1 || tools[0].OfTool == nil {
		t.Fatalf("expected one named tool, got %+v", tools)
	}
	if tools[0].OfTool.Name != "lookup" {
		t.Errorf("name = %q, want lookup", tools[0].OfTool.Name)
	}
}

func TestFinishReasonMapsToolUse(t *testing.T) {
	if got := finishReason("tool_use"); got != "tool_calls" {
		t.Errorf("finishReason(tool_use) = %q, want tool_calls", got)
	}
	if got := finishReason("end_turn"); got != "end_turn" {
		t.Errorf("finishReason(end_turn) = %q, want end_turn (passthrough)", got)
	}
}
