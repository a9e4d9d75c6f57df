package openai

import (
	"testing"

	"github.com/modecore/agentrun/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

func TestConvertMessagesByKind(t *testing.T) {
	msgs := []models.Message{
		{Kind: models.KindDeveloper, Content: "be helpful"},
		{Kind: models.KindUser, Content: "hello"},
		{Kind: models.KindAssistant, Content: "hi", ToolCalls: []models.ToolCall{
			{ID: "call-1", Name: "lookup", Arguments: `{"q":"go"}`},
		}},
		{Kind: models.KindTool, CallID: "call-1", Content: `{"result":"ok"}`},
	}

	out := convertMessages(msgs)
	if len(out) != 4 {
		t.Fatalf("got %d messages, want 4", len(out))
	}
	if out[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("developer role = %q, want system", out[0].Role)
	}
	if out[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("user role = %q, want user", out[1].Role)
	}
	if out[2].Role != openai.ChatMessageRoleAssistant || len(out[2].ToolCalls) != 1 {
		t.Errorf("assistant message malformed: %+v", out[2])
	}
	if out[2].ToolCalls[0].Function.Name != "lookup" {
		t.Errorf("tool call name = %q, want lookup", out[2].ToolCalls[0].Function.Name)
	}
	if out[3].Role != openai.ChatMessageRoleTool || out[3].ToolCallID != "call-1" {
		t.Errorf("tool message malformed: %+v", out[3])
	}
}

func TestConvertToolChoice(t *testing.T) {
	if got := convertToolChoice(""); got != "required" {
		t.Errorf("empty choice = %v, want required", got)
	}
	if got := convertToolChoice("auto"); got != "auto" {
		t.Errorf("auto choice = %v, want auto", got)
	}
	if got := convertToolChoice("none"); got != "none" {
		t.Errorf("none choice = %v, want none", got)
	}
	named, ok := convertToolChoice("lookup").(openai.ToolChoice)
	if !ok {
		t.Fatalf("named choice should be an openai.ToolChoice, got %T", convertToolChoice("lookup"))
	}
	if named.Function.Name != "lookup" {
		t.Errorf("named function = %q, want lookup", named.Function.Name)
	}
}

func TestConvertToolCallDeltasFallsBackToPositionalIndex(t *testing.T) {
	deltas := []openai.ToolCall{
		{ID: "call-1", Function: openai.FunctionCall{Name: "a"}},
	}
	out := convertToolCallDeltas(deltas)
	if len(out) != 1 {
		t.Fatalf("got %d deltas, want 1", len(out))
	}
	if out[0].Index != 0 {
		t.Errorf("index = %d, want 0 (positional fallback)", out[0].Index)
	}
}

func TestIsRetryableClassifiesAPIErrors(t *testing.T) {
	if isRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
	retryable := &openai.APIError{HTTPStatusCode: 503}
	if !isRetryable(retryable) {
		t.Error("503 should be retryable")
	}
	nonRetryable := &openai.APIError{HTTPStatusCode: 400}
	if isRetryable(nonRetryable) {
		t.Error("400 should not be retryable")
	}
}
