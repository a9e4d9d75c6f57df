package agent

import (
	"context"
	"testing"
	"time"

	"github.com/modecore/agentrun/pkg/models"
)

func TestFrontStampsLatestUserPrompt(t *testing.T) {
	provider := &scriptedProvider{responses: [][]models.ChatChunk{textResponse("hi there")}}
	cfg := ModeConfiguration{Model: "test-model"}
	a := NewAgent("test", provider, fixedMode(cfg), WithRunnerConfig(RunnerConfig{
		StopOnToollessReply: true, FlushInterval: time.Millisecond,
	}), WithTrace(NoopTraceEmitter()))
	front := NewFront(a)

	thread := models.Thread{ID: "t1", Messages: []models.Message{
		{Kind: models.KindUser, Content: "first"},
		{Kind: models.KindUser, Content: "latest"},
	}}
	ch, err := front.Run(context.Background(), thread)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	drain(ch)

	v, ok := a.State().Get(StateKeyLatestUserPrompt)
	if !ok || v != "latest" {
		t.Fatalf("got (%v, %v), want (latest, true)", v, ok)
	}
}

func TestFrontShutdownStopsAgent(t *testing.T) {
	provider := &scriptedProvider{responses: [][]models.ChatChunk{
		toolCallResponse("call-1", "echo", `{}`),
	}}
	cfg := ModeConfiguration{Model: "test-model", LoadTools: func(r *ToolRegistry) { r.Add(echoTool{}, nil) }}
	a := NewAgent("test", provider, fixedMode(cfg), WithTrace(NoopTraceEmitter()))
	front := NewFront(a)

	front.Shutdown()

	ch, err := front.Run(context.Background(), models.Thread{ID: "t1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	events := drain(ch)

	if got := lastAssistantOrToolContent(events); got != cannedShutdownMessage {
		t.Fatalf("final content = %q, want canned shutdown message", got)
	}
}
