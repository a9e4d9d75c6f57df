package agent

import (
	"context"

	"github.com/modecore/agentrun/pkg/models"
)

// LLMProvider is the external LLM client contract the Agent Loop consumes.
// Implementations handle the specifics of one backend (Anthropic, OpenAI,
// Bedrock, ...) while presenting the same streaming interface to the loop.
// Implementations must be safe for concurrent use.
type LLMProvider interface {
	// StreamChatCompletion opens a streaming completion for req. A non-nil
	// error return means the stream never opened at all. Once open, the
	// returned channel delivers chunks until one carries a non-nil Err (a
	// mid-stream transport failure) or a finish_reason, after which the
	// channel is closed.
	StreamChatCompletion(ctx context.Context, req models.ChatRequest) (<-chan models.ChatChunk, error)

	// Name identifies the provider for tracing/metrics labels.
	Name() string
}
