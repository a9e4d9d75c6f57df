package agent

import (
	"context"
	"encoding/json"
)

// callIDKey is the context key under which the current tool call's id is
// stashed, so a Tool implementation can correlate progress emissions it
// writes to the shared stream with the call that triggered them without
// threading an extra parameter through every Execute signature.
type callIDKey struct{}

// CallIDFromContext returns the tool call id active for this Execute
// invocation, if any.
func CallIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callIDKey{}).(string)
	return id, ok
}

func withCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// Tool is the uniform contract one tool implementation satisfies: a unique
// name, a JSON-schema-compatible parameter descriptor, and an asynchronous
// execution entry point. Execute may suspend, and may emit zero or more
// in-progress Tool messages onto the agent's stream (via the
// StreamMultiplexer returned by the owning Agent's Stream method) before
// returning. Execute errors surface
// as execution failures; they must never panic.
type Tool interface {
	// Name returns the tool's name, unique within any one registry.
	Name() string

	// Description is a natural-language description of what the tool does,
	// used by the LLM to decide when to call it.
	Description() string

	// Schema returns the JSON-schema-compatible parameter descriptor.
	Schema() map[string]any

	// Execute runs the tool against params (already schema-validated by the
	// Agent Loop when RunnerConfig.ValidateToolSchema is set) and the
	// correlating call id. Implementations that need the
	// call id for progress emission can also read it back via
	// CallIDFromContext(ctx).
	Execute(ctx context.Context, params json.RawMessage, callID string) (*ToolOutcome, error)
}

// ToolOutcome is the result of one tool execution.
type ToolOutcome struct {
	// Content is the tool's textual output, fed back to the LLM as the
	// content of a Tool message.
	Content string
	// IsError marks Content as describing a failure rather than a result.
	// The loop does not raise an error for it (KindToolExecution is reserved
	// for Execute itself returning an error) and emits Content as a normal
	// Tool message, but an IsError outcome never terminates the run, even
	// for a terminating tool.
	IsError bool
}
