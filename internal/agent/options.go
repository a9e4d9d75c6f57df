package agent

import "time"

// RunnerConfig configures the Agent Loop's bounded-recursion and policy
// behavior. A zero MaxDepth or FlushInterval falls back to its default via
// sanitizeRunnerConfig; the bool fields are used as given, so a hand-built
// RunnerConfig has ValidateToolSchema off unless it is set explicitly.
type RunnerConfig struct {
	// MaxDepth caps recursion depth. Default: 15.
	MaxDepth int

	// FlushInterval is the minimum spacing between InProgress snapshots.
	// Default: 50ms. Exposed for tests that need to observe flush timing
	// deterministically; production callers should leave it at the default.
	FlushInterval time.Duration

	// StopOnToollessReply, when true, ends the run as soon as a step
	// produces an assistant response with no tool calls, instead of the
	// documented source behavior of recursing one further step to give the
	// LLM a chance to observe and stop on its own.
	StopOnToollessReply bool

	// ResilientToolErrors, when true, converts a ParseError or
	// ToolExecutionError into a synthetic error Tool message fed back to
	// the LLM instead of propagating a fatal failure.
	ResilientToolErrors bool

	// ValidateToolSchema, when true, validates tool call arguments against
	// the tool's own Schema() before Execute is invoked, treating a schema
	// mismatch the same as a ParseError.
	ValidateToolSchema bool
}

// DefaultRunnerConfig returns the spec's default configuration: 15-step
// recursion cap, 50ms flush interval, documented-source behavior preserved
// (recurse once more on a tool-less reply, fatal tool errors), schema
// validation enabled.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxDepth:            15,
		FlushInterval:       flushInterval,
		StopOnToollessReply: false,
		ResilientToolErrors: false,
		ValidateToolSchema:  true,
	}
}

func sanitizeRunnerConfig(cfg RunnerConfig) RunnerConfig {
	defaults := DefaultRunnerConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	return cfg
}
