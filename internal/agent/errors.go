package agent

import "errors"

// ErrorKind classifies an Error so callers can branch on failure mode
// without string matching, per the error kinds enumerated in the runtime's
// error handling design.
type ErrorKind string

const (
	// KindTransport means the LLM stream could not be opened or a chunk
	// failed to arrive. Fatal to the current step.
	KindTransport ErrorKind = "transport_error"
	// KindParse means a tool call's arguments were not valid structured
	// data. Fatal unless RunnerConfig.ResilientToolErrors is set.
	KindParse ErrorKind = "parse_error"
	// KindToolExecution means a tool's Execute returned an error. Fatal
	// unless RunnerConfig.ResilientToolErrors is set.
	KindToolExecution ErrorKind = "tool_execution_error"
	// KindUnknownTool means the LLM requested a tool not in the registry.
	// Never fatal.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindStreamClosed means the outbound multiplexer has no sender. Never
	// fatal to the loop.
	KindStreamClosed ErrorKind = "stream_closed"
	// KindDepthExceeded means the recursion cap was reached. Non-fatal.
	KindDepthExceeded ErrorKind = "depth_exceeded"
	// KindShutdownSignalled means the shutdown signal fired mid-run.
	// Non-fatal.
	KindShutdownSignalled ErrorKind = "shutdown_signalled"
)

// Error is the runtime's error type. Its Cause field holds an underlying
// cause (a transport error from an LLMProvider, a tool's Execute error, a
// JSON parse failure) so errors.Is/As still work against both the Kind and
// the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, &Error{Kind: KindUnknownTool}) style checks.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// fatal reports whether an ErrorKind propagates to the spawning task rather
// than being recovered locally by the loop.
func (k ErrorKind) fatal() bool {
	switch k {
	case KindUnknownTool, KindStreamClosed, KindDepthExceeded, KindShutdownSignalled:
		return false
	default:
		return true
	}
}
