package agent

// Derive builds a secondary agent nested inside parent's lifetime: it
// shares parent's state, current-thread, stream, and shutdown signal, but
// gets its own LLM client handle, an empty tool registry, and the given
// mode provider. Sub-agents inherit no terminating tools by default — each
// step's terminating set comes entirely from whatever ModeConfiguration the
// sub-agent's own mode provider returns, never from the parent's mode.
//
// Used to run a specialized stage (e.g. a planning sub-step) within a larger
// conversation without forking the observable event stream: everything the
// sub-agent emits lands on the same StreamMultiplexer the parent's
// subscribers are already reading from.
func Derive(parent *Agent, name string, provider LLMProvider, mode ModeProvider, opts ...NewAgentOption) *Agent {
	child := &Agent{
		Name:      name,
		UserID:    parent.UserID,
		SessionID: parent.SessionID,
		provider:  provider,
		mode:      mode,
		registry:  NewToolRegistry(),
		group:     parent.group,
		trace:     parent.trace,
		logger:    parent.logger,
		config:    parent.config,
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}
