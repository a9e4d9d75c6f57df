package agent

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/modecore/agentrun/pkg/models"
)

// threadHandle is the shared, single-writer current-thread wrapper an Agent
// and its derivations hold a reference to. It is distinct from models.Thread
// itself: the handle adds the locking discipline spec requires ("writers
// hold the lock only for appends"), while models.Thread stays a plain data
// type safe to clone and hand to callers.
type threadHandle struct {
	mu     sync.Mutex
	thread models.Thread
}

func newThreadHandle() *threadHandle {
	return &threadHandle{}
}

// install replaces the handle's thread wholesale, used once per run to seat
// the caller's thread snapshot.
func (h *threadHandle) install(t models.Thread) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.thread = t.Clone()
}

// snapshot returns a deep-enough copy safe for the caller to read or mutate
// without affecting the handle.
func (h *threadHandle) snapshot() models.Thread {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.thread.Clone()
}

// append adds one message to the live thread under the write lock.
func (h *threadHandle) append(m models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.thread.Messages = append(h.thread.Messages, m)
}

// sharedGroup holds the state, thread, stream, and shutdown handles an Agent
// shares with every agent derived from it. These are reference-counted
// logical handles in the sense that every derivation points at the same
// underlying instance; there is no separate refcount to manage since Go's
// GC reclaims them once the last reference drops.
type sharedGroup struct {
	state    *StateStore
	thread   *threadHandle
	stream   *StreamMultiplexer
	shutdown *ShutdownSignal
}

func newSharedGroup() *sharedGroup {
	return &sharedGroup{
		state:    NewStateStore(),
		thread:   newThreadHandle(),
		stream:   NewStreamMultiplexer(),
		shutdown: NewShutdownSignal(),
	}
}

// Agent owns an LLM client handle, identity, the group it shares state with,
// and its own independent tool registry and mode provider. A sub-agent
// derived via Derive shares its parent's sharedGroup but gets a fresh
// registry, terminating set, and mode provider.
type Agent struct {
	Name      string
	UserID    string
	SessionID string

	provider LLMProvider
	mode     ModeProvider
	registry *ToolRegistry

	group  *sharedGroup
	trace  *TraceEmitter
	logger *slog.Logger
	config RunnerConfig
}

// NewAgentOption configures optional Agent fields at construction time.
type NewAgentOption func(*Agent)

// WithTrace attaches a TraceEmitter. The zero value emits nothing.
func WithTrace(t *TraceEmitter) NewAgentOption {
	return func(a *Agent) { a.trace = t }
}

// WithLogger attaches a *slog.Logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) NewAgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRunnerConfig overrides the default RunnerConfig.
func WithRunnerConfig(cfg RunnerConfig) NewAgentOption {
	return func(a *Agent) { a.config = sanitizeRunnerConfig(cfg) }
}

// NewAgent constructs a top-level Agent with a fresh sharedGroup: its own
// state, thread, stream, and shutdown signal. Use Derive to build a
// sub-agent that shares those with an existing Agent instead.
func NewAgent(name string, provider LLMProvider, mode ModeProvider, opts ...NewAgentOption) *Agent {
	a := &Agent{
		Name:      name,
		SessionID: uuid.NewString(),
		provider:  provider,
		mode:      mode,
		registry:  NewToolRegistry(),
		group:     newSharedGroup(),
		logger:    slog.Default(),
		config:    DefaultRunnerConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns this agent's independent tool registry.
func (a *Agent) Registry() *ToolRegistry { return a.registry }

// State returns the state store shared across this agent's group.
func (a *Agent) State() *StateStore { return a.group.state }

// Shutdown returns the shutdown signal shared across this agent's group.
// Firing it cooperatively cancels this agent and every agent derived from
// (or that this agent was derived from) the same group.
func (a *Agent) Shutdown() *ShutdownSignal { return a.group.shutdown }

// Stream returns the multiplexer shared across this agent's group, the
// single fan-out stream every Run call on any agent in the group emits
// onto.
func (a *Agent) Stream() *StreamMultiplexer { return a.group.stream }

// EmitToolMessage sends a Tool message onto the shared stream directly,
// letting a caller that holds the Agent report tool progress mid-execution.
// A Tool implementation that holds no reference to its Agent can send the
// same message through the StreamMultiplexer returned by Stream instead.
func (a *Agent) EmitToolMessage(callID, name, content string, progress models.Progress) {
	_ = a.group.stream.Send(models.Message{
		Kind:     models.KindTool,
		CallID:   callID,
		Name:     name,
		Content:  content,
		Progress: progress,
	})
}
