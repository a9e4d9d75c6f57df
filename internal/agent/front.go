package agent

import (
	"context"

	"github.com/modecore/agentrun/pkg/models"
)

// StateKeyLatestUserPrompt is the well-known state key Front stamps with the
// content of the most recent User message in a thread before each run. A
// ModeProvider's classification function reads this key (via
// StateSnapshot.String) to decide, for example, whether a turn looks like a
// fresh request (Initializing) or a follow-up mid-task (Executing).
const StateKeyLatestUserPrompt = "latest_user_prompt"

// Front wraps one Agent with a fixed mode provider, translating an inbound
// conversation turn into a run of the Agent Loop and exposing its event
// stream to callers. It corresponds to the outermost entry point a caller
// (an HTTP handler, a CLI, an orchestrator managing several fronts) talks
// to; everything below it — mode classification, tool dispatch, sub-agent
// derivation — is an implementation detail.
type Front struct {
	agent *Agent
}

// NewFront wraps agent. agent's mode provider should already be configured
// (typically a *ClassifierModeProvider) before it is passed in.
func NewFront(a *Agent) *Front {
	return &Front{agent: a}
}

// Agent returns the wrapped Agent, for callers that need direct access to
// its registry, state, or stream.
func (f *Front) Agent() *Agent { return f.agent }

// Run stamps the latest user prompt in thread into state under
// StateKeyLatestUserPrompt, then starts the Agent Loop exactly as Agent.Run
// would.
func (f *Front) Run(ctx context.Context, thread models.Thread) (<-chan Event, error) {
	if prompt, ok := latestUserPrompt(thread); ok {
		f.agent.State().Set(StateKeyLatestUserPrompt, prompt)
	}
	return f.agent.Run(ctx, thread)
}

// Shutdown fires the shared shutdown signal, cooperatively stopping this
// front's agent and every agent derived from it.
func (f *Front) Shutdown() {
	f.agent.Shutdown().Fire()
}

func latestUserPrompt(t models.Thread) (string, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Kind == models.KindUser {
			return t.Messages[i].Content, true
		}
	}
	return "", false
}
