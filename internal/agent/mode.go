package agent

// ToolLoader installs tools into a fresh registry for one step. It is run
// after the registry has been cleared, so it is the sole source of truth for
// which tools exist during that step.
type ToolLoader func(*ToolRegistry)

// ModeConfiguration is the immutable-per-step configuration a ModeProvider
// returns: the developer prompt, the model id, the tool set to install, the
// set of tool names that terminate the run on successful execution, and an
// optional mode-specific override of the provider's tool_choice.
type ModeConfiguration struct {
	Prompt    string
	Model     string
	LoadTools ToolLoader
	// TerminatingTools names tools whose successful execution ends the run
	// immediately, without dispatching any remaining tool calls in the step
	// or recursing further.
	TerminatingTools map[string]struct{}
	// ToolChoice overrides the default "required" tool_choice sent to the
	// LLM for this mode. Empty means "required" (the spec default).
	ToolChoice string
}

// Terminates reports whether name is one of this configuration's
// terminating tools.
func (m ModeConfiguration) Terminates(name string) bool {
	if m.TerminatingTools == nil {
		return false
	}
	_, ok := m.TerminatingTools[name]
	return ok
}

// TerminatingSet builds a TerminatingTools set from a list of names.
func TerminatingSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// ModeProvider classifies a state snapshot into a mode and returns its
// configuration. It must be deterministic in its input: the same snapshot
// always yields the same ModeConfiguration. Mode changes are only observed
// at step boundaries; Configure is called exactly once per step.
type ModeProvider interface {
	Configure(snap StateSnapshot) ModeConfiguration
}

// ModeProviderFunc adapts a plain function to ModeProvider.
type ModeProviderFunc func(StateSnapshot) ModeConfiguration

// Configure calls f.
func (f ModeProviderFunc) Configure(snap StateSnapshot) ModeConfiguration { return f(snap) }

// Classification is one of the discrete modes a ClassifierModeProvider can
// resolve a state snapshot to.
type Classification string

const (
	ModeInitializing Classification = "initializing"
	ModeSearching    Classification = "searching"
	ModePlanning     Classification = "planning"
	ModeExecuting    Classification = "executing"
	ModeReviewing    Classification = "reviewing"
)

// ClassifyFunc maps a state snapshot to one of the discrete classifications.
type ClassifyFunc func(StateSnapshot) Classification

// ClassifierModeProvider is a concrete ModeProvider that first classifies
// state into one of a small number of named modes, then looks up that
// mode's configuration. This is the shape used by multi-agent fronts that
// route a conversation through initialization, search, planning, execution,
// and review stages.
type ClassifierModeProvider struct {
	Classify ClassifyFunc
	Modes    map[Classification]ModeConfiguration
	Fallback ModeConfiguration
}

// NewClassifierModeProvider builds a ClassifierModeProvider from a
// classification function and a mode table. If classify returns a
// Classification absent from modes, fallback is used.
func NewClassifierModeProvider(classify ClassifyFunc, modes map[Classification]ModeConfiguration, fallback ModeConfiguration) *ClassifierModeProvider {
	return &ClassifierModeProvider{Classify: classify, Modes: modes, Fallback: fallback}
}

// Configure classifies snap and resolves the corresponding configuration.
func (c *ClassifierModeProvider) Configure(snap StateSnapshot) ModeConfiguration {
	if c.Classify == nil {
		return c.Fallback
	}
	mode := c.Classify(snap)
	if cfg, ok := c.Modes[mode]; ok {
		return cfg
	}
	return c.Fallback
}
